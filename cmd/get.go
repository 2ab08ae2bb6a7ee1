package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ytgrab/ytgrab/internal/config"
	"github.com/ytgrab/ytgrab/internal/events"
	"github.com/ytgrab/ytgrab/internal/history"
	"github.com/ytgrab/ytgrab/internal/media"
	"github.com/ytgrab/ytgrab/internal/session"
	"github.com/ytgrab/ytgrab/internal/utils"
	"github.com/ytgrab/ytgrab/internal/validate"
)

var getCmd = &cobra.Command{
	Use:   "get <url>...",
	Short: "Download one or more videos without the TUI",
	Long:  `get downloads the given video URLs headlessly, printing progress lines to stderr and the final file paths to stdout.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		outputDir, _ := cmd.Flags().GetString("output")
		quality, _ := cmd.Flags().GetString("quality")
		format, _ := cmd.Flags().GetString("format")
		jsonOut, _ := cmd.Flags().GetBool("json")

		if outputDir == "" {
			outputDir = settings.General.DownloadDir
		}
		outputDir = utils.EnsureAbsPath(outputDir)
		if quality == "" {
			quality = settings.General.Quality
		}
		if format == "" {
			format = settings.General.Format
		}
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot create %s: %v\n", outputDir, err)
			os.Exit(media.ExitCode(media.WrapCategory(media.CategoryIO, err)))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hist, err := history.Open(config.GetHistoryPath())
		if err != nil {
			utils.Debug("history unavailable: %v", err)
		} else {
			defer hist.Close()
		}

		exit := 0
		for _, rawURL := range args {
			if code := runGet(ctx, rawURL, outputDir, quality, format, jsonOut, hist); code != 0 {
				exit = code
			}
			if ctx.Err() != nil {
				break
			}
		}
		os.Exit(exit)
	},
}

// runGet downloads one URL and returns its exit code.
func runGet(ctx context.Context, rawURL, outputDir, quality, format string, jsonOut bool, hist *history.Store) int {
	ref, err := validate.Validate(rawURL)
	if err != nil {
		reportError("", err, jsonOut)
		return media.ExitCode(err)
	}

	task := session.NewTask(ref, outputDir, quality, format)
	ch, err := registry.Start(ctx, task, sessionOptions())
	if err != nil {
		reportError(task.ID, err, jsonOut)
		return media.ExitCode(err)
	}

	title := ref.VideoID
	for ev := range ch {
		switch ev := ev.(type) {
		case events.StartedMsg:
			title = ev.Title
			if jsonOut {
				printEventJSON("started", ev)
			} else {
				fmt.Fprintf(os.Stderr, "Downloading %q (%s)\n", ev.Title, utils.ConvertBytesToHumanReadable(ev.Total))
			}

		case events.ProgressMsg:
			if !jsonOut {
				printProgressLine(ev)
			}

		case events.MergingMsg:
			if !jsonOut {
				fmt.Fprintf(os.Stderr, "\nMerging streams...\n")
			}

		case events.CompletedMsg:
			recordResult(hist, ref, title, ev.Path, "completed")
			if jsonOut {
				printEventJSON("completed", ev)
			} else {
				fmt.Fprintf(os.Stderr, "\nDone in %s\n", ev.Elapsed.Round(100*time.Millisecond))
				fmt.Println(ev.Path)
			}
			return 0

		case events.CancelledMsg:
			recordResult(hist, ref, title, "", "cancelled")
			if jsonOut {
				printEventJSON("cancelled", ev)
			} else {
				fmt.Fprintln(os.Stderr, "\nCancelled")
			}
			return 0

		case events.FailedMsg:
			recordResult(hist, ref, title, "", "failed")
			if jsonOut {
				printEventJSON("failed", ev)
			} else {
				fmt.Fprintf(os.Stderr, "\nError: %v\n", ev.Err)
			}
			return media.ExitCode(ev.Err)
		}
	}
	return 0
}

func printProgressLine(ev events.ProgressMsg) {
	if ev.Fraction >= 0 {
		fmt.Fprintf(os.Stderr, "\r%6.1f%%  %s / %s  %s/s   ",
			ev.Fraction*100,
			utils.ConvertBytesToHumanReadable(ev.Downloaded),
			utils.ConvertBytesToHumanReadable(ev.Total),
			utils.ConvertBytesToHumanReadable(int64(ev.Speed)))
		return
	}
	fmt.Fprintf(os.Stderr, "\r%s  %s/s   ",
		utils.ConvertBytesToHumanReadable(ev.Downloaded),
		utils.ConvertBytesToHumanReadable(int64(ev.Speed)))
}

// reportError surfaces a failure that happened before a session produced
// events; in JSON mode it is shaped like a failed event.
func reportError(taskID string, err error, jsonOut bool) {
	if jsonOut {
		printEventJSON("failed", events.FailedMsg{TaskID: taskID, Err: err})
		return
	}
	fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
}

// encodeEvent wraps a session event in a one-line envelope for the --json
// stream. Events marshal through their own codecs (FailedMsg encodes its
// error as a string).
func encodeEvent(name string, ev any) ([]byte, error) {
	return json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}{Event: name, Data: ev})
}

func printEventJSON(name string, ev any) {
	out, err := encodeEvent(name, ev)
	if err != nil {
		return
	}
	fmt.Println(string(out))
}

func recordResult(hist *history.Store, ref validate.VideoRef, title, path, status string) {
	if hist == nil {
		return
	}
	err := hist.Add(history.Entry{
		VideoID:  ref.VideoID,
		URL:      ref.URL,
		Title:    title,
		FilePath: path,
		Status:   status,
	})
	if err != nil {
		utils.Debug("recording history: %v", err)
	}
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().StringP("output", "o", "", "target directory (default: configured download dir)")
	getCmd.Flags().StringP("quality", "q", "", "quality preference: best, 1080p, 720p, 480p, worst")
	getCmd.Flags().StringP("format", "f", "", "format: mp4, mp3, video-only")
	getCmd.Flags().Bool("json", false, "emit one JSON result line per URL instead of progress output")
}
