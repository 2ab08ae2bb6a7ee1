// Package cmd wires the CLI: the default TUI mode plus headless
// subcommands for downloads, metadata, history and caption export.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ytgrab/ytgrab/internal/config"
	"github.com/ytgrab/ytgrab/internal/history"
	"github.com/ytgrab/ytgrab/internal/media"
	"github.com/ytgrab/ytgrab/internal/session"
	"github.com/ytgrab/ytgrab/internal/tui"
	"github.com/ytgrab/ytgrab/internal/utils"
)

// Version information, set via ldflags during build.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	settings *config.Settings
	registry = session.NewRegistry()
)

var rootCmd = &cobra.Command{
	Use:     "ytgrab",
	Short:   "A terminal YouTube downloader",
	Long:    `ytgrab downloads YouTube videos from the terminal, as an interactive TUI or through headless subcommands.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		settings, err = config.LoadSettings()
		if err != nil {
			settings = config.DefaultSettings()
		}
		utils.ConfigureDebug(config.GetLogsDir())
		utils.CleanupLogs(settings.General.LogRetentionCount)
	},
	Run: func(cmd *cobra.Command, args []string) {
		isMaster, err := AcquireLock()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error acquiring lock: %v\n", err)
			os.Exit(1)
		}
		if !isMaster {
			fmt.Fprintln(os.Stderr, "Error: ytgrab is already running.")
			fmt.Fprintln(os.Stderr, "Use 'ytgrab get <url>' for a one-off headless download.")
			os.Exit(1)
		}
		defer ReleaseLock()

		hist, err := history.Open(config.GetHistoryPath())
		if err != nil {
			utils.Debug("history unavailable: %v", err)
			hist = nil
		}
		if hist != nil {
			defer hist.Close()
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		model := tui.NewRootModel(ctx, settings, registry, hist, sessionOptions())
		p := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

// sessionOptions builds session defaults from the loaded settings.
func sessionOptions() session.Options {
	return session.Options{
		Resolver: media.NewYouTubeResolver(settings.Network.Timeout),
		Merger:   media.FFmpegMerger{},
		Retry: media.RetryConfig{
			MaxRetries:   settings.Network.MaxRetries,
			InitialDelay: settings.Network.RetryDelay,
			MaxDelay:     8 * time.Second,
		},
	}
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
