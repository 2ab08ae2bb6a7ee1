package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ytgrab/ytgrab/internal/captions"
)

var captionsCmd = &cobra.Command{
	Use:   "captions <draft-dir-or-file>",
	Short: "Export captions from a CapCut draft as SRT or plain text",
	Long:  `captions finds a draft_content.json under the given path and writes its subtitle cues as an SRT file, or as plain text with --txt.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		outPath, _ := cmd.Flags().GetString("output")
		asTxt, _ := cmd.Flags().GetBool("txt")

		draftPath, err := captions.FindDraftFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		caps, err := captions.ParseDraft(draftPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(caps) == 0 {
			fmt.Fprintln(os.Stderr, "No captions found in draft.")
			os.Exit(1)
		}

		var content, ext string
		if asTxt {
			content, ext = captions.ToTXT(caps), ".txt"
		} else {
			content, ext = captions.ToSRT(caps), ".srt"
		}

		if outPath == "" {
			base := strings.TrimSuffix(filepath.Base(draftPath), filepath.Ext(draftPath))
			outPath = base + ext
		}
		if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Exported %d captions to %s\n", len(caps), outPath)
	},
}

func init() {
	rootCmd.AddCommand(captionsCmd)
	captionsCmd.Flags().StringP("output", "o", "", "output file path")
	captionsCmd.Flags().Bool("txt", false, "export plain text instead of SRT")
}
