package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ytgrab/ytgrab/internal/media"
	"github.com/ytgrab/ytgrab/internal/validate"
)

var infoCmd = &cobra.Command{
	Use:   "info <url>",
	Short: "Print video metadata as JSON without downloading",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ref, err := validate.Validate(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(media.ExitCode(err))
		}

		resolver := media.NewYouTubeResolver(settings.Network.Timeout)
		video, err := resolver.Resolve(context.Background(), ref.URL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(media.ExitCode(err))
		}

		type formatInfo struct {
			Itag     int    `json:"itag"`
			Mime     string `json:"mime"`
			Quality  string `json:"quality,omitempty"`
			Width    int    `json:"width,omitempty"`
			Height   int    `json:"height,omitempty"`
			Bitrate  int    `json:"bitrate,omitempty"`
			Audio    bool   `json:"audio"`
			Video    bool   `json:"video"`
			SizeByte int64  `json:"size_bytes,omitempty"`
		}
		out := struct {
			ID       string       `json:"id"`
			URL      string       `json:"url"`
			Title    string       `json:"title"`
			Author   string       `json:"author"`
			Duration float64      `json:"duration_seconds"`
			Formats  []formatInfo `json:"formats"`
		}{
			ID:       video.ID,
			URL:      ref.URL,
			Title:    video.Title,
			Author:   video.Author,
			Duration: video.Duration.Seconds(),
		}
		for i := range video.Formats {
			f := &video.Formats[i]
			out.Formats = append(out.Formats, formatInfo{
				Itag: f.Itag, Mime: f.MimeType, Quality: f.QualityLabel,
				Width: f.Width, Height: f.Height, Bitrate: f.Bitrate,
				Audio: f.HasAudio(), Video: f.HasVideo(), SizeByte: f.ContentLength,
			})
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
