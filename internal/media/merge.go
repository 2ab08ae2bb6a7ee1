package media

import (
	"os/exec"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Merger muxes separate audio/video streams and extracts audio tracks. The
// production implementation shells out to ffmpeg; tests substitute fakes.
type Merger interface {
	Available() bool
	Merge(videoPath, audioPath, outputPath string) error
	ExtractAudio(inputPath, outputPath string) error
}

// FFmpegMerger implements Merger via the ffmpeg binary.
type FFmpegMerger struct{}

func (FFmpegMerger) Available() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// Merge muxes a video-only and an audio-only file into outputPath without
// re-encoding. The container format is passed explicitly so in-progress
// temp names do not confuse ffmpeg's extension sniffing.
func (FFmpegMerger) Merge(videoPath, audioPath, outputPath string) error {
	err := ffmpeg.Output(
		[]*ffmpeg.Stream{ffmpeg.Input(videoPath), ffmpeg.Input(audioPath)},
		outputPath,
		ffmpeg.KwArgs{"c:v": "copy", "c:a": "copy", "f": "mp4"},
	).OverWriteOutput().Silent(true).Run()
	if err != nil {
		return Errorf(CategoryMerge, "muxing streams: %v", err)
	}
	return nil
}

// ExtractAudio re-encodes the audio track of inputPath into the codec
// implied by outputPath's target extension.
func (FFmpegMerger) ExtractAudio(inputPath, outputPath string) error {
	kwargs := ffmpeg.KwArgs{"vn": ""}
	switch targetExt(outputPath) {
	case ".m4a", ".aac":
		kwargs["acodec"] = "aac"
		kwargs["b:a"] = "192k"
		kwargs["f"] = "ipod"
	case ".opus", ".webm":
		kwargs["acodec"] = "libopus"
		kwargs["b:a"] = "160k"
		kwargs["f"] = "opus"
	default: // .mp3
		kwargs["acodec"] = "libmp3lame"
		kwargs["q:a"] = "2"
		kwargs["f"] = "mp3"
	}

	err := ffmpeg.Input(inputPath).
		Output(outputPath, kwargs).
		OverWriteOutput().
		Silent(true).
		Run()
	if err != nil {
		return Errorf(CategoryMerge, "extracting audio: %v", err)
	}
	return nil
}

// targetExt resolves the intended audio extension of path, looking through
// one trailing temp suffix like "song.mp3.partial".
func targetExt(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp3", ".m4a", ".aac", ".opus", ".webm":
		return ext
	}
	trimmed := strings.TrimSuffix(path, filepath.Ext(path))
	if inner := strings.ToLower(filepath.Ext(trimmed)); inner != "" {
		return inner
	}
	return ext
}
