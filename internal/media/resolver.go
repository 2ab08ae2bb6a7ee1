package media

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
)

// Format describes a single downloadable stream of a video.
type Format struct {
	Itag          int
	MimeType      string
	QualityLabel  string
	Width         int
	Height        int
	Bitrate       int
	AudioChannels int
	ContentLength int64
}

// HasVideo reports whether the format carries a video track.
func (f *Format) HasVideo() bool { return f.Width > 0 || f.Height > 0 }

// HasAudio reports whether the format carries an audio track.
func (f *Format) HasAudio() bool { return f.AudioChannels > 0 }

// Ext returns the container extension implied by the format's MIME type.
func (f *Format) Ext() string { return MimeToExt(f.MimeType) }

// Video is resolved metadata for one remote video.
type Video struct {
	ID       string
	Title    string
	Author   string
	Duration time.Duration
	Formats  []Format

	yt *youtube.Video // set by the YouTube resolver, nil in tests
}

// Resolver fetches video metadata and opens streams for selected formats.
type Resolver interface {
	Resolve(ctx context.Context, url string) (*Video, error)
	OpenStream(ctx context.Context, video *Video, format *Format) (io.ReadCloser, int64, error)
}

const (
	minChunkSize     int64 = 256 * 1024      // keeps progress responsive on small files
	maxChunkSize     int64 = 2 * 1024 * 1024 // cap to avoid excessive requests on large files
	targetChunkCount int64 = 64
)

// YouTubeResolver resolves metadata and streams through the YouTube client.
type YouTubeResolver struct {
	client *youtube.Client
}

// NewYouTubeResolver builds a resolver with a per-request timeout.
func NewYouTubeResolver(timeout time.Duration) *YouTubeResolver {
	return &YouTubeResolver{
		client: &youtube.Client{
			HTTPClient: &http.Client{Timeout: timeout},
		},
	}
}

func (r *YouTubeResolver) Resolve(ctx context.Context, url string) (*Video, error) {
	ytVideo, err := r.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, WrapCategory(classifyResolveError(err), err)
	}

	video := &Video{
		ID:       ytVideo.ID,
		Title:    ytVideo.Title,
		Author:   ytVideo.Author,
		Duration: ytVideo.Duration,
		Formats:  make([]Format, 0, len(ytVideo.Formats)),
		yt:       ytVideo,
	}
	for i := range ytVideo.Formats {
		f := &ytVideo.Formats[i]
		video.Formats = append(video.Formats, Format{
			Itag:          f.ItagNo,
			MimeType:      f.MimeType,
			QualityLabel:  f.QualityLabel,
			Width:         f.Width,
			Height:        f.Height,
			Bitrate:       f.Bitrate,
			AudioChannels: f.AudioChannels,
			ContentLength: f.ContentLength,
		})
	}
	return video, nil
}

func (r *YouTubeResolver) OpenStream(ctx context.Context, video *Video, format *Format) (io.ReadCloser, int64, error) {
	if video.yt == nil {
		return nil, 0, Errorf(CategoryMetadata, "video %s has no stream source", video.ID)
	}
	var ytFormat *youtube.Format
	for i := range video.yt.Formats {
		if video.yt.Formats[i].ItagNo == format.Itag {
			ytFormat = &video.yt.Formats[i]
			break
		}
	}
	if ytFormat == nil {
		return nil, 0, Errorf(CategoryMetadata, "itag %d not present in video %s", format.Itag, video.ID)
	}

	adjustChunkSize(r.client, ytFormat.ContentLength)
	stream, size, err := r.client.GetStreamContext(ctx, video.yt, ytFormat)
	if err != nil {
		return nil, 0, WrapCategory(CategoryNetwork, err)
	}
	if size <= 0 && ytFormat.ContentLength > 0 {
		size = ytFormat.ContentLength
	}
	return stream, size, nil
}

// adjustChunkSize picks a chunk size that keeps progress updates frequent
// without spawning thousands of requests.
func adjustChunkSize(client *youtube.Client, contentLength int64) {
	if client == nil || contentLength <= 0 {
		return
	}
	chunk := contentLength / targetChunkCount
	if chunk < minChunkSize {
		chunk = minChunkSize
	} else if chunk > maxChunkSize {
		chunk = maxChunkSize
	}
	client.ChunkSize = chunk
}

func classifyResolveError(err error) Category {
	if errors.Is(err, context.Canceled) {
		return CategoryCancelled
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryNetwork
	}
	// Anything the client rejects about the video itself: unavailable,
	// private, region-locked, removed.
	return CategoryMetadata
}

// MimeToExt maps a stream MIME type to a file extension.
func MimeToExt(mimeType string) string {
	mt := mimeType
	if idx := strings.Index(mt, ";"); idx != -1 {
		mt = mt[:idx]
	}
	mt = strings.TrimSpace(strings.ToLower(mt))
	switch mt {
	case "video/mp4", "audio/mp4":
		if strings.HasPrefix(mt, "audio/") {
			return "m4a"
		}
		return "mp4"
	case "video/webm", "audio/webm":
		if strings.HasPrefix(mt, "audio/") {
			return "weba"
		}
		return "webm"
	case "video/3gpp":
		return "3gp"
	case "audio/mpeg":
		return "mp3"
	default:
		if idx := strings.Index(mt, "/"); idx != -1 && idx+1 < len(mt) {
			return mt[idx+1:]
		}
		return "bin"
	}
}
