// Package testutil provides in-memory fakes for the media layer so session
// behavior can be tested without the network or ffmpeg.
package testutil

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ytgrab/ytgrab/internal/media"
)

// FakeResolver serves canned metadata and in-memory stream bytes.
type FakeResolver struct {
	mu sync.Mutex

	Video      *media.Video
	Streams    map[int][]byte // itag -> payload
	ResolveErr error
	StreamErr  error

	// ResolveDelay lets tests cancel while metadata is "in flight".
	ResolveDelay time.Duration

	// FailStreamsLeft injects a transient network error on that many
	// OpenStream calls before succeeding.
	FailStreamsLeft int

	// StreamChunk and StreamDelay, when set, serve payloads through a
	// SlowReadCloser so cancellation can land mid-transfer.
	StreamChunk int
	StreamDelay time.Duration

	ResolveCalls int
	StreamCalls  int
}

func (f *FakeResolver) Resolve(ctx context.Context, url string) (*media.Video, error) {
	f.mu.Lock()
	f.ResolveCalls++
	delay := f.ResolveDelay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, media.WrapCategory(media.CategoryCancelled, ctx.Err())
		}
	}
	if f.ResolveErr != nil {
		return nil, f.ResolveErr
	}
	return f.Video, nil
}

func (f *FakeResolver) OpenStream(ctx context.Context, video *media.Video, format *media.Format) (io.ReadCloser, int64, error) {
	f.mu.Lock()
	f.StreamCalls++
	shouldFail := f.FailStreamsLeft > 0
	if shouldFail {
		f.FailStreamsLeft--
	}
	f.mu.Unlock()

	if shouldFail {
		return nil, 0, media.Errorf(media.CategoryNetwork, "injected stream failure")
	}
	if f.StreamErr != nil {
		return nil, 0, f.StreamErr
	}
	payload, ok := f.Streams[format.Itag]
	if !ok {
		return nil, 0, media.Errorf(media.CategoryNetwork, "no stream for itag %d", format.Itag)
	}
	if f.StreamChunk > 0 || f.StreamDelay > 0 {
		return &SlowReadCloser{Data: payload, ChunkSize: f.StreamChunk, Delay: f.StreamDelay}, int64(len(payload)), nil
	}
	return io.NopCloser(bytes.NewReader(payload)), int64(len(payload)), nil
}

// SlowReadCloser feeds bytes one chunk at a time with a pause between
// chunks, giving cancellation a window to land mid-transfer.
type SlowReadCloser struct {
	Data      []byte
	ChunkSize int
	Delay     time.Duration
	offset    int
}

func (s *SlowReadCloser) Read(p []byte) (int, error) {
	if s.offset >= len(s.Data) {
		return 0, io.EOF
	}
	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}
	n := s.ChunkSize
	if n <= 0 || n > len(p) {
		n = len(p)
	}
	if s.offset+n > len(s.Data) {
		n = len(s.Data) - s.offset
	}
	copy(p, s.Data[s.offset:s.offset+n])
	s.offset += n
	return n, nil
}

func (s *SlowReadCloser) Close() error { return nil }

// FakeMerger concatenates its inputs instead of invoking ffmpeg.
type FakeMerger struct {
	Unavailable bool
	MergeErr    error
	ExtractErr  error

	MergeCalls   int
	ExtractCalls int
}

func (f *FakeMerger) Available() bool { return !f.Unavailable }

func (f *FakeMerger) Merge(videoPath, audioPath, outPath string) error {
	f.MergeCalls++
	if f.MergeErr != nil {
		return f.MergeErr
	}
	v, err := os.ReadFile(videoPath)
	if err != nil {
		return err
	}
	a, err := os.ReadFile(audioPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, append(v, a...), 0o644)
}

func (f *FakeMerger) ExtractAudio(inPath, outPath string) error {
	f.ExtractCalls++
	if f.ExtractErr != nil {
		return f.ExtractErr
	}
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}
