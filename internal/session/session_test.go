package session

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytgrab/ytgrab/internal/config"
	"github.com/ytgrab/ytgrab/internal/events"
	"github.com/ytgrab/ytgrab/internal/media"
	"github.com/ytgrab/ytgrab/internal/testutil"
	"github.com/ytgrab/ytgrab/internal/validate"
)

const testWatchURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func testRef() validate.VideoRef {
	return validate.VideoRef{URL: testWatchURL, VideoID: "dQw4w9WgXcQ"}
}

func muxed720(length int64) media.Format {
	return media.Format{
		Itag: 22, MimeType: `video/mp4; codecs="avc1.64001F, mp4a.40.2"`,
		QualityLabel: "720p", Width: 1280, Height: 720,
		AudioChannels: 2, ContentLength: length,
	}
}

func videoOnly1080(length int64) media.Format {
	return media.Format{
		Itag: 137, MimeType: `video/mp4; codecs="avc1.640028"`,
		QualityLabel: "1080p", Width: 1920, Height: 1080,
		ContentLength: length,
	}
}

func audioOnly(length int64) media.Format {
	return media.Format{
		Itag: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`,
		Bitrate: 128000, AudioChannels: 2, ContentLength: length,
	}
}

func testVideo(formats ...media.Format) *media.Video {
	return &media.Video{
		ID:       "dQw4w9WgXcQ",
		Title:    "Test Clip",
		Author:   "Tester",
		Duration: 3 * time.Minute,
		Formats:  formats,
	}
}

// drain collects every event until the stream closes.
func drain(t *testing.T, ch <-chan any) []any {
	t.Helper()
	var got []any
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatal("timed out waiting for session events")
		}
	}
}

func fastRetry() media.RetryConfig {
	return media.RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestSessionProgressiveDownload(t *testing.T) {
	dir := t.TempDir()
	payload := bytes.Repeat([]byte("abc"), 1024)
	resolver := &testutil.FakeResolver{
		Video:   testVideo(muxed720(int64(len(payload)))),
		Streams: map[int][]byte{22: payload},
	}

	task := NewTask(testRef(), dir, config.QualityBest, config.FormatMP4)
	s := New(task, Options{Resolver: resolver, Merger: &testutil.FakeMerger{}, Retry: fastRetry()})

	got := drain(t, s.Start(context.Background()))

	require.NotEmpty(t, got)
	completed, ok := got[len(got)-1].(events.CompletedMsg)
	require.True(t, ok, "last event should be CompletedMsg, got %T", got[len(got)-1])
	assert.Equal(t, StatusCompleted, task.Status())
	assert.Equal(t, int64(len(payload)), completed.Total)

	// Exactly one file, no incomplete leftovers.
	names := dirEntries(t, dir)
	require.Len(t, names, 1)
	assert.Equal(t, "Test Clip.mp4", names[0])
	assert.Equal(t, filepath.Join(dir, "Test Clip.mp4"), completed.Path)

	data, err := os.ReadFile(completed.Path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestSessionEventOrder(t *testing.T) {
	dir := t.TempDir()
	payload := []byte("payload")
	resolver := &testutil.FakeResolver{
		Video:   testVideo(muxed720(int64(len(payload)))),
		Streams: map[int][]byte{22: payload},
	}

	task := NewTask(testRef(), dir, config.QualityBest, config.FormatMP4)
	s := New(task, Options{Resolver: resolver, Merger: &testutil.FakeMerger{}, Retry: fastRetry()})
	got := drain(t, s.Start(context.Background()))

	require.GreaterOrEqual(t, len(got), 3)
	fetching, ok := got[0].(events.FetchingMsg)
	require.True(t, ok)
	assert.Equal(t, testWatchURL, fetching.URL)
	started, ok := got[1].(events.StartedMsg)
	require.True(t, ok)
	assert.Equal(t, "Test Clip", started.Title)
	assert.Equal(t, "Test Clip.mp4", started.Filename)
	_, ok = got[len(got)-1].(events.CompletedMsg)
	assert.True(t, ok)
}

func TestSessionMergesSeparateStreams(t *testing.T) {
	dir := t.TempDir()
	videoData := bytes.Repeat([]byte("v"), 2048)
	audioData := bytes.Repeat([]byte("a"), 512)
	resolver := &testutil.FakeResolver{
		Video: testVideo(muxed720(100), videoOnly1080(int64(len(videoData))), audioOnly(int64(len(audioData)))),
		Streams: map[int][]byte{
			137: videoData,
			140: audioData,
		},
	}
	merger := &testutil.FakeMerger{}

	task := NewTask(testRef(), dir, config.QualityBest, config.FormatMP4)
	s := New(task, Options{Resolver: resolver, Merger: merger, Retry: fastRetry()})
	got := drain(t, s.Start(context.Background()))

	_, ok := got[len(got)-1].(events.CompletedMsg)
	require.True(t, ok, "expected completion, got %T", got[len(got)-1])
	assert.Equal(t, 1, merger.MergeCalls)

	var sawMerging bool
	for _, ev := range got {
		if _, ok := ev.(events.MergingMsg); ok {
			sawMerging = true
		}
	}
	assert.True(t, sawMerging)

	names := dirEntries(t, dir)
	require.Len(t, names, 1)
	data, err := os.ReadFile(filepath.Join(dir, names[0]))
	require.NoError(t, err)
	assert.Equal(t, append(videoData, audioData...), data)
}

func TestSessionMergeFailureKeepsStreams(t *testing.T) {
	dir := t.TempDir()
	videoData := []byte("video-bytes")
	audioData := []byte("audio-bytes")
	resolver := &testutil.FakeResolver{
		Video: testVideo(videoOnly1080(int64(len(videoData))), audioOnly(int64(len(audioData)))),
		Streams: map[int][]byte{
			137: videoData,
			140: audioData,
		},
	}
	merger := &testutil.FakeMerger{MergeErr: media.Errorf(media.CategoryMerge, "mux failed")}

	task := NewTask(testRef(), dir, config.QualityBest, config.FormatMP4)
	s := New(task, Options{Resolver: resolver, Merger: merger, Retry: fastRetry()})
	got := drain(t, s.Start(context.Background()))

	failed, ok := got[len(got)-1].(events.FailedMsg)
	require.True(t, ok, "expected failure, got %T", got[len(got)-1])
	assert.Equal(t, media.CategoryMerge, media.CategoryOf(failed.Err))
	assert.Equal(t, StatusFailed, task.Status())

	// Both stream files survive under real extensions; no temp files remain.
	names := dirEntries(t, dir)
	require.Len(t, names, 2)
	for _, name := range names {
		assert.False(t, strings.HasSuffix(name, IncompleteSuffix), "leftover temp %s", name)
	}
	kept := strings.Join(names, " ")
	assert.Contains(t, kept, ".video.")
	assert.Contains(t, kept, ".audio.")
}

func TestSessionCancelDuringDownload(t *testing.T) {
	dir := t.TempDir()
	payload := bytes.Repeat([]byte("x"), 64*1024)
	resolver := &testutil.FakeResolver{
		Video:       testVideo(muxed720(int64(len(payload)))),
		Streams:     map[int][]byte{22: payload},
		StreamChunk: 1024,
		StreamDelay: 5 * time.Millisecond,
	}

	task := NewTask(testRef(), dir, config.QualityBest, config.FormatMP4)
	s := New(task, Options{Resolver: resolver, Merger: &testutil.FakeMerger{}, Retry: fastRetry()})
	ch := s.Start(context.Background())

	// Wait for the transfer to begin, then cancel mid-flight.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-ch:
			if _, ok := ev.(events.StartedMsg); ok {
				goto cancelNow
			}
		case <-deadline:
			t.Fatal("download never started")
		}
	}
cancelNow:
	s.Cancel()
	got := drain(t, ch)

	require.NotEmpty(t, got)
	_, ok := got[len(got)-1].(events.CancelledMsg)
	require.True(t, ok, "expected cancellation, got %T", got[len(got)-1])
	assert.Equal(t, StatusCancelled, task.Status())

	// Cancellation leaves no partial files behind.
	assert.Empty(t, dirEntries(t, dir))
}

func TestSessionCancelBeforeMetadata(t *testing.T) {
	dir := t.TempDir()
	resolver := &testutil.FakeResolver{
		Video:        testVideo(muxed720(10)),
		Streams:      map[int][]byte{22: []byte("0123456789")},
		ResolveDelay: time.Hour,
	}

	task := NewTask(testRef(), dir, config.QualityBest, config.FormatMP4)
	s := New(task, Options{Resolver: resolver, Merger: &testutil.FakeMerger{}, Retry: fastRetry()})
	ch := s.Start(context.Background())
	s.Cancel()

	got := drain(t, ch)
	_, ok := got[len(got)-1].(events.CancelledMsg)
	require.True(t, ok, "expected cancellation, got %T", got[len(got)-1])
	assert.Empty(t, dirEntries(t, dir))
}

func TestSessionRetriesTransientStreamFailure(t *testing.T) {
	dir := t.TempDir()
	payload := []byte("retry-me")
	resolver := &testutil.FakeResolver{
		Video:           testVideo(muxed720(int64(len(payload)))),
		Streams:         map[int][]byte{22: payload},
		FailStreamsLeft: 2,
	}

	task := NewTask(testRef(), dir, config.QualityBest, config.FormatMP4)
	s := New(task, Options{Resolver: resolver, Merger: &testutil.FakeMerger{}, Retry: fastRetry()})
	got := drain(t, s.Start(context.Background()))

	_, ok := got[len(got)-1].(events.CompletedMsg)
	require.True(t, ok, "expected completion after retries, got %T", got[len(got)-1])
	assert.Equal(t, 3, resolver.StreamCalls)

	names := dirEntries(t, dir)
	require.Len(t, names, 1)
	data, err := os.ReadFile(filepath.Join(dir, names[0]))
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestSessionMetadataErrorFails(t *testing.T) {
	dir := t.TempDir()
	resolver := &testutil.FakeResolver{
		ResolveErr: media.Errorf(media.CategoryMetadata, "video unavailable"),
	}

	task := NewTask(testRef(), dir, config.QualityBest, config.FormatMP4)
	s := New(task, Options{Resolver: resolver, Merger: &testutil.FakeMerger{}, Retry: fastRetry()})
	got := drain(t, s.Start(context.Background()))

	failed, ok := got[len(got)-1].(events.FailedMsg)
	require.True(t, ok)
	assert.Equal(t, media.CategoryMetadata, media.CategoryOf(failed.Err))
	// Metadata errors are not retryable.
	assert.Equal(t, 1, resolver.ResolveCalls)
	assert.Empty(t, dirEntries(t, dir))
}

func TestSessionMP3Extraction(t *testing.T) {
	dir := t.TempDir()
	audioData := []byte("pretend-aac")
	resolver := &testutil.FakeResolver{
		Video:   testVideo(muxed720(100), audioOnly(int64(len(audioData)))),
		Streams: map[int][]byte{140: audioData},
	}
	merger := &testutil.FakeMerger{}

	task := NewTask(testRef(), dir, config.QualityBest, config.FormatMP3)
	s := New(task, Options{Resolver: resolver, Merger: merger, Retry: fastRetry()})
	got := drain(t, s.Start(context.Background()))

	completed, ok := got[len(got)-1].(events.CompletedMsg)
	require.True(t, ok, "expected completion, got %T", got[len(got)-1])
	assert.Equal(t, 1, merger.ExtractCalls)
	assert.Equal(t, ".mp3", filepath.Ext(completed.Path))

	names := dirEntries(t, dir)
	require.Len(t, names, 1)
}

func TestSessionMP3WithoutFFmpegKeepsSourceContainer(t *testing.T) {
	dir := t.TempDir()

	// Only a progressive stream: audio mode falls back to it, and with no
	// ffmpeg the delivered file keeps the source's mp4 extension.
	payload := []byte("progressive-bytes")
	resolver := &testutil.FakeResolver{
		Video:   testVideo(muxed720(int64(len(payload)))),
		Streams: map[int][]byte{22: payload},
	}
	merger := &testutil.FakeMerger{Unavailable: true}

	task := NewTask(testRef(), dir, config.QualityBest, config.FormatMP3)
	s := New(task, Options{Resolver: resolver, Merger: merger, Retry: fastRetry()})
	got := drain(t, s.Start(context.Background()))

	completed, ok := got[len(got)-1].(events.CompletedMsg)
	require.True(t, ok, "expected completion, got %T", got[len(got)-1])
	assert.Equal(t, 0, merger.ExtractCalls)
	assert.Equal(t, ".mp4", filepath.Ext(completed.Path))

	names := dirEntries(t, dir)
	require.Len(t, names, 1)
	assert.Equal(t, "Test Clip.mp4", names[0])
}

func TestSessionMP3WithoutFFmpegAudioOnlySource(t *testing.T) {
	dir := t.TempDir()
	audioData := []byte("aac-bytes")
	resolver := &testutil.FakeResolver{
		Video:   testVideo(muxed720(100), audioOnly(int64(len(audioData)))),
		Streams: map[int][]byte{140: audioData},
	}
	merger := &testutil.FakeMerger{Unavailable: true}

	task := NewTask(testRef(), dir, config.QualityBest, config.FormatMP3)
	s := New(task, Options{Resolver: resolver, Merger: merger, Retry: fastRetry()})
	got := drain(t, s.Start(context.Background()))

	completed, ok := got[len(got)-1].(events.CompletedMsg)
	require.True(t, ok, "expected completion, got %T", got[len(got)-1])
	assert.Equal(t, ".m4a", filepath.Ext(completed.Path))
}

func TestSessionDuplicateFilenameGetsSuffix(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Test Clip.mp4"), []byte("old"), 0o644))

	payload := []byte("new-download")
	resolver := &testutil.FakeResolver{
		Video:   testVideo(muxed720(int64(len(payload)))),
		Streams: map[int][]byte{22: payload},
	}

	task := NewTask(testRef(), dir, config.QualityBest, config.FormatMP4)
	s := New(task, Options{Resolver: resolver, Merger: &testutil.FakeMerger{}, Retry: fastRetry()})
	got := drain(t, s.Start(context.Background()))

	completed, ok := got[len(got)-1].(events.CompletedMsg)
	require.True(t, ok)
	assert.Equal(t, "Test Clip (1).mp4", filepath.Base(completed.Path))

	// The pre-existing file is untouched.
	old, err := os.ReadFile(filepath.Join(dir, "Test Clip.mp4"))
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), old)
}
