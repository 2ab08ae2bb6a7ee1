package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytgrab/ytgrab/internal/config"
	"github.com/ytgrab/ytgrab/internal/testutil"
)

func TestRegistryRejectsDuplicateStart(t *testing.T) {
	dir := t.TempDir()
	resolver := &testutil.FakeResolver{
		Video:        testVideo(muxed720(10)),
		Streams:      map[int][]byte{22: []byte("0123456789")},
		ResolveDelay: time.Hour,
	}
	reg := NewRegistry()
	task := NewTask(testRef(), dir, config.QualityBest, config.FormatMP4)
	opts := Options{Resolver: resolver, Merger: &testutil.FakeMerger{}, Retry: fastRetry()}

	ch, err := reg.Start(context.Background(), task, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.ActiveCount())

	_, err = reg.Start(context.Background(), task, opts)
	require.ErrorIs(t, err, ErrTaskRunning)

	require.True(t, reg.Cancel(task.ID))
	drain(t, ch)
	assert.Equal(t, 0, reg.ActiveCount())
}

func TestRegistryRejectsFinishedTask(t *testing.T) {
	dir := t.TempDir()
	payload := []byte("done")
	resolver := &testutil.FakeResolver{
		Video:   testVideo(muxed720(int64(len(payload)))),
		Streams: map[int][]byte{22: payload},
	}
	reg := NewRegistry()
	task := NewTask(testRef(), dir, config.QualityBest, config.FormatMP4)
	opts := Options{Resolver: resolver, Merger: &testutil.FakeMerger{}, Retry: fastRetry()}

	ch, err := reg.Start(context.Background(), task, opts)
	require.NoError(t, err)
	drain(t, ch)
	require.Equal(t, StatusCompleted, task.Status())

	_, err = reg.Start(context.Background(), task, opts)
	require.ErrorIs(t, err, ErrTaskFinished)
}

func TestRegistryCancelUnknownTask(t *testing.T) {
	reg := NewRegistry()
	assert.False(t, reg.Cancel("no-such-id"))
}

func TestRegistryCancelAll(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	opts := Options{
		Resolver: &testutil.FakeResolver{
			Video:        testVideo(muxed720(10)),
			Streams:      map[int][]byte{22: []byte("0123456789")},
			ResolveDelay: time.Hour,
		},
		Merger: &testutil.FakeMerger{},
		Retry:  fastRetry(),
	}

	var streams []<-chan any
	for i := 0; i < 3; i++ {
		task := NewTask(testRef(), dir, config.QualityBest, config.FormatMP4)
		ch, err := reg.Start(context.Background(), task, opts)
		require.NoError(t, err)
		streams = append(streams, ch)
	}
	require.Equal(t, 3, reg.ActiveCount())

	reg.CancelAll()
	for _, ch := range streams {
		drain(t, ch)
	}
	assert.Equal(t, 0, reg.ActiveCount())
}
