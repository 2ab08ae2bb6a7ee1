// Package session orchestrates a single download: metadata resolution,
// format selection, progress-tracked transfer, optional merge, and atomic
// finalization into the target directory.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ytgrab/ytgrab/internal/config"
	"github.com/ytgrab/ytgrab/internal/events"
	"github.com/ytgrab/ytgrab/internal/media"
	"github.com/ytgrab/ytgrab/internal/utils"
)

// IncompleteSuffix marks in-flight temporary files inside the target dir.
const IncompleteSuffix = ".ytgrab"

const copyBufferSize = 256 * 1024

// Options configures a Session. Zero values fall back to production defaults.
type Options struct {
	Resolver         media.Resolver
	Merger           media.Merger
	Retry            media.RetryConfig
	ProgressInterval time.Duration
	EventBuffer      int

	// onFinish is set by the Registry to observe terminal states.
	onFinish func(task *Task)
}

func (o *Options) fillDefaults() {
	if o.Resolver == nil {
		o.Resolver = media.NewYouTubeResolver(3 * time.Minute)
	}
	if o.Merger == nil {
		o.Merger = media.FFmpegMerger{}
	}
	if o.Retry.MaxRetries == 0 && o.Retry.InitialDelay == 0 {
		o.Retry = media.DefaultRetryConfig
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = 100 * time.Millisecond
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = 64
	}
}

// Session runs one task. Events flow one way, from the session goroutine to
// the observer; the observer can never block a transfer.
type Session struct {
	task   *Task
	opts   Options
	events chan any
	cancel context.CancelFunc
}

// New creates a session for task. Start must be called exactly once.
func New(task *Task, opts Options) *Session {
	opts.fillDefaults()
	return &Session{
		task:   task,
		opts:   opts,
		events: make(chan any, opts.EventBuffer),
	}
}

// Task returns the task this session owns.
func (s *Session) Task() *Task { return s.task }

// Start launches the session goroutine and returns its event stream. The
// stream is closed after a terminal event (Completed, Cancelled or Failed).
func (s *Session) Start(ctx context.Context) <-chan any {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
	return s.events
}

// Cancel requests cooperative cancellation. The transfer stops between
// chunks, partial files are removed, and a Cancelled event is emitted.
func (s *Session) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.events)

	start := time.Now()
	cleanup := newTempSet()
	err := s.execute(ctx, start, cleanup)
	if err == nil {
		return
	}

	cleanup.removeAll()

	if media.CategoryOf(err) == media.CategoryCancelled || errors.Is(err, context.Canceled) {
		utils.Debug("task %s cancelled", s.task.ID)
		_ = s.task.transition(StatusCancelled)
		s.finish(events.CancelledMsg{TaskID: s.task.ID})
		return
	}

	utils.Debug("task %s failed: %v", s.task.ID, err)
	s.task.setErr(err)
	_ = s.task.transition(StatusFailed)
	s.finish(events.FailedMsg{TaskID: s.task.ID, Err: err})
}

// execute drives the happy path; any returned error is mapped to Cancelled
// or Failed by run. Files registered in cleanup are removed on the way out.
func (s *Session) execute(ctx context.Context, start time.Time, cleanup *tempSet) error {
	task := s.task

	if err := task.transition(StatusFetching); err != nil {
		return media.WrapCategory(media.CategoryUnknown, err)
	}
	s.send(ctx, events.FetchingMsg{TaskID: task.ID, URL: task.Ref.URL})

	var video *media.Video
	err := media.WithRetry(ctx, s.opts.Retry, func() error {
		var resolveErr error
		video, resolveErr = s.opts.Resolver.Resolve(ctx, task.Ref.URL)
		return resolveErr
	})
	if err != nil {
		return err
	}
	task.setTitle(video.Title)

	plan, err := media.SelectFormats(video, task.Quality, kindFor(task.Format))
	if err != nil {
		return err
	}

	finalPath := utils.UniquePath(filepath.Join(task.TargetDir, s.filename(video, plan)))
	total := planTotal(plan)

	s.send(ctx, events.StartedMsg{
		TaskID:   task.ID,
		VideoID:  video.ID,
		Title:    video.Title,
		Filename: filepath.Base(finalPath),
		Total:    total,
	})

	if err := task.transition(StatusDownloading); err != nil {
		return media.WrapCategory(media.CategoryUnknown, err)
	}
	m := newMeter(task.ID, total, s.opts.ProgressInterval, s.events, task)

	var resultPath string
	switch {
	case plan.NeedsMerge():
		resultPath, err = s.downloadAndMerge(ctx, video, plan, finalPath, m, cleanup)
	default:
		resultPath, err = s.downloadSingle(ctx, video, plan, finalPath, m, cleanup)
	}
	if err != nil {
		return err
	}

	if !media.IsMediaFile(resultPath) {
		utils.Debug("task %s: %s does not sniff as a media file", task.ID, resultPath)
	}

	task.setFinalPath(resultPath)
	task.setProgress(1)
	if err := task.transition(StatusCompleted); err != nil {
		return media.WrapCategory(media.CategoryUnknown, err)
	}
	s.finish(events.CompletedMsg{
		TaskID:  task.ID,
		Path:    resultPath,
		Total:   m.Current(),
		Elapsed: time.Since(start),
	})
	return nil
}

// downloadSingle handles plans with one stream: a progressive format or a
// lone audio track, with optional mp3 extraction.
func (s *Session) downloadSingle(ctx context.Context, video *media.Video, plan media.Plan, finalPath string, m *meter, cleanup *tempSet) (string, error) {
	format := plan.Muxed
	if format == nil {
		format = plan.Audio
	}

	tmp := finalPath + IncompleteSuffix
	cleanup.add(tmp)
	if err := s.downloadStream(ctx, video, format, tmp, m); err != nil {
		return "", err
	}

	if s.task.Format == config.FormatMP3 {
		return s.extractMP3(video, format, tmp, finalPath, cleanup)
	}

	if err := finalize(tmp, finalPath); err != nil {
		return "", err
	}
	cleanup.forget(tmp)
	return finalPath, nil
}

// downloadAndMerge fetches separate video and audio streams and muxes them.
// When the merge step fails, both streams are kept in the target directory
// so the user is not left with nothing.
func (s *Session) downloadAndMerge(ctx context.Context, video *media.Video, plan media.Plan, finalPath string, m *meter, cleanup *tempSet) (string, error) {
	base := finalPath[:len(finalPath)-len(filepath.Ext(finalPath))]
	videoTmp := base + ".video" + IncompleteSuffix
	audioTmp := base + ".audio" + IncompleteSuffix
	cleanup.add(videoTmp, audioTmp)

	if err := s.downloadStream(ctx, video, plan.Video, videoTmp, m); err != nil {
		return "", err
	}
	if err := s.downloadStream(ctx, video, plan.Audio, audioTmp, m); err != nil {
		return "", err
	}

	if err := s.task.transition(StatusMerging); err != nil {
		return "", media.WrapCategory(media.CategoryUnknown, err)
	}
	s.send(ctx, events.MergingMsg{TaskID: s.task.ID})

	mergeErr := media.Errorf(media.CategoryMerge, "ffmpeg not available")
	mergedTmp := finalPath + IncompleteSuffix
	if s.opts.Merger.Available() {
		cleanup.add(mergedTmp)
		mergeErr = s.opts.Merger.Merge(videoTmp, audioTmp, mergedTmp)
	}
	if mergeErr != nil {
		// Preserve the separate streams under their real extensions before
		// surfacing the failure.
		keptVideo := utils.UniquePath(base + ".video." + plan.Video.Ext())
		keptAudio := utils.UniquePath(base + ".audio." + plan.Audio.Ext())
		if err := os.Rename(videoTmp, keptVideo); err == nil {
			cleanup.forget(videoTmp)
		}
		if err := os.Rename(audioTmp, keptAudio); err == nil {
			cleanup.forget(audioTmp)
		}
		return "", mergeErr
	}

	cleanup.removeOnly(videoTmp, audioTmp)
	if err := finalize(mergedTmp, finalPath); err != nil {
		return "", err
	}
	cleanup.forget(mergedTmp)
	return finalPath, nil
}

// extractMP3 re-encodes the downloaded source into mp3 and tags it.
func (s *Session) extractMP3(video *media.Video, format *media.Format, srcTmp, finalPath string, cleanup *tempSet) (string, error) {
	if !s.opts.Merger.Available() {
		// No ffmpeg: deliver the source container under its real extension
		// instead of failing.
		alt := utils.UniquePath(finalPath[:len(finalPath)-len(filepath.Ext(finalPath))] + "." + format.Ext())
		if err := finalize(srcTmp, alt); err != nil {
			return "", err
		}
		cleanup.forget(srcTmp)
		return alt, nil
	}

	mp3Tmp := finalPath + IncompleteSuffix
	cleanup.add(mp3Tmp)
	if err := s.opts.Merger.ExtractAudio(srcTmp, mp3Tmp); err != nil {
		return "", err
	}
	cleanup.removeOnly(srcTmp)

	if err := finalize(mp3Tmp, finalPath); err != nil {
		return "", err
	}
	cleanup.forget(mp3Tmp)
	if err := media.EmbedAudioTags(finalPath, video.Title, video.Author); err != nil {
		utils.Debug("task %s: tag embedding failed: %v", s.task.ID, err)
	}
	return finalPath, nil
}

// downloadStream copies one stream to path, checking for cancellation
// between chunks and retrying transient failures from the beginning.
func (s *Session) downloadStream(ctx context.Context, video *media.Video, format *media.Format, path string, m *meter) error {
	base := m.Current()
	return media.WithRetry(ctx, s.opts.Retry, func() error {
		m.Rewind(base)

		stream, _, err := s.opts.Resolver.OpenStream(ctx, video, format)
		if err != nil {
			return err
		}
		defer stream.Close()

		out, err := os.Create(path)
		if err != nil {
			return media.WrapCategory(media.CategoryIO, err)
		}

		buf := make([]byte, copyBufferSize)
		for {
			// Cooperative cancellation between chunk transfers.
			select {
			case <-ctx.Done():
				out.Close()
				return media.WrapCategory(media.CategoryCancelled, ctx.Err())
			default:
			}

			nr, readErr := stream.Read(buf)
			if nr > 0 {
				nw, writeErr := out.Write(buf[:nr])
				if nw > 0 {
					m.Add(nw)
				}
				if writeErr != nil {
					out.Close()
					return media.WrapCategory(media.CategoryIO, writeErr)
				}
				if nr != nw {
					out.Close()
					return media.WrapCategory(media.CategoryIO, io.ErrShortWrite)
				}
			}
			if readErr != nil {
				if readErr == io.EOF {
					break
				}
				out.Close()
				return media.WrapCategory(media.CategoryNetwork, readErr)
			}
		}

		if err := out.Sync(); err != nil {
			out.Close()
			return media.WrapCategory(media.CategoryIO, err)
		}
		return media.WrapCategory(media.CategoryIO, out.Close())
	})
}

// filename derives the destination file name from the video title and plan.
func (s *Session) filename(video *media.Video, plan media.Plan) string {
	name := utils.SanitizeFilename(video.Title)
	if name == "download" && video.ID != "" {
		name = video.ID
	}

	ext := "mp4"
	switch {
	case s.task.Format == config.FormatMP3:
		ext = "mp3"
	case plan.NeedsMerge():
		ext = "mp4" // ffmpeg muxes into mp4
	case plan.Muxed != nil:
		ext = plan.Muxed.Ext()
	case plan.Audio != nil:
		ext = plan.Audio.Ext()
	}
	return fmt.Sprintf("%s.%s", name, ext)
}

// send delivers a lifecycle event, giving up only when the context ends.
func (s *Session) send(ctx context.Context, ev any) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

// finish delivers a terminal event. Terminal events are never dropped.
func (s *Session) finish(ev any) {
	if s.opts.onFinish != nil {
		s.opts.onFinish(s.task)
	}
	s.events <- ev
}

// finalize atomically moves a finished temp file to its destination.
func finalize(tmp, dest string) error {
	if err := os.Rename(tmp, dest); err != nil {
		return media.WrapCategory(media.CategoryIO, err)
	}
	return nil
}

func planTotal(plan media.Plan) int64 {
	var total int64
	for _, f := range []*media.Format{plan.Muxed, plan.Video, plan.Audio} {
		if f == nil {
			continue
		}
		if f.ContentLength <= 0 {
			return 0 // any unknown stream makes the total indeterminate
		}
		total += f.ContentLength
	}
	return total
}

func kindFor(format string) media.Kind {
	switch format {
	case config.FormatMP3:
		return media.KindAudio
	case config.FormatVideoOnly:
		return media.KindVideoOnly
	default:
		return media.KindVideo
	}
}

// tempSet tracks temp files that must not survive a failed or cancelled run.
type tempSet struct {
	paths map[string]struct{}
}

func newTempSet() *tempSet {
	return &tempSet{paths: make(map[string]struct{})}
}

func (ts *tempSet) add(paths ...string) {
	for _, p := range paths {
		ts.paths[p] = struct{}{}
	}
}

func (ts *tempSet) forget(path string) {
	delete(ts.paths, path)
}

// removeOnly deletes the given files now and stops tracking them.
func (ts *tempSet) removeOnly(paths ...string) {
	for _, p := range paths {
		_ = os.Remove(p)
		delete(ts.paths, p)
	}
}

func (ts *tempSet) removeAll() {
	for p := range ts.paths {
		_ = os.Remove(p)
	}
	ts.paths = make(map[string]struct{})
}
