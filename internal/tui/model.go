// Package tui is the interactive terminal front end: a dashboard of active
// downloads, an add-URL dialog, and a history browser.
package tui

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ytgrab/ytgrab/internal/config"
	"github.com/ytgrab/ytgrab/internal/history"
	"github.com/ytgrab/ytgrab/internal/session"
	"github.com/ytgrab/ytgrab/internal/validate"
)

type UIState int

const (
	DashboardState UIState = iota
	InputState
	HistoryState
)

// DownloadRow is the on-screen state of one download task.
type DownloadRow struct {
	TaskID     string
	URL        string
	Title      string
	Filename   string
	Total      int64
	Downloaded int64
	Speed      float64

	StartTime time.Time
	Elapsed   time.Duration

	progress progress.Model

	merging   bool
	done      bool
	cancelled bool
	err       error
}

func newDownloadRow(taskID, url string) *DownloadRow {
	return &DownloadRow{
		TaskID:    taskID,
		URL:       url,
		StartTime: time.Now(),
		progress:  progress.New(progress.WithDefaultGradient()),
	}
}

// RootModel is the bubbletea root. Session events arrive over eventCh and
// are forwarded into the program by listenForEvents.
type RootModel struct {
	ctx      context.Context
	cfg      *config.Settings
	registry *session.Registry
	hist     *history.Store
	opts     session.Options

	state  UIState
	width  int
	height int

	rows    []*DownloadRow
	cursor  int
	eventCh chan tea.Msg

	urlInput textinput.Model
	inputErr string

	histEntries []history.Entry
	histCursor  int
}

// NewRootModel wires the dashboard to a session registry and history store.
// hist may be nil when the history database could not be opened.
func NewRootModel(ctx context.Context, cfg *config.Settings, registry *session.Registry, hist *history.Store, opts session.Options) RootModel {
	ApplyTheme(cfg.General.Theme)

	urlInput := textinput.New()
	urlInput.Placeholder = "https://www.youtube.com/watch?v=..."
	urlInput.Width = InputWidth
	urlInput.Prompt = ""

	return RootModel{
		ctx:      ctx,
		cfg:      cfg,
		registry: registry,
		hist:     hist,
		opts:     opts,
		state:    DashboardState,
		eventCh:  make(chan tea.Msg, EventChannelBuffer),
		urlInput: urlInput,
	}
}

func (m RootModel) Init() tea.Cmd {
	return listenForEvents(m.eventCh)
}

// listenForEvents blocks on the shared event channel and hands the next
// session event to the update loop.
func listenForEvents(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// clipboardURL returns a valid video URL from the system clipboard, or "".
func clipboardURL() string {
	text, err := clipboard.ReadAll()
	if err != nil {
		return ""
	}
	if ref, err := validate.Validate(text); err == nil {
		return ref.URL
	}
	return ""
}

func (m *RootModel) rowByTask(taskID string) *DownloadRow {
	for _, r := range m.rows {
		if r.TaskID == taskID {
			return r
		}
	}
	return nil
}
