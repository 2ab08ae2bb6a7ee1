package tui

import (
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ytgrab/ytgrab/internal/events"
	"github.com/ytgrab/ytgrab/internal/history"
	"github.com/ytgrab/ytgrab/internal/session"
	"github.com/ytgrab/ytgrab/internal/utils"
	"github.com/ytgrab/ytgrab/internal/validate"
)

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for _, r := range m.rows {
			r.progress.Width = m.width - ProgressBarWidthOffset
		}

	case tea.KeyMsg:
		return m.handleKey(msg)

	case events.FetchingMsg:
		if r := m.rowByTask(msg.TaskID); r != nil {
			r.URL = msg.URL
		}
		cmds = append(cmds, listenForEvents(m.eventCh))

	case events.StartedMsg:
		if r := m.rowByTask(msg.TaskID); r != nil {
			r.Title = msg.Title
			r.Filename = msg.Filename
			r.Total = msg.Total
		}
		cmds = append(cmds, listenForEvents(m.eventCh))

	case events.ProgressMsg:
		if r := m.rowByTask(msg.TaskID); r != nil && !r.done {
			r.Downloaded = msg.Downloaded
			r.Speed = msg.Speed
			r.Elapsed = time.Since(r.StartTime)
			if msg.Fraction >= 0 {
				cmds = append(cmds, r.progress.SetPercent(msg.Fraction))
			}
		}
		cmds = append(cmds, listenForEvents(m.eventCh))

	case events.MergingMsg:
		if r := m.rowByTask(msg.TaskID); r != nil {
			r.merging = true
		}
		cmds = append(cmds, listenForEvents(m.eventCh))

	case events.CompletedMsg:
		if r := m.rowByTask(msg.TaskID); r != nil {
			r.done = true
			r.merging = false
			r.Downloaded = msg.Total
			r.Elapsed = msg.Elapsed
			cmds = append(cmds, r.progress.SetPercent(1.0))
			m.recordHistory(r, "completed", msg.Path)
		}
		cmds = append(cmds, listenForEvents(m.eventCh))

	case events.CancelledMsg:
		if r := m.rowByTask(msg.TaskID); r != nil {
			r.done = true
			r.cancelled = true
		}
		cmds = append(cmds, listenForEvents(m.eventCh))

	case events.FailedMsg:
		if r := m.rowByTask(msg.TaskID); r != nil {
			r.done = true
			r.err = msg.Err
			m.recordHistory(r, "failed", "")
		}
		cmds = append(cmds, listenForEvents(m.eventCh))

	case progress.FrameMsg:
		for _, r := range m.rows {
			pm, cmd := r.progress.Update(msg)
			r.progress = pm.(progress.Model)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m RootModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case InputState:
		return m.handleInputKey(msg)
	case HistoryState:
		return m.handleHistoryKey(msg)
	default:
		return m.handleDashboardKey(msg)
	}
}

func (m RootModel) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.registry.CancelAll()
		return m, tea.Quit

	case "a", "n":
		m.state = InputState
		m.inputErr = ""
		m.urlInput.SetValue("")
		if m.cfg.General.ClipboardPaste {
			if url := clipboardURL(); url != "" {
				m.urlInput.SetValue(url)
			}
		}
		m.urlInput.Focus()
		return m, textinput.Blink

	case "h":
		m.state = HistoryState
		m.histCursor = 0
		m.loadHistory()
		return m, nil

	case "c", "x":
		if m.cursor < len(m.rows) {
			row := m.rows[m.cursor]
			if !row.done {
				m.registry.Cancel(row.TaskID)
			}
		}
		return m, nil

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
		return m, nil
	}
	return m, nil
}

func (m RootModel) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state = DashboardState
		return m, nil

	case "enter":
		ref, err := validate.Validate(m.urlInput.Value())
		if err != nil {
			m.inputErr = "not a recognized video URL"
			return m, nil
		}
		if err := m.startDownload(ref); err != nil {
			m.inputErr = err.Error()
			return m, nil
		}
		m.state = DashboardState
		return m, nil
	}

	var cmd tea.Cmd
	m.urlInput, cmd = m.urlInput.Update(msg)
	return m, cmd
}

func (m RootModel) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "h", "q":
		m.state = DashboardState
		return m, nil

	case "up", "k":
		if m.histCursor > 0 {
			m.histCursor--
		}
		return m, nil

	case "down", "j":
		if m.histCursor < len(m.histEntries)-1 {
			m.histCursor++
		}
		return m, nil

	case "d", "backspace":
		if m.hist != nil && m.histCursor < len(m.histEntries) {
			if _, err := m.hist.Remove(m.histEntries[m.histCursor].ID); err == nil {
				m.loadHistory()
				if m.histCursor >= len(m.histEntries) && m.histCursor > 0 {
					m.histCursor--
				}
			}
		}
		return m, nil
	}
	return m, nil
}

// startDownload registers a task and pumps its session events into the
// program's event channel.
func (m *RootModel) startDownload(ref validate.VideoRef) error {
	// One transfer at a time; finished rows stay on screen.
	for _, r := range m.rows {
		if !r.done {
			return errors.New("a download is already in progress")
		}
	}

	task := session.NewTask(ref, m.cfg.General.DownloadDir, m.cfg.General.Quality, m.cfg.General.Format)
	ch, err := m.registry.Start(m.ctx, task, m.opts)
	if err != nil {
		return err
	}

	row := newDownloadRow(task.ID, ref.URL)
	row.progress.Width = m.width - ProgressBarWidthOffset
	m.rows = append(m.rows, row)

	go func() {
		for ev := range ch {
			m.eventCh <- ev
		}
	}()
	return nil
}

func (m *RootModel) loadHistory() {
	if m.hist == nil {
		m.histEntries = nil
		return
	}
	entries, err := m.hist.List(0)
	if err != nil {
		utils.Debug("loading history: %v", err)
		return
	}
	m.histEntries = entries
}

func (m *RootModel) recordHistory(r *DownloadRow, status, path string) {
	if m.hist == nil {
		return
	}
	err := m.hist.Add(history.Entry{
		URL:      r.URL,
		Title:    r.Title,
		FilePath: path,
		Status:   status,
	})
	if err != nil {
		utils.Debug("recording history: %v", err)
	}
}
