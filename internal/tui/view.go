package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ytgrab/ytgrab/internal/utils"
)

func (m RootModel) View() string {
	var body string
	switch m.state {
	case InputState:
		body = m.viewInput()
	case HistoryState:
		body = m.viewHistory()
	default:
		body = m.viewDashboard()
	}

	title := TitleStyle.Render("ytgrab")
	return AppStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, body))
}

func (m RootModel) viewDashboard() string {
	if len(m.rows) == 0 {
		empty := SubtextStyle.Render("No downloads yet. Press 'a' to add a URL.")
		return lipgloss.JoinVertical(lipgloss.Left, empty, m.helpLine())
	}

	var b strings.Builder
	for i, r := range m.rows {
		b.WriteString(m.renderRow(r, i == m.cursor))
		b.WriteString("\n")
	}
	b.WriteString(m.helpLine())
	return b.String()
}

func (m RootModel) renderRow(r *DownloadRow, selected bool) string {
	name := r.Title
	if name == "" {
		name = r.URL
	}
	nameStyle := ItemStyle
	if selected {
		nameStyle = SelectedItemStyle
	}

	var status string
	switch {
	case r.cancelled:
		status = WarningStyle.Render("cancelled")
	case r.err != nil:
		status = ErrorStyle.Render("failed: " + r.err.Error())
	case r.done:
		status = SuccessStyle.Render(fmt.Sprintf("done in %s (%s)",
			r.Elapsed.Round(100*time.Millisecond), utils.ConvertBytesToHumanReadable(r.Downloaded)))
	case r.merging:
		status = WarningStyle.Render("merging streams...")
	case r.Title == "":
		status = SubtextStyle.Render("fetching metadata...")
	default:
		status = SubtextStyle.Render(fmt.Sprintf("%s / %s  %.1f MB/s",
			utils.ConvertBytesToHumanReadable(r.Downloaded),
			utils.ConvertBytesToHumanReadable(r.Total),
			r.Speed/Megabyte))
	}

	lines := []string{nameStyle.Render(name), status}
	if !r.done && r.Title != "" && !r.merging {
		lines = append(lines, r.progress.View())
	}
	return PanelStyle.Render(strings.Join(lines, "\n"))
}

func (m RootModel) viewInput() string {
	var b strings.Builder
	b.WriteString(SubtextStyle.Render("Paste a video URL and press enter:"))
	b.WriteString("\n")
	b.WriteString(FocusedPanelStyle.Render(m.urlInput.View()))
	if m.inputErr != "" {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render(m.inputErr))
	}
	b.WriteString(HelpStyle.Render("\nenter: start download   esc: back"))
	return b.String()
}

func (m RootModel) viewHistory() string {
	if len(m.histEntries) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left,
			SubtextStyle.Render("History is empty."),
			HelpStyle.Render("esc: back"))
	}

	var b strings.Builder
	for i, e := range m.histEntries {
		marker := "  "
		style := ItemStyle
		if i == m.histCursor {
			marker = "> "
			style = SelectedItemStyle
		}
		status := SuccessStyle.Render(e.Status)
		if e.Status != "completed" {
			status = ErrorStyle.Render(e.Status)
		}
		title := e.Title
		if title == "" {
			title = e.URL
		}
		fmt.Fprintf(&b, "%s%s  %s  %s\n",
			marker, style.Render(title), status,
			SubtextStyle.Render(e.CreatedAt.Local().Format("2006-01-02 15:04")))
	}
	b.WriteString(HelpStyle.Render("d: delete entry   esc: back"))
	return b.String()
}

func (m RootModel) helpLine() string {
	return HelpStyle.Render("a: add   c: cancel   h: history   j/k: move   q: quit")
}
