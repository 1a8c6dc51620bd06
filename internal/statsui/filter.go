package statsui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/mathrally/internal/model"
)

const (
	fieldSince = iota
	fieldLast
	fieldWindow
)

// filterForm edits the archive filter in place of the dashboard body.
type filterForm struct {
	open   bool
	fields []textinput.Model
	focus  int
	err    string
}

func newFilterForm() filterForm {
	prompts := []string{"Since (YYYY-MM-DD): ", "Last N sessions: ", "Curve window: "}
	f := filterForm{fields: make([]textinput.Model, len(prompts))}
	for i, prompt := range prompts {
		in := textinput.New()
		in.Prompt = prompt
		in.Cursor.SetMode(cursor.CursorBlink)
		f.fields[i] = in
	}
	return f
}

// show fills the fields from filter and focuses the first one.
func (f *filterForm) show(filter model.ArchiveFilter) tea.Cmd {
	since, last := "", ""
	if filter.Since != nil {
		since = filter.Since.Format("2006-01-02")
	}
	if filter.Last > 0 {
		last = strconv.Itoa(filter.Last)
	}
	f.fields[fieldSince].SetValue(since)
	f.fields[fieldLast].SetValue(last)
	f.fields[fieldWindow].SetValue(strconv.Itoa(filter.CurveWindow))
	f.open = true
	f.err = ""
	return f.focusField(0)
}

func (f *filterForm) hide() {
	f.open = false
	f.err = ""
}

func (f *filterForm) focusField(idx int) tea.Cmd {
	n := len(f.fields)
	f.focus = (idx%n + n) % n
	var cmd tea.Cmd
	for i := range f.fields {
		if i != f.focus {
			f.fields[i].Blur()
			continue
		}
		cmd = f.fields[i].Focus()
	}
	return cmd
}

func (f *filterForm) setWidth(width int) {
	for i := range f.fields {
		f.fields[i].Width = max(10, width-lipgloss.Width(f.fields[i].Prompt)-2)
	}
}

// update routes a key to the focused field. done reports that enter was
// pressed and the fields parsed.
func (f *filterForm) update(msg tea.KeyMsg, profileID string) (filter model.ArchiveFilter, done bool, cmd tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		f.hide()
		return filter, false, nil
	case tea.KeyEnter:
		parsed, err := f.parse(profileID)
		if err != nil {
			f.err = err.Error()
			return filter, false, nil
		}
		f.hide()
		return parsed, true, nil
	case tea.KeyTab, tea.KeyDown:
		return filter, false, f.focusField(f.focus + 1)
	case tea.KeyShiftTab, tea.KeyUp:
		return filter, false, f.focusField(f.focus - 1)
	}
	f.fields[f.focus], cmd = f.fields[f.focus].Update(msg)
	return filter, false, cmd
}

// parse validates the fields. An empty curve window means no smoothing.
func (f *filterForm) parse(profileID string) (model.ArchiveFilter, error) {
	filter := model.ArchiveFilter{ProfileID: profileID, CurveWindow: 1}
	if raw := strings.TrimSpace(f.fields[fieldSince].Value()); raw != "" {
		since, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return model.ArchiveFilter{}, fmt.Errorf("since must look like 2025-03-01")
		}
		filter.Since = &since
	}
	if raw := strings.TrimSpace(f.fields[fieldLast].Value()); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return model.ArchiveFilter{}, fmt.Errorf("last must be 0 or a positive number of sessions")
		}
		filter.Last = n
	}
	if raw := strings.TrimSpace(f.fields[fieldWindow].Value()); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return model.ArchiveFilter{}, fmt.Errorf("curve window must be at least 1")
		}
		filter.CurveWindow = n
	}
	return filter, nil
}

func (f *filterForm) view() string {
	lines := []string{"Filter sessions (enter to apply, esc to cancel)"}
	for _, in := range f.fields {
		lines = append(lines, in.View())
	}
	if f.err != "" {
		lines = append(lines, errorStyle.Render(f.err))
	}
	return strings.Join(lines, "\n")
}
