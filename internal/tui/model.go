// Package tui provides the Bubble Tea racing interface.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/mathrally/internal/achievement"
	"github.com/verte-zerg/mathrally/internal/game"
	"github.com/verte-zerg/mathrally/internal/strike"
)

const maxToasts = 3

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E8572A")).Bold(true)
	textStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	optionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	questionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true).Padding(1, 4).Border(lipgloss.RoundedBorder(), true).BorderForeground(lipgloss.Color("#4A4A4A"))
	storyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#D0D0D0"))
	numberStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	correctStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	wrongStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	invalidStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAAD14"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAAD14"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	toastStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD666")).Bold(true)
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// Model implements the Bubble Tea game UI on top of a game controller.
type Model struct {
	ctrl    *game.Controller
	catalog *achievement.Catalog
	input   textinput.Model

	width  int
	height int

	toasts []achievement.Achievement
}

// NewModel constructs the game TUI.
func NewModel(ctrl *game.Controller, catalog *achievement.Catalog) *Model {
	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 12
	input.Focus()
	m := &Model{ctrl: ctrl, catalog: catalog, input: input}
	m.collectUnlocks()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit(m.input.Value())
		case tea.KeyRunes:
			// Menus react to a single digit without Enter.
			if isMenuState(m.ctrl.State()) && len(msg.Runes) == 1 && msg.Runes[0] >= '0' && msg.Runes[0] <= '9' {
				return m.submit(string(msg.Runes))
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submit(value string) (tea.Model, tea.Cmd) {
	state := m.ctrl.Advance(value)
	m.input.Reset()
	m.toasts = nil
	m.collectUnlocks()
	if state == game.StateExit {
		return m, tea.Quit
	}
	return m, nil
}

// collectUnlocks moves fresh unlocks into the toast list.
func (m *Model) collectUnlocks() {
	unlocked := m.catalog.DrainRecentUnlocks()
	if !m.ctrl.Profile().Settings.ShowAchievementNotifications {
		return
	}
	m.toasts = append(m.toasts, unlocked...)
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
}

func isMenuState(s game.State) bool {
	switch s {
	case game.StateMenu, game.StateModeSelection, game.StateMathSelection, game.StateSeriesSelection,
		game.StateStageComplete, game.StateGameOver:
		return true
	default:
		return false
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	v := m.ctrl.View()
	content := m.renderContent(v)
	footer := m.renderFooter(v)
	if m.width == 0 || m.height == 0 {
		return content + "\n" + footer
	}
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	return body + "\n" + lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
}

func (m *Model) contentWidth() int {
	w := int(float64(m.width) * 0.70)
	if w < 20 {
		w = 60
	}
	return w
}

func (m *Model) renderContent(v game.View) string {
	parts := []string{titleStyle.Render(v.Title)}
	if v.Error != "" {
		parts = append(parts, errorStyle.Render("Something went wrong: "+v.Error))
	}
	switch v.State {
	case game.StatePlaying:
		parts = append(parts, m.renderPlaying(v)...)
	case game.StateCarRepair:
		parts = append(parts, wrongStyle.Render(strings.Join(v.Lines, "\n")))
		parts = append(parts, wrapStyledRunes(styleStory(v.Story), m.contentWidth()))
		if v.StoryContext != "" {
			parts = append(parts, footerStyle.Render(v.StoryContext))
		}
		parts = append(parts, v.Prompt, m.input.View())
	default:
		if len(v.Lines) > 0 {
			parts = append(parts, textStyle.Render(strings.Join(v.Lines, "\n")))
		}
		if len(v.Options) > 0 {
			opts := make([]string, len(v.Options))
			for i, o := range v.Options {
				opts[i] = optionStyle.Render(fmt.Sprintf("%d. %s", i+1, o))
			}
			parts = append(parts, strings.Join(opts, "\n"))
		}
		if v.Prompt != "" {
			parts = append(parts, footerStyle.Render(v.Prompt))
		}
		if v.State != game.StateExit {
			parts = append(parts, m.input.View())
		}
	}
	if v.Notice != "" {
		parts = append(parts, noticeStyle.Render(v.Notice))
	}
	for _, a := range m.toasts {
		parts = append(parts, toastStyle.Render(fmt.Sprintf("%s Achievement unlocked: %s (%s, +%d)", a.Icon, a.Title, a.Rarity.DisplayName(), a.Points)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, interleave(parts)...)
}

func (m *Model) renderPlaying(v game.View) []string {
	progress := fmt.Sprintf("Question %d/%d", v.QuestionIndex, v.StageLength)
	if v.Continuing {
		progress += "  (back in the race)"
	}
	parts := []string{
		footerStyle.Render(progress),
		questionStyle.Render(v.Question),
		m.input.View(),
	}
	if v.Feedback != "" {
		parts = append(parts, outcomeStyle(v.Outcome).Render(v.Feedback))
	}
	if len(v.Lines) > 0 {
		parts = append(parts, strikeStyle(v.StrikeLevel).Render(strings.Join(v.Lines, "\n")))
	}
	return parts
}

func (m *Model) renderFooter(v game.View) string {
	hud := v.HUD
	segments := []string{
		fmt.Sprintf("Accuracy %.1f%%", hud.Accuracy),
		fmt.Sprintf("Streak %d", hud.Streak),
		fmt.Sprintf("Best %d", hud.BestStreak),
		fmt.Sprintf("Stages %d", hud.StagesCompleted),
	}
	if hud.Comebacks > 0 {
		segments = append(segments, fmt.Sprintf("Comebacks %d", hud.Comebacks))
	}
	if v.State == game.StatePlaying || v.State == game.StateCarRepair {
		segments = append(segments, "Car: "+v.StrikeLevel.Status())
	}
	return footerStyle.Render(strings.Join(segments, " · "))
}

func outcomeStyle(o game.Outcome) lipgloss.Style {
	switch o {
	case game.OutcomeCorrect:
		return correctStyle
	case game.OutcomeInvalid:
		return invalidStyle
	default:
		return wrongStyle
	}
}

func strikeStyle(l strike.Level) lipgloss.Style {
	if l >= strike.Moderate {
		return wrongStyle
	}
	return invalidStyle
}

// interleave separates blocks with blank lines.
func interleave(parts []string) []string {
	out := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			out = append(out, "")
		}
		out = append(out, p)
	}
	return out
}
