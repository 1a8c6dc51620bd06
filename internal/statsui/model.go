// Package statsui provides the Bubble Tea parent dashboard.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/mathrally/internal/achievement"
	"github.com/verte-zerg/mathrally/internal/model"
	"github.com/verte-zerg/mathrally/internal/profile"
	"github.com/verte-zerg/mathrally/internal/stats"
)

const (
	tabOverview = iota
	tabOperations
	tabAchievements
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#E8572A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea dashboard.
type Model struct {
	archive stats.Archive
	profile *profile.Profile
	catalog *achievement.Catalog
	filter  model.ArchiveFilter
	now     func() time.Time

	report stats.Report
	errMsg string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	opTable   table.Model

	width  int
	height int

	form filterForm
}

// NewModel constructs a dashboard for one profile.
func NewModel(archive stats.Archive, p *profile.Profile, catalog *achievement.Catalog, filter model.ArchiveFilter) *Model {
	m := &Model{
		archive: archive,
		profile: p,
		catalog: catalog,
		filter:  filter,
		now:     time.Now,
		tabs:    []string{"Overview", "Operations", "Achievements"},
	}
	m.form = newFilterForm()
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.opTable = buildOperationTable(nil, 1)
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (!m.form.open && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.form.open {
			filter, done, cmd := m.form.update(msg, m.filter.ProfileID)
			if done {
				m.filter = filter
				m.refreshReport()
			}
			return m, cmd
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.filter.CurveWindow = nextCurveWindow(m.filter.CurveWindow)
			m.refreshReport()
			return m, nil
		case "-":
			m.filter.CurveWindow = prevCurveWindow(m.filter.CurveWindow)
			m.refreshReport()
			return m, nil
		case "/":
			return m, m.form.show(m.filter)
		default:
			if m.activeTab == tabOperations {
				var cmd tea.Cmd
				m.opTable, cmd = m.opTable.Update(msg)
				return m, cmd
			}
			var cmd tea.Cmd
			m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = lipgloss.Height(activeNavStyle.Render("X")) + 1
	footerHeight = 1
	if !m.form.open && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.opTable.SetWidth(m.width)
	m.opTable.SetHeight(bodyHeight)
	m.form.setWidth(m.width)
}

func (m *Model) moveTab(delta int) {
	next := (m.activeTab + delta + len(m.tabs)) % len(m.tabs)
	m.activeTab = next
	if m.activeTab == tabOperations {
		m.opTable.Focus()
	} else {
		m.opTable.Blur()
	}
}

func (m *Model) renderHeader() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	tabs := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	return fitLines(tabs+"\n"+m.renderFilterSummary(), m.width, 0)
}

func (m *Model) renderFilterSummary() string {
	scope := "all sessions"
	if m.filter.Last > 0 {
		scope = fmt.Sprintf("last %d sessions", m.filter.Last)
	}
	if m.filter.Since != nil {
		scope += " since " + m.filter.Since.Format("2006-01-02")
	}
	summary := fmt.Sprintf("%s  %s  window=%d", m.profile.PlayerName, scope, m.filter.CurveWindow)
	return headerStyle.Render(runewidth.Truncate(summary, m.width, "..."))
}

func (m *Model) renderFooter() string {
	if m.form.open {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Filter: /  Quit: q")
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func (m *Model) renderBody(height int) string {
	if m.form.open {
		return fitLines(m.form.view(), m.width, height)
	}
	if m.activeTab == tabOperations {
		if len(m.report.OpAggsAll) == 0 {
			return fitLines("No operation stats found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.opTable.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.archive, m.filter)
	if err != nil {
		m.errMsg = err.Error()
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	m.errMsg = ""
	m.report = report
	_, bodyHeight, _ := m.layoutHeights()
	m.opTable = buildOperationTable(report.OpAggsAll, bodyHeight)
	if m.activeTab == tabOperations {
		m.opTable.Focus()
	}
	m.updateLayout()
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	var buf bytes.Buffer
	overview := stats.ProfileLines(m.profile, m.now())
	overview = append(overview, "")
	buf.WriteString(strings.Join(overview, "\n"))
	buf.WriteString("\n")
	if err := m.report.Render(&buf, width, m.achievementTitle); err != nil {
		m.errMsg = err.Error()
	}
	m.viewports[tabOverview].SetContent(buf.String())

	gallery := []string{
		fmt.Sprintf("%d of %d unlocked (%.0f%%), %s points",
			len(m.catalog.Unlocked()), len(m.catalog.All()), m.catalog.CompletionPercentage(), humanize.Comma(int64(m.catalog.TotalPoints()))),
		"",
	}
	gallery = append(gallery, stats.GalleryLines(m.catalog.ByCategory())...)
	m.viewports[tabAchievements].SetContent(strings.Join(gallery, "\n"))
}

func (m *Model) achievementTitle(id string) string {
	if a, ok := m.catalog.Get(id); ok {
		return a.Icon + " " + a.Title
	}
	return id
}

func buildOperationTable(aggs []model.OperationAggregate, height int) table.Model {
	columns := []table.Column{
		{Title: "Operation", Width: 16},
		{Title: "Accuracy", Width: 10},
		{Title: "Avg (s)", Width: 9},
		{Title: "Correct", Width: 9},
		{Title: "Incorrect", Width: 10},
	}
	rows := make([]table.Row, 0, len(aggs))
	for _, agg := range aggs {
		label := agg.Operation
		if op, err := model.ParseOperation(agg.Operation); err == nil {
			label = op.Name()
		}
		rows = append(rows, table.Row{
			label,
			fmt.Sprintf("%.1f%%", stats.OperationAccuracy(agg)),
			fmt.Sprintf("%.2f", stats.OperationResponse(agg)),
			humanize.Comma(int64(agg.Correct)),
			humanize.Comma(int64(agg.Incorrect)),
		})
	}
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("#F0F0F0")).Background(lipgloss.Color("#E8572A"))
	return table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(max(height, 1)),
		table.WithStyles(styles),
	)
}

var curveWindows = []int{1, 3, 5, 10, 20, 50}

func nextCurveWindow(n int) int {
	for _, w := range curveWindows {
		if w > n {
			return w
		}
	}
	return curveWindows[len(curveWindows)-1]
}

func prevCurveWindow(n int) int {
	for i := len(curveWindows) - 1; i >= 0; i-- {
		if curveWindows[i] < n {
			return curveWindows[i]
		}
	}
	return curveWindows[0]
}

// fitLines pads every line to width and, when height is positive, clips or
// fills to exactly height lines.
func fitLines(s string, width, height int) string {
	if width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}
	for i, line := range lines {
		if gap := width - lipgloss.Width(line); gap > 0 {
			lines[i] = line + strings.Repeat(" ", gap)
		}
	}
	return strings.Join(lines, "\n")
}
