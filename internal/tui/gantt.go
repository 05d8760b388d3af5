// Package tui renders a scheduling result as a navigable gantt chart,
// grounded on the teacher's internal/cli view models: a tea.Model holding
// a cursor into a slice of rows, updated on key messages, rendered by a
// View method that builds a strings.Builder line by line.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kestrel-labs/rcpsched/internal/cli/formatter"
	"github.com/kestrel-labs/rcpsched/internal/domain"
)

const dayColumnWidth = 1

// keyMap lists the gantt viewer's bindings, in the teacher's
// View.ShortHelp idiom of a key.Binding per action.
type keyMap struct {
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultKeyMap = keyMap{
	Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
	Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
	Quit: key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Model is a bubbletea model that renders an AlgorithmResult's scheduled
// tasks as a gantt chart, one row per task, one column per day.
type Model struct {
	tasks     []domain.ScheduledTask
	cursor    int
	rangeFrom time.Time
	rangeTo   time.Time
	width     int
	height    int
	keys      keyMap
	help      help.Model
}

// New builds a gantt Model from a scheduling result. If the result has no
// scheduled tasks, the chart renders an empty-state message.
func New(result domain.AlgorithmResult) Model {
	m := Model{tasks: result.ScheduledTasks, keys: defaultKeyMap, help: help.New()}
	for _, t := range m.tasks {
		if m.rangeFrom.IsZero() || t.StartDate.Before(m.rangeFrom) {
			m.rangeFrom = t.StartDate
		}
		if t.EndDate.After(m.rangeTo) {
			m.rangeTo = t.EndDate
		}
	}
	return m
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.tasks)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) View() string {
	if len(m.tasks) == 0 {
		return "\n  " + formatter.Dim("No scheduled tasks.") + "\n"
	}

	totalDays := int(m.rangeTo.Sub(m.rangeFrom).Hours()/24) + 1
	if totalDays < 1 {
		totalDays = 1
	}

	var b strings.Builder
	b.WriteString("\n  ")
	b.WriteString(formatter.Dim(fmt.Sprintf("%s → %s (%d days)\n\n",
		m.rangeFrom.Format("2006-01-02"), m.rangeTo.Format("2006-01-02"), totalDays)))
	for i, t := range m.tasks {
		cursor := "  "
		nameStyle := formatter.StyleFg
		if i == m.cursor {
			cursor = formatter.StyleGreen.Render("▸ ")
			nameStyle = formatter.StyleBold
		}

		offset := int(t.StartDate.Sub(m.rangeFrom).Hours() / 24)
		span := int(t.EndDate.Sub(t.StartDate).Hours()/24) + 1
		if span < 1 {
			span = 1
		}

		bar := strings.Repeat(" ", offset*dayColumnWidth) + strings.Repeat("█", span*dayColumnWidth)
		barStyle := formatter.StyleBlue
		if t.Late {
			barStyle = formatter.StyleRed
		}

		b.WriteString(fmt.Sprintf("%s%-16s %s %s\n",
			cursor,
			nameStyle.Render(truncate(t.TaskID, 16)),
			barStyle.Render(bar),
			formatter.Dim(t.StartDate.Format("2006-01-02")),
		))
	}

	b.WriteString("\n  ")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

func truncate(s string, width int) string {
	if len(s) > width {
		return s[:width-1] + "…"
	}
	return s
}
