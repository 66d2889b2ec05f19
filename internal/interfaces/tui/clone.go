// Package tui renders live clone progress with bubbletea, adapted
// from the teacher's cmd/ghclone tuiModel: a progress bar plus a
// scrolling log pane, driven here by fleetmanager.Manager's registry
// snapshots instead of the teacher's cloning.ProgressTracker.
package tui

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/repofleet/gitfleet/internal/application/fleetmanager"
	"github.com/repofleet/gitfleet/internal/domain/fleet"
	"github.com/repofleet/gitfleet/internal/infrastructure/logging"
)

const logHeight = 8

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#909090"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	busyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAF00"))
	logBoxRule = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)
)

type tickMsg time.Time

type doneMsg struct {
	failures map[string]error
}

// Model drives a bubbletea program rendering Manager's clone progress
// until every registered task reaches a terminal state.
type Model struct {
	ctx     context.Context
	manager *fleetmanager.Manager
	tui     *logging.TUILogger
	owner   string

	bar      progress.Model
	quitting bool
	failures map[string]error
}

// New builds a Model. ctx governs the CloneAll run started at Init.
func New(ctx context.Context, manager *fleetmanager.Manager, tuiLogger *logging.TUILogger, owner string) Model {
	return Model{
		ctx:     ctx,
		manager: manager,
		tui:     tuiLogger,
		owner:   owner,
		bar:     progress.New(progress.WithDefaultGradient()),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.runCloneAll())
}

func (m Model) runCloneAll() tea.Cmd {
	done := make(chan map[string]error, 1)
	go func() {
		done <- m.manager.CloneAll(m.ctx)
	}()
	return func() tea.Msg {
		return doneMsg{failures: <-done}
	}
}

func tick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case doneMsg:
		m.failures = msg.failures
		m.quitting = true
		cmd := m.bar.SetPercent(1.0)
		return m, tea.Batch(cmd, tea.Tick(150*time.Millisecond, func(time.Time) tea.Msg { return tea.Quit() }))

	case tickMsg:
		percent := m.aggregateProgress()
		cmd := m.bar.SetPercent(percent)
		return m, tea.Batch(cmd, tick())

	case progress.FrameMsg:
		newModel, cmd := m.bar.Update(msg)
		m.bar = newModel.(progress.Model)
		return m, cmd

	default:
		return m, nil
	}
}

// aggregateProgress averages completion across every registered task:
// Queued=0, Cloning=its percent, Completed/Failed=100.
func (m Model) aggregateProgress() float64 {
	tasks := m.manager.FetchCloneTasks()
	if len(tasks) == 0 {
		return 0
	}
	var total int
	for _, t := range tasks {
		switch t.Status.Kind() {
		case fleet.StatusCloning:
			p, _ := t.Status.Progress()
			total += p
		case fleet.StatusCompleted, fleet.StatusFailed:
			total += 100
		}
	}
	return float64(total) / float64(len(tasks)*100)
}

func (m Model) View() string {
	if m.quitting {
		return m.renderSummary()
	}

	header := headerStyle.Render(fmt.Sprintf("gitfleet - cloning %s", m.owner))
	bar := m.bar.View()
	rows := m.renderTaskRows()
	logs := m.renderLogs()

	sections := []string{header, "", bar, "", rows}
	if logs != "" {
		sections = append(sections, "", logs)
	}
	sections = append(sections, "", dimStyle.Render("Press 'q' to quit"))

	return lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) renderTaskRows() string {
	tasks := m.manager.FetchCloneTasks()
	urls := make([]string, 0, len(tasks))
	for u := range tasks {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	var lines []string
	for _, u := range urls {
		task := tasks[u]
		var icon string
		var style lipgloss.Style
		switch task.Status.Kind() {
		case fleet.StatusQueued:
			icon, style = "⏳", dimStyle
		case fleet.StatusCloning:
			pct, _ := task.Status.Progress()
			icon, style = fmt.Sprintf("↻ %3d%%", pct), busyStyle
		case fleet.StatusCompleted:
			icon, style = "✓", okStyle
		case fleet.StatusFailed:
			icon, style = "✗", failStyle
		}
		lines = append(lines, style.Render(fmt.Sprintf("%-8s %s", icon, u)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderLogs() string {
	if m.tui == nil {
		return ""
	}
	entries := m.tui.Entries(logHeight)
	if len(entries) == 0 {
		return ""
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, dimStyle.Render(e.String()))
	}
	return logBoxRule.Width(80).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) renderSummary() string {
	tasks := m.manager.FetchCloneTasks()
	completed, failed := 0, 0
	for _, t := range tasks {
		switch t.Status.Kind() {
		case fleet.StatusCompleted:
			completed++
		case fleet.StatusFailed:
			failed++
		}
	}

	var b string
	b += fmt.Sprintf("\nClone run finished: %d completed, %d failed (of %d)\n", completed, failed, len(tasks))
	for url, err := range m.failures {
		b += failStyle.Render(fmt.Sprintf("  %s: %v\n", url, err))
	}
	return b
}
