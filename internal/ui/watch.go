// Package ui renders the live tracking view of `tasktrack watch`.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/actionsum/tasktrack/internal/activity"
	"github.com/actionsum/tasktrack/internal/control"
	"github.com/actionsum/tasktrack/pkg/utils"
)

// Port is the tracker's command surface as the watch view uses it.
type Port interface {
	Status(ctx context.Context) (*activity.Status, error)
	Pause(ctx context.Context) (*control.Response, error)
	Resume(ctx context.Context) (*control.Response, error)
	Stop(ctx context.Context) (*control.Response, error)
}

type statusMsg struct {
	status *activity.Status
	err    error
}

type commandMsg struct {
	op   string
	resp *control.Response
	err  error
}

type refreshMsg time.Time

// Model polls the tracker and renders its live stats.
type Model struct {
	port     Port
	interval time.Duration

	status     *activity.Status
	err        error
	statusLine string
	spinner    spinner.Model
	width      int
}

// New builds a watch model refreshing every interval.
func New(port Port, interval time.Duration) Model {
	if interval <= 0 {
		interval = time.Second
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accent)

	return Model{
		port:     port,
		interval: interval,
		spinner:  sp,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(), m.spinner.Tick, m.refreshCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case statusMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
		}

	case refreshMsg:
		return m, tea.Batch(m.fetchCmd(), m.refreshCmd())

	case commandMsg:
		switch {
		case msg.err != nil:
			m.statusLine = msg.op + " failed: " + msg.err.Error()
		case msg.resp.Ignored:
			m.statusLine = msg.op + " ignored: " + msg.resp.Reason
		default:
			m.statusLine = msg.op + " ok"
		}
		if msg.resp != nil {
			st := msg.resp.Status
			m.status = &st
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "p":
			return m, m.commandCmd("pause", m.port.Pause)
		case "r":
			return m, m.commandCmd("resume", m.port.Resume)
		case "s":
			return m, m.commandCmd("stop", m.port.Stop)
		}
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("tasktrack"))
	b.WriteString("\n\n")

	switch {
	case m.status == nil && m.err != nil:
		b.WriteString(errorStyle.Render("tracker unreachable: " + m.err.Error()))
	case m.status == nil:
		b.WriteString(m.spinner.View() + " connecting to tracker…")
	default:
		b.WriteString(m.renderStatus())
		if m.err != nil {
			b.WriteString("\n" + errorStyle.Render("last refresh failed: "+m.err.Error()))
		}
	}

	if m.statusLine != "" {
		b.WriteString("\n\n" + mutedStyle.Render(m.statusLine))
	}
	b.WriteString("\n\n" + mutedStyle.Render("p pause · r resume · s stop · q quit"))

	return paneStyle.Render(b.String()) + "\n"
}

func (m Model) renderStatus() string {
	st := m.status
	rows := []string{
		row("State", stateStyle(st.State.String()).Render(st.State.String())),
	}

	if st.TaskID != 0 {
		rows = append(rows, row("Task", fmt.Sprintf("#%d (project %d)", st.TaskID, st.ProjectID)))
	}
	rows = append(rows,
		row("Mouse", fmt.Sprintf("%d", st.MouseTotal)),
		row("Keyboard", fmt.Sprintf("%d", st.KeyboardTotal)),
	)

	if st.BlockID != "" {
		rows = append(rows, row("Block", minuteBar(st.MinuteIndex, st.RecordedMinutes)))
	}

	var last *int
	if st.LastScore != nil {
		p := st.LastScore.ActivityPercentage
		last = &p
	}
	rows = append(rows,
		row("Last block", utils.FormatPercent(last)),
		row("Tracked", utils.FormatHours(st.ElapsedHours)),
		row("Actual hours", utils.FormatHours(st.ActualHours)),
	)

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
}

// minuteBar draws the block's minute slots, filled up to the current minute.
func minuteBar(minute, recorded int) string {
	if minute > activity.BlockMinutes {
		minute = activity.BlockMinutes
	}
	bar := strings.Repeat("■", minute) + strings.Repeat("□", activity.BlockMinutes-minute)
	return fmt.Sprintf("%s %d/%d (%d recorded)", bar, minute, activity.BlockMinutes, recorded)
}

func (m Model) fetchCmd() tea.Cmd {
	port := m.port
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		st, err := port.Status(ctx)
		return statusMsg{status: st, err: err}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m Model) commandCmd(op string, fn func(context.Context) (*control.Response, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		resp, err := fn(ctx)
		return commandMsg{op: op, resp: resp, err: err}
	}
}

// Run starts the watch view on the terminal and blocks until it exits.
func Run(port Port, interval time.Duration) error {
	_, err := tea.NewProgram(New(port, interval)).Run()
	return err
}
