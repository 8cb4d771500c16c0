// Package tui is the interactive moderation console. Each screen renders its
// view's collection and starts mutations from key presses; collection changes
// and settled mutations come back as messages.
package tui

import (
	"context"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/atvirokodosprendimai/storefront/internal/client/result"
	"github.com/atvirokodosprendimai/storefront/internal/optimistic"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	pendingStyle = lipgloss.NewStyle().Faint(true)
	helpStyle    = lipgloss.NewStyle().Faint(true)
)

type settledMsg struct {
	outcome optimistic.Outcome
}

type refreshedMsg struct {
	err error
}

type rowsMsg struct {
	version uint64
	rows    []table.Row
}

// rowsMailbox holds the newest rows reported by the screen until the program
// picks them up. Writers never block.
type rowsMailbox struct {
	mu     sync.Mutex
	latest rowsMsg
	ready  chan struct{}
}

func newRowsMailbox() *rowsMailbox {
	return &rowsMailbox{ready: make(chan struct{}, 1)}
}

func (b *rowsMailbox) put(version uint64, rows []table.Row) {
	b.mu.Lock()
	if version > b.latest.version {
		b.latest = rowsMsg{version: version, rows: rows}
	}
	b.mu.Unlock()
	select {
	case b.ready <- struct{}{}:
	default:
	}
}

func (b *rowsMailbox) wait() tea.Msg {
	<-b.ready
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}

type Model struct {
	ctx       context.Context
	screen    Screen
	table     table.Model
	rows      *rowsMailbox
	version   uint64
	status    string
	failed    bool
	inFlight  int
	loggedOut bool
}

func NewModel(ctx context.Context, screen Screen) Model {
	t := table.New(
		table.WithColumns(screen.Columns()),
		table.WithRows(screen.Rows()),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	mailbox := newRowsMailbox()
	screen.OnChange(mailbox.put)
	return Model{ctx: ctx, screen: screen, table: t, rows: mailbox}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.rows.wait)
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg{err: m.screen.Refresh(m.ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case rowsMsg:
		if msg.version > m.version {
			m.version = msg.version
			m.table.SetRows(msg.rows)
		}
		return m, m.rows.wait
	case settledMsg:
		m.inFlight--
		m.failed = msg.outcome.State == optimistic.RolledBack || msg.outcome.State == optimistic.Rejected
		m.status = msg.outcome.Message
		if msg.outcome.Kind == result.Unauthorized {
			m.loggedOut = true
			m.status = "Session expired. Run `storefront login` and start the console again."
		}
		return m, nil
	case refreshedMsg:
		if msg.err != nil {
			m.failed = true
			m.status = result.MessageOf(msg.err)
			if result.KindOf(msg.err) == result.Unauthorized {
				m.loggedOut = true
			}
		} else {
			m.failed = false
			m.status = "Loaded"
		}
		return m, nil
	case tea.WindowSizeMsg:
		if h := msg.Height - 6; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		m.screen.Close()
		return m, tea.Quit
	case "g":
		m.status = "Refreshing..."
		m.failed = false
		return m, m.refresh()
	}
	if m.loggedOut {
		return m, nil
	}

	row := m.table.SelectedRow()
	if len(row) > 0 {
		if w, ok := m.screen.Act(m.ctx, key, row[0]); ok {
			m.inFlight++
			return m, func() tea.Msg { return settledMsg{outcome: w()} }
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.screen.Title()))
	b.WriteString("\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.screen.Help()))
	b.WriteString("\n")
	return b.String()
}

func (m Model) statusLine() string {
	line := m.status
	switch {
	case m.failed:
		line = failStyle.Render(line)
	case line != "":
		line = okStyle.Render(line)
	}
	if m.inFlight > 0 {
		line += pendingStyle.Render(" (saving...)")
	}
	return line
}

// Run starts the console on screen and blocks until the user quits.
func Run(ctx context.Context, screen Screen) error {
	_, err := tea.NewProgram(NewModel(ctx, screen), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
