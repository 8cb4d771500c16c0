package tui

import (
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/atvirokodosprendimai/storefront/internal/client/result"
	"github.com/atvirokodosprendimai/storefront/internal/optimistic"
)

type stubScreen struct {
	rows     []table.Row
	acted    []string
	closed   bool
	outcome  optimistic.Outcome
	refreshE error
	version  uint64
	listener func(uint64, []table.Row)
}

func (s *stubScreen) Title() string { return "Stub" }
func (s *stubScreen) Help() string  { return "help" }
func (s *stubScreen) Columns() []table.Column {
	return []table.Column{{Title: "ID", Width: 4}, {Title: "Status", Width: 8}}
}
func (s *stubScreen) Rows() []table.Row                 { return s.rows }
func (s *stubScreen) Refresh(ctx context.Context) error { return s.refreshE }
func (s *stubScreen) Close()                            { s.closed = true }

func (s *stubScreen) OnChange(fn func(uint64, []table.Row)) { s.listener = fn }

func (s *stubScreen) change(rows ...table.Row) {
	s.version++
	s.rows = rows
	s.listener(s.version, rows)
}

func (s *stubScreen) Act(ctx context.Context, key, id string) (wait, bool) {
	if key != "t" {
		return nil, false
	}
	s.acted = append(s.acted, id)
	s.change(table.Row{"p1", "inactive"})
	return func() optimistic.Outcome { return s.outcome }, true
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestToggleKeyActsOnSelectedRowAndSettles(t *testing.T) {
	screen := &stubScreen{
		rows:    []table.Row{{"p1", "active"}},
		outcome: optimistic.Outcome{RecordID: "p1", State: optimistic.Confirmed, Message: "Product status updated"},
	}
	m := NewModel(context.Background(), screen)

	next, cmd := m.Update(runes("t"))
	if cmd == nil {
		t.Fatal("expected a command for the pending mutation")
	}
	m = next.(Model)
	if len(screen.acted) != 1 || screen.acted[0] != "p1" {
		t.Fatalf("unexpected acted ids %v", screen.acted)
	}
	next, listen := m.Update(m.rows.wait())
	m = next.(Model)
	if listen == nil {
		t.Fatal("model must keep listening for row changes")
	}
	if m.inFlight != 1 || m.table.SelectedRow()[1] != "inactive" {
		t.Fatalf("optimistic row not rendered: inFlight=%d row=%v", m.inFlight, m.table.SelectedRow())
	}
	if !strings.Contains(m.View(), "saving") {
		t.Fatal("expected pending marker in view")
	}

	next, _ = m.Update(cmd())
	m = next.(Model)
	if m.inFlight != 0 || m.failed || m.status != "Product status updated" {
		t.Fatalf("unexpected settled model: %+v", m.status)
	}
	if !strings.Contains(m.View(), "Product status updated") {
		t.Fatal("status line missing from view")
	}
}

func TestRolledBackOutcomeIsShownAsFailure(t *testing.T) {
	screen := &stubScreen{
		rows:    []table.Row{{"p1", "active"}},
		outcome: optimistic.Outcome{State: optimistic.RolledBack, Kind: result.ServerRejected, Message: "Not permitted"},
	}
	m := NewModel(context.Background(), screen)
	next, cmd := m.Update(runes("t"))
	next, _ = next.(Model).Update(cmd())
	m = next.(Model)
	if !m.failed || m.status != "Not permitted" {
		t.Fatalf("expected failure status, got %q failed=%v", m.status, m.failed)
	}
}

func TestUnauthorizedRefreshStopsMutations(t *testing.T) {
	screen := &stubScreen{
		rows:     []table.Row{{"p1", "active"}},
		refreshE: result.New(result.Unauthorized, ""),
	}
	m := NewModel(context.Background(), screen)
	next, _ := m.Update(m.Init()())
	m = next.(Model)
	if !m.loggedOut || !m.failed {
		t.Fatalf("expected logged out state, got %+v", m.status)
	}
	m.Update(runes("t"))
	if len(screen.acted) != 0 {
		t.Fatal("mutations must not start after the session expired")
	}
}

func TestQuitClosesScreen(t *testing.T) {
	screen := &stubScreen{rows: []table.Row{{"p1", "active"}}}
	m := NewModel(context.Background(), screen)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
	if !screen.closed {
		t.Fatal("screen should be closed on quit")
	}
}

func TestFormatCents(t *testing.T) {
	if got := formatCents(1999); got != "19.99" {
		t.Fatalf("got %q", got)
	}
	if got := formatCents(5); got != "0.05" {
		t.Fatalf("got %q", got)
	}
}

func TestStaleRowChangesAreDropped(t *testing.T) {
	screen := &stubScreen{rows: []table.Row{{"p1", "active"}}}
	m := NewModel(context.Background(), screen)

	next, _ := m.Update(rowsMsg{version: 3, rows: []table.Row{{"p1", "inactive"}}})
	next, _ = next.(Model).Update(rowsMsg{version: 2, rows: []table.Row{{"p1", "active"}}})
	m = next.(Model)
	if m.version != 3 || m.table.SelectedRow()[1] != "inactive" {
		t.Fatalf("older change overwrote newer one: version=%d row=%v", m.version, m.table.SelectedRow())
	}
}

func TestMailboxKeepsNewestChange(t *testing.T) {
	box := newRowsMailbox()
	box.put(1, []table.Row{{"v1"}})
	box.put(3, []table.Row{{"v3"}})
	box.put(2, []table.Row{{"v2"}})

	msg := box.wait().(rowsMsg)
	if msg.version != 3 || msg.rows[0][0] != "v3" {
		t.Fatalf("unexpected mailbox content %+v", msg)
	}
}
