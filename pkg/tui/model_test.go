package tui

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shopsphere/shopctl/pkg/api"
	"github.com/shopsphere/shopctl/pkg/console"
	"github.com/shopsphere/shopctl/pkg/devserver"
	"github.com/shopsphere/shopctl/pkg/mutation"
)

func newModel(t *testing.T) (*Model, *console.Console) {
	t.Helper()
	srv := devserver.New(devserver.Options{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	token := srv.IssueToken(devserver.DefaultAdminEmail)
	client := api.NewClient(ts.URL, api.WithTokenSource(api.TokenFunc(func(context.Context) (string, error) {
		return token, nil
	})))
	c := console.New(api.NewShopSphere(client), nil)

	ctx := context.Background()
	entities := make([]string, 0)
	for e := range c.Stores() {
		entities = append(entities, e)
	}
	if err := c.LoadAll(ctx, entities...); err != nil {
		t.Fatal(err)
	}
	m := New(ctx, c, Options{ServerURL: ts.URL, NoticeTTL: time.Minute})
	t.Cleanup(m.Close)
	m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	return m, c
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends key and runs the command it returns, feeding the resulting
// message back into the model.
func press(t *testing.T, m *Model, k tea.KeyMsg) {
	t.Helper()
	_, cmd := m.Update(k)
	if cmd == nil {
		return
	}
	if msg, ok := cmd().(actionMsg); ok {
		m.Update(msg)
	}
}

func TestViewBeforeSize(t *testing.T) {
	m, _ := newModel(t)
	m.width = 0
	if got := m.View(); got != "Loading…" {
		t.Errorf("View = %q", got)
	}
}

func TestTabNavigation(t *testing.T) {
	m, _ := newModel(t)
	m.Update(keys("3"))
	if m.tab().entity != mutation.EntityVendor {
		t.Fatalf("tab = %q", m.tab().title)
	}
	out := m.View()
	if !strings.Contains(out, "Green Grocer") || !strings.Contains(out, "Paper Trail Books") {
		t.Errorf("vendors tab:\n%s", out)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.tab().entity != mutation.EntityAgentRequest {
		t.Errorf("after tab = %q", m.tab().title)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.tab().entity != mutation.EntityVendorRequest {
		t.Errorf("after shift+tab = %q", m.tab().title)
	}
}

func TestBlockAsksForConfirmation(t *testing.T) {
	m, c := newModel(t)
	m.Update(keys("3"))

	_, cmd := m.Update(keys("b"))
	if cmd != nil {
		t.Fatal("destructive action ran without confirmation")
	}
	if !strings.Contains(m.View(), "block vendor 1? [y/n]") {
		t.Errorf("prompt missing:\n%s", m.View())
	}

	press(t, m, keys("y"))
	rec, _ := c.Vendors.Find("1")
	if rec.String("status") != console.StatusBlocked {
		t.Errorf("vendor 1 status = %q", rec.String("status"))
	}
	if c.Queue.Len() != 0 {
		t.Errorf("queue still holds %d actions", c.Queue.Len())
	}
	if !strings.Contains(m.View(), "block vendor 1: done") {
		t.Errorf("success notice missing:\n%s", m.View())
	}
}

func TestDeclineDiscards(t *testing.T) {
	m, c := newModel(t)
	m.Update(keys("3"))
	m.Update(keys("b"))
	press(t, m, keys("n"))

	if c.Queue.Len() != 0 {
		t.Errorf("queue holds %d actions", c.Queue.Len())
	}
	rec, _ := c.Vendors.Find("1")
	if rec.String("status") != console.StatusActive {
		t.Errorf("vendor 1 status = %q", rec.String("status"))
	}
	if !strings.Contains(m.View(), "cancelled block vendor 1") {
		t.Errorf("cancel notice missing:\n%s", m.View())
	}
}

func TestApproveRunsImmediately(t *testing.T) {
	m, c := newModel(t)
	m.Update(keys("2"))
	press(t, m, keys("a"))

	rec, _ := c.VendorRequests.Find("1")
	if rec.String("approval_status") != "APPROVED" {
		t.Errorf("request 1 = %v", rec)
	}
	other, _ := c.VendorRequests.Find("2")
	if other.String("approval_status") != console.StatusPending {
		t.Errorf("request 2 = %v", other)
	}
}

func TestAlreadyBlockedIsRefusedLocally(t *testing.T) {
	m, c := newModel(t)
	m.Update(keys("3"))
	m.Update(keys("j"))
	m.Update(keys("j"))
	_, cmd := m.Update(keys("b"))
	if m.confirm != nil || c.Queue.Len() != 0 {
		t.Fatal("blocked vendor was proposed for blocking")
	}
	if cmd == nil {
		t.Error("expected notice expiry command")
	}
	if !strings.Contains(m.View(), "already blocked") {
		t.Errorf("notice missing:\n%s", m.View())
	}
}

func TestSearchAndStatusFilter(t *testing.T) {
	m, _ := newModel(t)
	m.Update(keys("3"))

	m.Update(keys("/"))
	m.Update(keys("volt"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if rows := m.rows(); len(rows) != 1 || rows[0].String("store_name") != "Volt Electronics" {
		t.Errorf("search rows = %v", rows)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m.Update(keys("f"))
	if got := len(m.rows()); got != 2 {
		t.Errorf("ACTIVE rows = %d, want 2", got)
	}
	m.Update(keys("f"))
	if got := len(m.rows()); got != 1 {
		t.Errorf("BLOCKED rows = %d, want 1", got)
	}
	m.Update(keys("f"))
	if got := len(m.rows()); got != 3 {
		t.Errorf("all rows = %d, want 3", got)
	}
}

func TestSettleTargetsUnsettledItem(t *testing.T) {
	m, c := newModel(t)
	m.Update(keys("8"))
	if m.tab().entity != mutation.EntityOrder {
		t.Fatalf("tab = %q", m.tab().title)
	}
	// Order 1 is already settled.
	_, cmd := m.Update(keys("s"))
	if m.confirm != nil || cmd == nil {
		t.Fatal("settled order was proposed")
	}
	m.Update(keys("j"))
	m.Update(keys("s"))
	if m.confirm == nil || m.confirm.Target != "102" {
		t.Fatalf("confirm = %+v", m.confirm)
	}
	press(t, m, keys("y"))
	rec, _ := c.Orders.Find("2")
	if rec.String("payout_status") != "SETTLED" {
		t.Errorf("order 2 = %v", rec)
	}
}

func TestOverviewTab(t *testing.T) {
	m, _ := newModel(t)
	m.Update(m.loadOverview()())
	out := m.View()
	if !strings.Contains(out, "1,250.75") {
		t.Errorf("wallet missing:\n%s", out)
	}
	if !strings.Contains(out, "total users") {
		t.Errorf("dashboard counts missing:\n%s", out)
	}
}

func TestStoreChangesReachModel(t *testing.T) {
	m, c := newModel(t)
	for len(m.updates) > 0 {
		<-m.updates
	}
	c.Products.ApplyLocalPatch("1", api.Record{"status": console.StatusInactive})
	select {
	case e := <-m.updates:
		if e != mutation.EntityProduct {
			t.Errorf("update for %q", e)
		}
	default:
		t.Fatal("no update after patch")
	}
}

func TestClipLinesAndTruncate(t *testing.T) {
	if got := clipLines("a\nb\nc", 2); got != "a\nb" {
		t.Errorf("clipLines = %q", got)
	}
	if got := truncate("Sunrise Bakery", 5); got != "Sunr…" {
		t.Errorf("truncate = %q", got)
	}
}

func TestCredentialsChangedReloads(t *testing.T) {
	m, _ := newModel(t)
	_, cmd := m.Update(CredentialsChangedMsg{})
	if cmd == nil {
		t.Fatal("expected reload commands")
	}
	if !strings.Contains(m.View(), "credentials changed, reloading") {
		t.Errorf("notice missing:\n%s", m.View())
	}
}
