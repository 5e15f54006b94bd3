// Package tui provides the interactive terminal dashboard for shopctl.
// It is built on the bubbletea/lipgloss stack and renders an overview tab
// plus one tab per admin collection. Tabs read the console's resource
// stores; store changes re-render the view and a ticker reloads the active
// tab on the configured interval.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shopsphere/shopctl/pkg/api"
	"github.com/shopsphere/shopctl/pkg/console"
	"github.com/shopsphere/shopctl/pkg/mutation"
	"github.com/shopsphere/shopctl/pkg/resource"
	"github.com/shopsphere/shopctl/pkg/view"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 1)

	headerCellStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			PaddingRight(1)

	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			PaddingRight(1)

	// altRowStyle is used for even-numbered table rows (zebra striping).
	altRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Background(lipgloss.Color("236")).
			PaddingRight(1)

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("25")).
				PaddingRight(1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingLeft(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")).
			Bold(true).
			PaddingLeft(1)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")).
			Bold(true).
			PaddingLeft(1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true).
			PaddingLeft(1)
)

// DefaultRefresh is the reload interval when Options.Refresh is unset.
const DefaultRefresh = 15 * time.Second

type (
	tickMsg     time.Time
	storeMsg    string
	loadedMsg   struct {
		entity string
		err    error
	}
	overviewMsg struct {
		ov  *console.Overview
		err error
	}
	actionMsg struct {
		pending mutation.Pending
		result  *mutation.Result
		err     error
	}
	// expireMsg re-renders once a notice has timed out.
	expireMsg struct{}
)

// CredentialsChangedMsg reloads every tab with the new login. Send it when
// the stored credentials change outside the dashboard.
type CredentialsChangedMsg struct{}

// Options configures the dashboard.
type Options struct {
	ServerURL string
	Refresh   time.Duration
	NoticeTTL time.Duration
	// Now overrides time.Now, for tests.
	Now func() time.Time
}

// Model is the top-level bubbletea model for the dashboard.
type Model struct {
	console *console.Console
	opts    Options
	ctx     context.Context

	tabs    []tabSpec
	active  int
	cursor  []int
	status  []int // index into tabSpec.statuses, 0 meaning all
	search  string
	typing  bool
	confirm *mutation.Pending

	notices     *view.Notifier
	overview    *console.Overview
	overviewErr error
	busy        int

	updates chan string
	cancels []func()

	width  int
	height int
}

// New returns a Model on top of c. Store changes are observed until Close.
func New(ctx context.Context, c *console.Console, opts Options) *Model {
	if opts.Refresh <= 0 {
		opts.Refresh = DefaultRefresh
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	tabs := defaultTabs()
	m := &Model{
		console: c,
		opts:    opts,
		ctx:     ctx,
		tabs:    tabs,
		cursor:  make([]int, len(tabs)),
		status:  make([]int, len(tabs)),
		notices: view.NewNotifier(opts.NoticeTTL, opts.Now),
		updates: make(chan string, 32),
	}
	for _, t := range tabs {
		st, ok := c.Store(t.entity)
		if !ok {
			continue
		}
		entity := t.entity
		m.cancels = append(m.cancels, st.Subscribe(func(resource.State) {
			// A queued message already triggers a render of the latest
			// snapshot, so a full buffer can drop this one.
			select {
			case m.updates <- entity:
			default:
			}
		}))
	}
	return m
}

// Close stops observing the stores.
func (m *Model) Close() {
	for _, cancel := range m.cancels {
		cancel()
	}
	m.cancels = nil
}

// Init loads every tab, starts the ticker and listens for store changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.listen(), m.loadAll())
}

func (m *Model) loadAll() tea.Cmd {
	cmds := []tea.Cmd{m.loadOverview()}
	for _, t := range m.tabs {
		if t.entity != "" {
			cmds = append(cmds, m.load(t.entity))
		}
	}
	return tea.Batch(cmds...)
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.opts.Refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case e := <-m.updates:
			return storeMsg(e)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) load(entity string) tea.Cmd {
	st, ok := m.console.Store(entity)
	if !ok {
		return nil
	}
	return func() tea.Msg {
		return loadedMsg{entity: entity, err: st.Reload(m.ctx)}
	}
}

func (m *Model) loadOverview() tea.Cmd {
	return func() tea.Msg {
		ov, err := m.console.Overview(m.ctx)
		return overviewMsg{ov: ov, err: err}
	}
}

func (m *Model) expire() tea.Cmd {
	return tea.Tick(m.notices.TTL(), func(time.Time) tea.Msg { return expireMsg{} })
}

// Update processes messages and returns the model plus any commands.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m, tea.Batch(m.tick(), m.refresh())

	case storeMsg:
		m.clampCursor()
		return m, m.listen()

	case loadedMsg:
		if msg.err != nil && !errors.Is(msg.err, resource.ErrSuperseded) && msg.entity == m.tab().entity {
			m.notices.Error(msg.err)
			return m, m.expire()
		}
		return m, nil

	case overviewMsg:
		if msg.ov != nil {
			m.overview = msg.ov
		}
		m.overviewErr = msg.err
		return m, nil

	case actionMsg:
		m.busy--
		m.console.Queue.Resolve(msg.pending.ID)
		if msg.err != nil {
			m.notices.Error(fmt.Errorf("%s: %w", msg.pending.Describe(), msg.err))
			return m, m.expire()
		}
		m.notices.Success(msg.pending.Describe() + ": done")
		if msg.result != nil && msg.result.ReloadErr != nil {
			m.notices.Error(fmt.Errorf("reload %s: %w", msg.pending.Entity, msg.result.ReloadErr))
		}
		return m, tea.Batch(m.expire(), m.loadOverview())

	case CredentialsChangedMsg:
		m.notices.Info("credentials changed, reloading")
		return m, tea.Batch(m.expire(), m.loadAll())

	case expireMsg:
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if m.confirm != nil {
		return m.handleConfirm(key)
	}
	if m.typing {
		switch msg.Type {
		case tea.KeyEnter:
			m.typing = false
		case tea.KeyEsc:
			m.typing = false
			m.search = ""
		case tea.KeyBackspace:
			if r := []rune(m.search); len(r) > 0 {
				m.search = string(r[:len(r)-1])
			}
		case tea.KeyRunes, tea.KeySpace:
			m.search += string(msg.Runes)
		}
		m.cursor[m.active] = 0
		return m, nil
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "tab", "right", "l":
		m.switchTab((m.active + 1) % len(m.tabs))
	case "shift+tab", "left", "h":
		m.switchTab((m.active - 1 + len(m.tabs)) % len(m.tabs))
	case "up", "k":
		if m.cursor[m.active] > 0 {
			m.cursor[m.active]--
		}
	case "down", "j":
		m.cursor[m.active]++
		m.clampCursor()
	case "/":
		m.typing = true
	case "esc":
		m.search = ""
	case "f":
		if n := len(m.tab().statuses); n > 0 {
			m.status[m.active] = (m.status[m.active] + 1) % (n + 1)
			m.cursor[m.active] = 0
		}
	case "r":
		return m, m.refresh()
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			if i := int(key[0] - '1'); i < len(m.tabs) {
				m.switchTab(i)
			}
			return m, nil
		}
		if b, ok := m.tab().binding(key); ok {
			return m.propose(b)
		}
	}
	return m, nil
}

func (m *Model) handleConfirm(key string) (tea.Model, tea.Cmd) {
	p := *m.confirm
	switch key {
	case "y", "Y":
		m.confirm = nil
		confirmed, err := m.console.Queue.Confirm(p.ID)
		if err != nil {
			m.notices.Error(err)
			return m, m.expire()
		}
		return m, m.execute(confirmed)
	case "n", "N", "esc":
		m.confirm = nil
		m.console.Queue.Discard(p.ID)
		m.notices.Info("cancelled " + p.Describe())
		return m, m.expire()
	}
	return m, nil
}

// propose queues the action for the selected row and runs it, or asks for
// confirmation first when the action is destructive.
func (m *Model) propose(b binding) (tea.Model, tea.Cmd) {
	t := m.tab()
	rec, ok := m.selected()
	if !ok {
		return m, nil
	}
	target, ok := t.targetOf(rec)
	if !ok {
		m.notices.Info(fmt.Sprintf("nothing to %s for %s %s", b.label, t.entity, rec.ID()))
		return m, m.expire()
	}
	if err := console.CheckTransition(t.entity, b.action, rec); err != nil {
		m.notices.Info(err.Error())
		return m, m.expire()
	}
	p, err := m.console.Queue.Propose(t.entity, b.action, target, mutation.Params{})
	if err != nil {
		m.notices.Error(err)
		return m, m.expire()
	}
	if !p.Confirmed {
		m.confirm = &p
		return m, nil
	}
	return m, m.execute(p)
}

func (m *Model) execute(p mutation.Pending) tea.Cmd {
	m.busy++
	return func() tea.Msg {
		res, err := m.console.Execute(m.ctx, p)
		return actionMsg{pending: p, result: res, err: err}
	}
}

// refresh reloads the active tab, or the overview figures.
func (m *Model) refresh() tea.Cmd {
	if e := m.tab().entity; e != "" {
		return m.load(e)
	}
	return m.loadOverview()
}

func (m *Model) switchTab(i int) {
	m.active = i
	m.search = ""
	m.typing = false
}

func (m *Model) tab() tabSpec { return m.tabs[m.active] }

// rows returns the filtered page of the active tab.
func (m *Model) rows() []api.Record {
	t := m.tab()
	st, ok := m.console.Store(t.entity)
	if !ok {
		return nil
	}
	f := view.Filter{
		Search:   m.search,
		Fields:   t.search,
		TabField: t.statusField,
		Tab:      m.statusFilter(),
	}
	rows, err := f.Apply(st.Snapshot().Items)
	if err != nil {
		return nil
	}
	return rows
}

func (m *Model) statusFilter() string {
	i := m.status[m.active]
	if i == 0 {
		return view.TabAll
	}
	return m.tab().statuses[i-1]
}

func (m *Model) selected() (api.Record, bool) {
	rows := m.rows()
	c := m.cursor[m.active]
	if c < 0 || c >= len(rows) {
		return nil, false
	}
	return rows[c], true
}

func (m *Model) clampCursor() {
	n := len(m.rows())
	if m.cursor[m.active] >= n {
		m.cursor[m.active] = n - 1
	}
	if m.cursor[m.active] < 0 {
		m.cursor[m.active] = 0
	}
}

// View renders the entire dashboard to a string.
func (m *Model) View() string {
	if m.width == 0 {
		return "Loading…"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("  ShopSphere Admin  "))
	sb.WriteString("\n")

	parts := make([]string, len(m.tabs))
	for i, t := range m.tabs {
		label := fmt.Sprintf("%d:%s", i+1, t.title)
		if i == m.active {
			parts[i] = activeTabStyle.Render(label)
		} else {
			parts[i] = inactiveTabStyle.Render(label)
		}
	}
	sb.WriteString(strings.Join(parts, ""))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")

	contentHeight := m.height - 6 // title, tabs, two dividers, two status lines
	if contentHeight < 1 {
		contentHeight = 1
	}
	sb.WriteString(clipLines(m.renderActiveTab(), contentHeight))
	sb.WriteString("\n")

	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")
	sb.WriteString(m.renderNotice())
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())
	return sb.String()
}

func (m *Model) renderActiveTab() string {
	w := m.width - 2
	t := m.tab()
	if t.entity == "" {
		return renderOverview(m.overview, m.overviewErr, m.console, w)
	}
	return renderTable(t, m.rows(), m.cursor[m.active], w)
}

// renderNotice shows the confirmation prompt, the search line or the
// newest notice.
func (m *Model) renderNotice() string {
	if m.confirm != nil {
		return promptStyle.Render(m.confirm.Describe() + "? [y/n]")
	}
	if m.typing {
		return promptStyle.Render("/" + m.search + "█")
	}
	n, ok := m.notices.Latest()
	if !ok {
		return ""
	}
	switch n.Level {
	case view.LevelError:
		return errorStyle.Render("Error: " + n.Text)
	case view.LevelSuccess:
		return successStyle.Render(n.Text)
	default:
		return statusBarStyle.Render(n.Text)
	}
}

func (m *Model) renderStatus() string {
	t := m.tab()
	parts := []string{fmt.Sprintf("server: %s", m.opts.ServerURL)}
	if st, ok := m.console.Store(t.entity); ok {
		snap := st.Snapshot()
		switch snap.Phase {
		case resource.Loading:
			parts = append(parts, "loading…")
		case resource.Failed:
			return errorStyle.Render(fmt.Sprintf("Error: %s", errText(snap.Err)))
		case resource.Loaded:
			parts = append(parts, fmt.Sprintf("%d of %d", len(snap.Items), snap.Total))
			parts = append(parts, "loaded "+snap.LoadedAt.Format("15:04:05"))
		}
		if f := m.statusFilter(); f != view.TabAll {
			parts = append(parts, "filter: "+f)
		}
		if m.search != "" {
			parts = append(parts, "search: "+m.search)
		}
	}
	if m.busy > 0 {
		parts = append(parts, "working…")
	}
	keys := "q quit  tab next  r refresh"
	if t.entity != "" {
		keys += "  / search  f filter"
		for _, b := range t.bindings {
			keys += fmt.Sprintf("  %s %s", b.key, b.label)
		}
	}
	parts = append(parts, keys)
	return statusBarStyle.Render(strings.Join(parts, "  |  "))
}

func errText(err error) string {
	if he, ok := api.AsHTTPError(err); ok {
		return he.Message
	}
	if err != nil {
		return err.Error()
	}
	return "unknown error"
}

// clipLines limits the string s to at most maxLines newline-delimited lines.
func clipLines(s string, maxLines int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= maxLines {
		return s
	}
	return strings.Join(lines[:maxLines], "\n")
}
