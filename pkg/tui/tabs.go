package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/shopsphere/shopctl/pkg/api"
	"github.com/shopsphere/shopctl/pkg/console"
	"github.com/shopsphere/shopctl/pkg/mutation"
	"github.com/shopsphere/shopctl/pkg/output"
)

// column is one column of a dashboard table.
type column struct {
	header string
	key    string
	frac   float64
	value  func(api.Record) string
}

func (c column) render(r api.Record) string {
	if c.value != nil {
		return c.value(r)
	}
	if s := r.String(c.key); s != "" {
		return s
	}
	return "-"
}

// binding maps a key to an action on the selected row.
type binding struct {
	key    string
	action string
	label  string
}

// tabSpec describes one dashboard tab. The overview tab has no entity.
type tabSpec struct {
	title   string
	entity  string
	columns []column
	// search limits the fields matched by "/".
	search []string
	// statusField and statuses drive the "f" filter cycle.
	statusField string
	statuses    []string
	bindings    []binding
	// target picks the id an action applies to; the row id by default.
	target func(api.Record) (string, bool)
}

func (t tabSpec) targetOf(r api.Record) (string, bool) {
	if t.target != nil {
		return t.target(r)
	}
	id := r.ID()
	return id, id != ""
}

func (t tabSpec) binding(key string) (binding, bool) {
	for _, b := range t.bindings {
		if b.key == key {
			return b, true
		}
	}
	return binding{}, false
}

var (
	blockKeys = []binding{
		{key: "b", action: "block", label: "block"},
		{key: "u", action: "unblock", label: "unblock"},
	}
	decideKeys = []binding{
		{key: "a", action: "approve", label: "approve"},
		{key: "x", action: "reject", label: "reject"},
	}
	accountStatuses = []string{console.StatusActive, console.StatusBlocked}
	requestStatuses = []string{console.StatusPending, "APPROVED", "REJECTED"}
)

func defaultTabs() []tabSpec {
	return []tabSpec{
		{title: "Overview"},
		{
			title:  "Vendor Requests",
			entity: mutation.EntityVendorRequest,
			columns: []column{
				{header: "ID", key: "id", frac: 0.08},
				{header: "STORE", key: "store_name", frac: 0.30},
				{header: "EMAIL", key: "email", frac: 0.32},
				{header: "STATUS", key: "approval_status", frac: 0.15},
			},
			search:      []string{"store_name", "email"},
			statusField: "approval_status",
			statuses:    requestStatuses,
			bindings:    decideKeys,
		},
		{
			title:  "Vendors",
			entity: mutation.EntityVendor,
			columns: []column{
				{header: "ID", key: "id", frac: 0.08},
				{header: "STORE", key: "store_name", frac: 0.30},
				{header: "EMAIL", key: "email", frac: 0.32},
				{header: "STATUS", key: "status", frac: 0.15},
			},
			search:      []string{"store_name", "email"},
			statusField: "status",
			statuses:    accountStatuses,
			bindings:    blockKeys,
		},
		{
			title:  "Agent Requests",
			entity: mutation.EntityAgentRequest,
			columns: []column{
				{header: "ID", key: "id", frac: 0.08},
				{header: "NAME", key: "name", frac: 0.30},
				{header: "EMAIL", key: "email", frac: 0.32},
				{header: "STATUS", key: "approval_status", frac: 0.15},
			},
			search:      []string{"name", "email"},
			statusField: "approval_status",
			statuses:    requestStatuses,
			bindings:    decideKeys,
		},
		{
			title:  "Agents",
			entity: mutation.EntityAgent,
			columns: []column{
				{header: "ID", key: "id", frac: 0.08},
				{header: "NAME", key: "name", frac: 0.30},
				{header: "PHONE", key: "phone", frac: 0.20},
				{header: "VEHICLE", key: "vehicle", frac: 0.12},
				{header: "STATUS", key: "status", frac: 0.15},
			},
			search:      []string{"name", "phone"},
			statusField: "status",
			statuses:    accountStatuses,
			bindings:    blockKeys,
		},
		{
			title:  "Users",
			entity: mutation.EntityUser,
			columns: []column{
				{header: "ID", key: "id", frac: 0.08},
				{header: "NAME", key: "name", frac: 0.25},
				{header: "EMAIL", key: "email", frac: 0.35},
				{header: "STATUS", key: "status", frac: 0.15},
			},
			search:      []string{"name", "email"},
			statusField: "status",
			statuses:    []string{console.StatusActive, console.StatusBlocked, console.StatusInactive},
			bindings:    blockKeys,
		},
		{
			title:  "Products",
			entity: mutation.EntityProduct,
			columns: []column{
				{header: "ID", key: "id", frac: 0.08},
				{header: "NAME", key: "name", frac: 0.35},
				{header: "VENDOR", key: "vendor_id", frac: 0.10},
				{header: "PRICE", frac: 0.14, value: output.MoneyField("price", "")},
				{header: "STATUS", key: "status", frac: 0.15},
			},
			search:      []string{"name"},
			statusField: "status",
			statuses:    []string{console.StatusActive, console.StatusInactive},
			bindings:    []binding{{key: "t", action: "toggle-status", label: "toggle"}},
		},
		{
			title:  "Orders",
			entity: mutation.EntityOrder,
			columns: []column{
				{header: "ID", key: "id", frac: 0.08},
				{header: "NUMBER", key: "order_number", frac: 0.16},
				{header: "CUSTOMER", key: "customer", frac: 0.26},
				{header: "TOTAL", frac: 0.12, value: output.MoneyField("total_amount", "")},
				{header: "STATUS", key: "status", frac: 0.13},
				{header: "PAYOUT", key: "payout_status", frac: 0.12},
			},
			search:      []string{"order_number", "customer"},
			statusField: "status",
			statuses:    []string{"PENDING", "SHIPPED", "DELIVERED", "CANCELLED"},
			bindings:    []binding{{key: "s", action: "settle-payment", label: "settle"}},
			target:      console.SettleTarget,
		},
		{
			title:  "Commission",
			entity: mutation.EntityCommission,
			columns: []column{
				{header: "ID", key: "id", frac: 0.08},
				{header: "CATEGORY", key: "category", frac: 0.40},
				{header: "RATE", frac: 0.15, value: func(r api.Record) string { return fmt.Sprintf("%.2f%%", r.Float("rate")) }},
			},
			search:   []string{"category"},
			bindings: []binding{{key: "d", action: "delete-category", label: "delete"}},
		},
	}
}

// statusColor returns a lipgloss foreground colour for a status value.
func statusColor(status string) lipgloss.Color {
	switch strings.ToUpper(status) {
	case "ACTIVE", "APPROVED", "DELIVERED", "SETTLED":
		return lipgloss.Color("2") // green
	case "PENDING", "SHIPPED", "INACTIVE":
		return lipgloss.Color("3") // yellow
	case "BLOCKED", "REJECTED", "CANCELLED":
		return lipgloss.Color("1") // red
	default:
		return lipgloss.Color("8") // grey
	}
}

// renderTable renders rows as a lipgloss-styled table. The row at cursor is
// highlighted.
func renderTable(t tabSpec, rows []api.Record, cursor, width int) string {
	if len(rows) == 0 {
		return dimStyle.Render(fmt.Sprintf("  No %s found.", strings.ToLower(t.title)))
	}

	widths := make([]int, len(t.columns))
	headers := make([]string, len(t.columns))
	for i, c := range t.columns {
		widths[i] = colWidth(width, c.frac)
		headers[i] = headerCellStyle.Width(widths[i]).Render(c.header)
	}

	lines := []string{strings.Join(headers, "")}
	for i, r := range rows {
		style := rowStyle
		if i%2 == 0 {
			style = altRowStyle
		}
		if i == cursor {
			style = selectedRowStyle
		}
		cells := make([]string, len(t.columns))
		for j, c := range t.columns {
			text := truncate(c.render(r), widths[j]-1)
			if c.key == t.statusField && c.key != "" && i != cursor {
				cells[j] = lipgloss.NewStyle().
					Width(widths[j]).
					Foreground(statusColor(text)).
					Render(text)
				continue
			}
			cells[j] = style.Width(widths[j]).Render(text)
		}
		lines = append(lines, strings.Join(cells, ""))
	}
	return strings.Join(lines, "\n")
}

// colWidth converts a fractional width into an integer column width.
func colWidth(totalWidth int, fraction float64) int {
	w := int(float64(totalWidth) * fraction)
	if w < 6 {
		w = 6
	}
	return w
}

// truncate shortens s to maxLen runes, appending "…" if truncation occurred.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}
