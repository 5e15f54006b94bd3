package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopsphere/shopctl/pkg/console"
	"github.com/shopsphere/shopctl/pkg/output"
)

// renderOverview renders the landing tab: the wallet, the dashboard
// figures and the per-store stats of whatever has been loaded.
func renderOverview(ov *console.Overview, err error, c *console.Console, width int) string {
	if ov == nil {
		if err != nil {
			return errorStyle.Render("Error: " + errText(err))
		}
		return dimStyle.Render("  Loading overview…")
	}

	var lines []string
	if e, ok := ov.Errors[console.SourceWallet]; ok {
		lines = append(lines, errorStyle.Render("wallet: "+errText(e)))
	} else {
		lines = append(lines, headerCellStyle.Render("WALLET BALANCE")+"  "+output.Money(ov.Balance(), ""))
	}
	lines = append(lines, "")

	if e, ok := ov.Errors[console.SourceDashboard]; ok {
		lines = append(lines, errorStyle.Render("dashboard: "+errText(e)))
	} else {
		nameW := colWidth(width, 0.35)
		for i, cnt := range ov.Counts() {
			style := rowStyle
			if i%2 == 0 {
				style = altRowStyle
			}
			label := strings.ReplaceAll(cnt.Name, "_", " ")
			lines = append(lines, style.Width(nameW).Render(label)+style.Render(output.Count(int64(cnt.Value))))
		}
	}
	lines = append(lines, "")

	stores := c.Stores()
	entities := make([]string, 0, len(stores))
	for e := range stores {
		entities = append(entities, e)
	}
	sort.Strings(entities)
	for _, e := range entities {
		snap := stores[e].Snapshot()
		if len(snap.Stats) == 0 {
			continue
		}
		var parts []string
		for _, k := range snap.Stats.Keys() {
			parts = append(parts, fmt.Sprintf("%s %s", k, output.Count(int64(snap.Stats[k]))))
		}
		lines = append(lines, headerCellStyle.Width(colWidth(width, 0.2)).Render(e)+truncate(strings.Join(parts, "  "), width-colWidth(width, 0.2)))
	}
	return strings.Join(lines, "\n")
}
