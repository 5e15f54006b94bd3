package output

import (
	"strings"
	"testing"
	"time"

	"github.com/shopsphere/shopctl/pkg/api"
)

func vendorTable() Table {
	return Table{
		Columns: []Column{
			{Header: "ID", Key: "id"},
			{Header: "STORE", Key: "store_name"},
			{Header: "STATUS", Key: "status"},
			{Header: "EMAIL", Key: "email", Wide: true},
		},
		Rows: []api.Record{
			{"id": float64(1), "store_name": "Green Grocer", "status": "ACTIVE", "email": "g@example.com"},
			{"id": float64(2), "store_name": "Volt", "status": "BLOCKED"},
		},
		Footer: "page 1 of 1",
	}
}

func TestTableFormatter(t *testing.T) {
	out := NewFormatter("table").Format(vendorTable())
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[0], "STATUS") || strings.Contains(lines[0], "EMAIL") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Green Grocer") || !strings.Contains(lines[2], "BLOCKED") {
		t.Errorf("rows = %q", lines[1:3])
	}
	if lines[3] != "page 1 of 1" {
		t.Errorf("footer = %q", lines[3])
	}

	wide := NewFormatter("wide").Format(vendorTable())
	if !strings.Contains(wide, "EMAIL") || !strings.Contains(wide, "g@example.com") {
		t.Errorf("wide output missing email:\n%s", wide)
	}
	// Missing values render as "-".
	if !strings.Contains(strings.Split(wide, "\n")[2], "-") {
		t.Errorf("missing email not dashed:\n%s", wide)
	}
}

func TestTableFormatterEmpty(t *testing.T) {
	if got := NewFormatter("table").Format(Table{}); got != "No resources found.\n" {
		t.Errorf("got %q", got)
	}
	if got := NewFormatter("json").Format(Table{}); got != "[]\n" {
		t.Errorf("json got %q", got)
	}
}

func TestRecordFormatter(t *testing.T) {
	rec := api.Record{
		"id":         float64(7),
		"store_name": "Sunrise Bakery",
		"address":    map[string]any{"city": "Pune"},
		"rating":     nil,
	}
	out := NewFormatter("").Format(rec)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if !strings.HasPrefix(lines[0], "id:") || !strings.Contains(lines[0], "7") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(out, "  city:") || !strings.Contains(out, "Pune") {
		t.Errorf("nested field missing:\n%s", out)
	}
	if !strings.Contains(out, "rating:") {
		t.Errorf("null field missing:\n%s", out)
	}
}

type entry struct {
	ID      string `json:"id"`
	Outcome string `json:"outcome"`
}

func TestStructSliceFormatter(t *testing.T) {
	out := NewFormatter("table").Format([]entry{{"01A", "ok"}})
	if !strings.HasPrefix(out, "ID") || !strings.Contains(out, "OUTCOME") || !strings.Contains(out, "01A") {
		t.Errorf("got:\n%s", out)
	}
}

func TestJSONAndYAMLEmitRows(t *testing.T) {
	js := NewFormatter("json").Format(vendorTable())
	if !strings.HasPrefix(js, "[") || !strings.Contains(js, `"store_name": "Volt"`) {
		t.Errorf("json:\n%s", js)
	}
	ym := NewFormatter("yaml").Format(vendorTable())
	if !strings.Contains(ym, "store_name: Volt") || strings.Contains(ym, "columns") {
		t.Errorf("yaml:\n%s", ym)
	}
}

func TestValues(t *testing.T) {
	if got := Money(1250.75, "usd"); got != "USD 1,250.75" {
		t.Errorf("Money = %q", got)
	}
	if got := Money(3, ""); got != "3.00" {
		t.Errorf("Money = %q", got)
	}
	if got := Count(1234567); got != "1,234,567" {
		t.Errorf("Count = %q", got)
	}
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	if got := Ago("2026-02-07T12:00:00Z", now); got != "3 days ago" {
		t.Errorf("Ago = %q", got)
	}
	if got := Ago("yesterday-ish", now); got != "yesterday-ish" {
		t.Errorf("Ago passthrough = %q", got)
	}
	r := api.Record{"total_amount": "42.5", "is_active": false}
	if got := MoneyField("total_amount", "")(r); got != "42.50" {
		t.Errorf("MoneyField = %q", got)
	}
	if got := BoolField("is_active")(r); got != "no" {
		t.Errorf("BoolField = %q", got)
	}
}
