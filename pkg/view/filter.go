// Package view holds the presentation-side helpers shared by the CLI and the
// dashboard. Everything here works on the page a store has loaded; none of
// it assumes the page is the whole server-side collection.
package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/shopsphere/shopctl/pkg/api"
)

// TabAll is the tab that matches every record.
const TabAll = "all"

// Filter is the ephemeral filter state of one list view.
type Filter struct {
	// Search is matched case-insensitively as a substring of Fields, or of
	// every string field when Fields is empty.
	Search string
	Fields []string
	// Tab selects records whose TabField equals it, ignoring case. Empty or
	// "all" selects everything.
	Tab      string
	TabField string
	Where    *Where
}

// Apply returns the records of items that pass the filter, in order.
func (f Filter) Apply(items []api.Record) ([]api.Record, error) {
	out := make([]api.Record, 0, len(items))
	for _, rec := range items {
		ok, err := f.Match(rec)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Match reports whether rec passes the filter.
func (f Filter) Match(rec api.Record) (bool, error) {
	if f.Tab != "" && !strings.EqualFold(f.Tab, TabAll) && f.TabField != "" {
		if !strings.EqualFold(rec.String(f.TabField), f.Tab) {
			return false, nil
		}
	}
	if f.Search != "" && !matchSearch(rec, strings.ToLower(f.Search), f.Fields) {
		return false, nil
	}
	if f.Where != nil {
		return f.Where.Match(rec)
	}
	return true, nil
}

func matchSearch(rec api.Record, needle string, fields []string) bool {
	if len(fields) == 0 {
		fields = make([]string, 0, len(rec))
		for k := range rec {
			fields = append(fields, k)
		}
		sort.Strings(fields)
	}
	for _, f := range fields {
		if v, ok := rec[f]; ok {
			if _, nested := v.(map[string]any); nested {
				continue
			}
			if strings.Contains(strings.ToLower(rec.String(f)), needle) {
				return true
			}
		}
	}
	return false
}

// Where is a compiled record predicate such as
// `status == "BLOCKED" && rating < 3`. Record fields are the variables;
// fields a record lacks evaluate to nil.
type Where struct {
	Source  string
	program *vm.Program
}

// CompileWhere compiles src. An empty source yields a nil *Where, which
// Filter treats as "no predicate".
func CompileWhere(src string) (*Where, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}
	program, err := expr.Compile(src, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid --where expression: %w", err)
	}
	return &Where{Source: src, program: program}, nil
}

// Match evaluates the predicate against rec.
func (w *Where) Match(rec api.Record) (bool, error) {
	out, err := expr.Run(w.program, map[string]any(rec))
	if err != nil {
		return false, fmt.Errorf("evaluate %q on record %s: %w", w.Source, rec.ID(), err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %T, expected bool", w.Source, out)
	}
	return b, nil
}
