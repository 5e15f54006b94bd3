package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/shopsphere/shopctl/pkg/api"
)

// Formatter defines the interface for output formatting.
type Formatter interface {
	Format(data any) string
}

// NewFormatter returns a Formatter for the given format string.
// Supported formats: "table" (default), "wide", "json", "yaml".
func NewFormatter(format string) Formatter {
	switch strings.ToLower(format) {
	case "json":
		return &JSONFormatter{}
	case "yaml":
		return &YAMLFormatter{}
	case "wide":
		return &TableFormatter{Wide: true}
	default:
		return &TableFormatter{}
	}
}

// Column is one column of a record table.
type Column struct {
	Header string
	// Key is the record field shown when Value is nil.
	Key   string
	Value func(api.Record) string
	// Wide columns are only shown by the wide table format.
	Wide bool
}

func (c Column) render(r api.Record) string {
	if c.Value != nil {
		return c.Value(r)
	}
	if s := r.String(c.Key); s != "" {
		return s
	}
	return "-"
}

// Table is a list of records with the columns to show for them. The JSON
// and YAML formats emit the records unchanged.
type Table struct {
	Columns []Column
	Rows    []api.Record
	// Footer is printed under the table, e.g. "page 1 of 3".
	Footer string
}

func (t Table) MarshalJSON() ([]byte, error) {
	rows := t.Rows
	if rows == nil {
		rows = []api.Record{}
	}
	return json.Marshal(rows)
}

func (t Table) MarshalYAML() (any, error) {
	if t.Rows == nil {
		return []api.Record{}, nil
	}
	return t.Rows, nil
}

// TableFormatter formats data as aligned text tables using tabwriter.
type TableFormatter struct {
	Wide bool
}

func (f *TableFormatter) Format(data any) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	switch d := data.(type) {
	case Table:
		if len(d.Rows) == 0 {
			return "No resources found.\n"
		}
		f.writeTable(w, d)
		w.Flush()
		if d.Footer != "" {
			buf.WriteString(d.Footer + "\n")
		}
		return buf.String()
	case *Table:
		return f.Format(*d)
	case api.Record:
		writeRecord(w, d, "")
		w.Flush()
		return buf.String()
	}

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice:
		if v.Len() == 0 {
			return "No resources found.\n"
		}
		elem := v.Index(0)
		if elem.Kind() == reflect.Ptr {
			elem = elem.Elem()
		}
		if elem.Kind() == reflect.Struct {
			t := elem.Type()
			headers := make([]string, t.NumField())
			for i := 0; i < t.NumField(); i++ {
				headers[i] = headerOf(t.Field(i))
			}
			fmt.Fprintln(w, strings.Join(headers, "\t"))

			for i := 0; i < v.Len(); i++ {
				row := v.Index(i)
				if row.Kind() == reflect.Ptr {
					row = row.Elem()
				}
				vals := make([]string, row.NumField())
				for j := 0; j < row.NumField(); j++ {
					vals[j] = cell(row.Field(j).Interface())
				}
				fmt.Fprintln(w, strings.Join(vals, "\t"))
			}
		} else {
			for i := 0; i < v.Len(); i++ {
				fmt.Fprintln(w, v.Index(i).Interface())
			}
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			fmt.Fprintf(w, "%s:\t%s\n", t.Field(i).Name, cell(v.Field(i).Interface()))
		}
	default:
		fmt.Fprintln(w, data)
	}

	w.Flush()
	return buf.String()
}

func (f *TableFormatter) writeTable(w *tabwriter.Writer, t Table) {
	cols := make([]Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !c.Wide || f.Wide {
			cols = append(cols, c)
		}
	}
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Header
	}
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, r := range t.Rows {
		vals := make([]string, len(cols))
		for i, c := range cols {
			vals[i] = c.render(r)
		}
		fmt.Fprintln(w, strings.Join(vals, "\t"))
	}
}

// writeRecord prints one record as "key: value" lines, id first and the
// rest sorted. Nested objects are indented below their key.
func writeRecord(w *tabwriter.Writer, r api.Record, indent string) {
	keys := make([]string, 0, len(r))
	for k := range r {
		if k != "id" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if r.Has("id") && indent == "" {
		keys = append([]string{"id"}, keys...)
	}
	for _, k := range keys {
		switch v := r[k].(type) {
		case map[string]any:
			fmt.Fprintf(w, "%s%s:\n", indent, k)
			writeRecord(w, api.Record(v), indent+"  ")
		case []any:
			fmt.Fprintf(w, "%s%s:\t%d item(s)\n", indent, k, len(v))
			for i, item := range v {
				if m, ok := item.(map[string]any); ok {
					fmt.Fprintf(w, "%s  [%d]\n", indent, i)
					writeRecord(w, api.Record(m), indent+"    ")
				}
			}
		default:
			s := r.String(k)
			if s == "" {
				s = "-"
			}
			fmt.Fprintf(w, "%s%s:\t%s\n", indent, k, s)
		}
	}
}

func headerOf(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" && tag != "-" {
		name := strings.Split(tag, ",")[0]
		if name != "" {
			return strings.ToUpper(name)
		}
	}
	return strings.ToUpper(f.Name)
}

func cell(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	if s := fmt.Sprintf("%v", v); s != "" {
		return s
	}
	return "-"
}

// JSONFormatter formats data as indented JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(data any) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("error formatting JSON: %v\n", err)
	}
	return string(b) + "\n"
}

// YAMLFormatter formats data as YAML.
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(data any) string {
	b, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Sprintf("error formatting YAML: %v\n", err)
	}
	return string(b)
}
