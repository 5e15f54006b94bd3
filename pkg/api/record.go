package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is one entity as returned by the ShopSphere backend: a mapping of
// field name to decoded JSON value. Records are treated as values; callers
// that want to change one should Clone it first.
type Record map[string]any

// ID returns the server-assigned identifier of the record as a string.
// Numeric ids are rendered without a decimal point.
func (r Record) ID() string {
	return r.String("id")
}

// String returns the field rendered as a string, or "" when absent or null.
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Bool reports the field as a boolean. Strings "true"/"1" and non-zero
// numbers count as true.
func (r Record) Bool(key string) bool {
	switch t := r[key].(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return false
	}
}

// Has reports whether the field is present and not null.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// Float returns the field as a float64. Numeric strings (the backend sends
// decimals as strings) are parsed; anything else yields 0.
func (r Record) Float(key string) float64 {
	switch t := r[key].(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f
	default:
		return 0
	}
}

// Int returns the field truncated to an int.
func (r Record) Int(key string) int {
	return int(r.Float(key))
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge returns a copy of r with every key of patch overwritten. Keys absent
// from patch keep their previous value.
func (r Record) Merge(patch Record) Record {
	out := r.Clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// DecodeRecord decodes a JSON object into a Record.
func DecodeRecord(raw json.RawMessage) (Record, error) {
	if len(raw) == 0 {
		return Record{}, nil
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, &HTTPError{Kind: KindDecode, Message: "unexpected response shape: " + err.Error()}
	}
	if rec == nil {
		rec = Record{}
	}
	return rec, nil
}
