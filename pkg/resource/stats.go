package resource

import (
	"sort"
	"strings"

	"github.com/shopsphere/shopctl/pkg/api"
)

// StatTotal is the stat key for the collection size.
const StatTotal = "total"

// Stats are named aggregate counts for a collection.
type Stats map[string]int

// Clone returns a copy that is never nil.
func (s Stats) Clone() Stats {
	out := make(Stats, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Overlay returns a copy of s with every key of top overwritten.
func (s Stats) Overlay(top Stats) Stats {
	out := s.Clone()
	for k, v := range top {
		out[k] = v
	}
	return out
}

// Keys returns the stat names, "total" first and the rest sorted.
func (s Stats) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		if k != StatTotal {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := s[StatTotal]; ok {
		keys = append([]string{StatTotal}, keys...)
	}
	return keys
}

// CountBy returns a Count function that tallies records by the lower-cased
// value of field. Records without the field are not counted.
func CountBy(field string) func([]api.Record) Stats {
	return func(items []api.Record) Stats {
		st := Stats{}
		for _, rec := range items {
			v := strings.ToLower(rec.String(field))
			if v != "" {
				st[v]++
			}
		}
		return st
	}
}
