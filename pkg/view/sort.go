package view

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopsphere/shopctl/pkg/api"
)

// ParseSort splits a sort flag such as "-created_at" into its key and
// direction.
func ParseSort(spec string) (key string, desc bool) {
	spec = strings.TrimSpace(spec)
	if strings.HasPrefix(spec, "-") {
		return spec[1:], true
	}
	return strings.TrimPrefix(spec, "+"), false
}

// Sort returns a copy of items ordered by key. Values that parse as numbers
// compare numerically, everything else compares as case-folded text.
// Records missing the key sort last in either direction.
func Sort(items []api.Record, key string, desc bool) []api.Record {
	out := make([]api.Record, len(items))
	copy(out, items)
	if key == "" {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Has(key) || !b.Has(key) {
			return a.Has(key) && !b.Has(key)
		}
		c := compare(a.String(key), b.String(key))
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func compare(a, b string) int {
	fa, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	fb, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// Paginate returns page (1-based) of items with size records per page and
// the number of pages. Out-of-range pages are clamped.
func Paginate(items []api.Record, page, size int) ([]api.Record, int) {
	pages := api.TotalPages(len(items), size)
	if pages == 0 {
		return []api.Record{}, 0
	}
	if size <= 0 {
		return items, 1
	}
	page = max(1, min(page, pages))
	start := (page - 1) * size
	end := min(start+size, len(items))
	return items[start:end], pages
}
