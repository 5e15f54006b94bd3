package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Page is the normalized form of every list response. The backend answers
// list endpoints with either a bare JSON array, a paginated envelope
// {count, next, previous, results}, or an object keyed by the entity name
// ({users: [...], total: 50, ...}); DecodePage folds all three into this.
type Page struct {
	Items []Record
	// Total is the size of the full server-side collection when the server
	// reported one, otherwise len(Items).
	Total int
	// TotalReported is true when Total came from the server.
	TotalReported bool
	Next          string
	Previous      string
	// Meta holds every other top-level field of an object-shaped response.
	Meta Record
}

// itemKeys are consulted in order when the response is an object.
var itemKeys = []string{"results", "data", "items"}

// totalKeys carry the server-side collection size.
var totalKeys = []string{"count", "total"}

// DecodePage normalizes raw into a Page. itemsKey names the entity-specific
// list field (for example "users"); it may be empty.
func DecodePage(raw json.RawMessage, itemsKey string) (Page, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Page{Items: []Record{}, Meta: Record{}}, nil
	}

	switch trimmed[0] {
	case '[':
		items, err := decodeItems(trimmed)
		if err != nil {
			return Page{}, err
		}
		return Page{Items: items, Total: len(items), Meta: Record{}}, nil
	case '{':
		return decodeEnvelope(trimmed, itemsKey)
	default:
		return Page{}, &HTTPError{Kind: KindDecode, Message: "unexpected response shape: expected a list"}
	}
}

func decodeEnvelope(raw []byte, itemsKey string) (Page, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Page{}, &HTTPError{Kind: KindDecode, Message: "unexpected response shape: " + err.Error()}
	}

	keys := itemKeys
	if itemsKey != "" {
		keys = append([]string{itemsKey}, itemKeys...)
	}
	listKey := ""
	for _, k := range keys {
		if v, ok := obj[k]; ok && len(bytes.TrimSpace(v)) > 0 && bytes.TrimSpace(v)[0] == '[' {
			listKey = k
			break
		}
	}
	if listKey == "" {
		return Page{}, &HTTPError{Kind: KindDecode, Message: fmt.Sprintf("unexpected response shape: no list field (want %q)", keys[0])}
	}

	items, err := decodeItems(obj[listKey])
	if err != nil {
		return Page{}, err
	}

	page := Page{Items: items, Total: len(items), Meta: Record{}}
	for k, v := range obj {
		if k == listKey {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			continue
		}
		page.Meta[k] = val
	}
	for _, k := range totalKeys {
		if n, ok := page.Meta[k].(float64); ok {
			page.Total = int(n)
			page.TotalReported = true
			break
		}
	}
	page.Next = page.Meta.String("next")
	page.Previous = page.Meta.String("previous")
	return page, nil
}

func decodeItems(raw []byte) ([]Record, error) {
	var items []Record
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &HTTPError{Kind: KindDecode, Message: "unexpected list item shape: " + err.Error()}
	}
	if items == nil {
		items = []Record{}
	}
	return items, nil
}

// TotalPages returns how many pages of pageSize are needed for total items.
func TotalPages(total, pageSize int) int {
	if total <= 0 {
		return 0
	}
	if pageSize <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}
