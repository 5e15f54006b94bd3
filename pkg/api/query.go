package api

import (
	"fmt"

	"github.com/google/go-querystring/query"
)

// Query is a flat set of URL query parameters.
type Query map[string]string

// Clone returns a copy of q that is never nil.
func (q Query) Clone() Query {
	out := make(Query, len(q))
	for k, v := range q {
		out[k] = v
	}
	return out
}

// With returns a copy of q with key set to value. An empty value removes the
// key.
func (q Query) With(key, value string) Query {
	out := q.Clone()
	if value == "" {
		delete(out, key)
	} else {
		out[key] = value
	}
	return out
}

// QueryFrom builds a Query from a struct tagged with `url:"..."` tags.
// Repeated values collapse to the first one.
func QueryFrom(v any) (Query, error) {
	values, err := query.Values(v)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	out := make(Query, len(values))
	for k, vs := range values {
		if len(vs) > 0 && vs[0] != "" {
			out[k] = vs[0]
		}
	}
	return out, nil
}

// ListOptions are the filters shared by the admin list endpoints.
type ListOptions struct {
	Page     int    `url:"page,omitempty"`
	PageSize int    `url:"page_size,omitempty"`
	Status   string `url:"status,omitempty"`
	Search   string `url:"search,omitempty"`
	Vendor   string `url:"vendor,omitempty"`
	Range    string `url:"range,omitempty"`
}
