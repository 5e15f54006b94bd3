package mutation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopsphere/shopctl/pkg/api"
)

// Params are the optional inputs of an action.
type Params struct {
	// Reason is sent as {"reason": ...} when set.
	Reason string
	// Fields are merged into the request body, e.g. {"rate": 12.5}.
	Fields map[string]any
}

func (p Params) body() map[string]any {
	if p.Reason == "" && len(p.Fields) == 0 {
		return nil
	}
	b := make(map[string]any, len(p.Fields)+1)
	for k, v := range p.Fields {
		b[k] = v
	}
	if p.Reason != "" {
		b["reason"] = p.Reason
	}
	return b
}

// Facade performs admin actions against the backend. It never touches a
// store; reconciliation is the caller's (or the Executor's) job.
type Facade struct {
	d api.Doer
}

// NewFacade returns a facade issuing requests through d.
func NewFacade(d api.Doer) *Facade {
	return &Facade{d: d}
}

// Perform runs action on the entity with id. It returns the fields of the
// backend's response object, or the action's fallback patch when the
// response carried none. Failures are returned as *api.HTTPError; nothing
// is retried.
func (f *Facade) Perform(ctx context.Context, entity, action, id string, p Params) (api.Record, error) {
	a, ok := Lookup(entity, action)
	if !ok {
		return nil, fmt.Errorf("%w %q for %s", ErrUnknownAction, action, entity)
	}
	if a.NeedsID() {
		if err := api.ValidateID(id); err != nil {
			return nil, fmt.Errorf("invalid %s id: %w", entity, err)
		}
	}

	var body any
	if b := p.body(); b != nil {
		body = b
	}
	raw, err := f.d.Do(ctx, a.Method, a.URL(id), body, nil)
	if err != nil {
		return nil, err
	}
	return responseFields(a, raw), nil
}

func responseFields(a Action, raw json.RawMessage) api.Record {
	if len(raw) > 0 {
		var rec api.Record
		if err := json.Unmarshal(raw, &rec); err == nil && rec != nil {
			return rec
		}
	}
	return a.Fallback.Clone()
}

// informational response keys that are not entity fields.
var notFields = map[string]bool{"message": true, "detail": true, "success": true, "error": true}

// wrapperKeys are the keys under which a backend may nest the updated
// record, e.g. {"vendor": {...}, "message": "..."}.
func wrapperKeys(entity string) []string {
	keys := []string{entity, strings.ReplaceAll(entity, "-", "_")}
	switch entity {
	case EntityAgent:
		keys = append(keys, "delivery_agent")
	case EntityAgentRequest:
		keys = append(keys, "delivery_request", "request")
	case EntityVendorRequest:
		keys = append(keys, "request")
	}
	return append(keys, "data")
}

// Patch returns the local patch for a successful action: the fallback
// overlaid with the entity fields the backend returned. A record nested
// under a wrapper key is unwrapped; any other nested object is not an entity
// field and is left out.
func Patch(a Action, fields api.Record) api.Record {
	patch := a.Fallback.Clone()
	for k, v := range fields {
		if _, nested := v.(map[string]any); nested || notFields[k] {
			continue
		}
		patch[k] = v
	}
	for _, key := range wrapperKeys(a.Entity) {
		inner, ok := fields[key].(map[string]any)
		if !ok {
			continue
		}
		for k, v := range inner {
			if _, nested := v.(map[string]any); !nested && !notFields[k] {
				patch[k] = v
			}
		}
		break
	}
	return patch
}
