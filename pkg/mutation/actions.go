// Package mutation is the Mutation Facade: intent-named admin actions mapped
// onto backend endpoints, together with the policy that says how the local
// Resource Store is reconciled afterwards.
package mutation

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/shopsphere/shopctl/pkg/api"
)

// Sentinel errors.
var (
	ErrUnknownAction = errors.New("unknown action")
	ErrNotConfirmed  = errors.New("action requires confirmation")
)

// Policy says how a store is reconciled after a successful action.
type Policy int

const (
	// Optimistic patches the target record locally with the returned fields.
	Optimistic Policy = iota
	// Reload refetches the whole collection. Used where downstream
	// aggregates cannot be computed client-side.
	Reload
)

func (p Policy) String() string {
	if p == Reload {
		return "reload"
	}
	return "optimistic"
}

// Entities.
const (
	EntityVendorRequest = "vendor-request"
	EntityVendor        = "vendor"
	EntityAgent         = "agent"
	EntityAgentRequest  = "agent-request"
	EntityUser          = "user"
	EntityProduct       = "product"
	EntityOrder         = "order"
	EntityCommission    = "commission"
)

// Action is one entry of the action vocabulary.
type Action struct {
	Entity string
	Name   string
	Method string
	// Path is relative to /superAdmin/api/; "{id}" is replaced by the target.
	Path   string
	Policy Policy
	// Confirm marks destructive actions that need explicit confirmation.
	Confirm bool
	// Fallback is the patch applied when the backend returns no usable
	// fields.
	Fallback api.Record
}

// NeedsID reports whether the action addresses a single entity.
func (a Action) NeedsID() bool {
	return strings.Contains(a.Path, "{id}")
}

// URL returns the request path for target id.
func (a Action) URL(id string) string {
	return api.AdminPath(strings.ReplaceAll(a.Path, "{id}", id))
}

func (a Action) key() string { return a.Entity + "/" + a.Name }

var (
	blocked   = api.Record{"status": "BLOCKED", "is_blocked": true}
	unblocked = api.Record{"status": "ACTIVE", "is_blocked": false}
	approved  = api.Record{"approval_status": "APPROVED"}
	rejected  = api.Record{"approval_status": "REJECTED"}
)

var actions = []Action{
	{Entity: EntityVendorRequest, Name: "approve", Method: http.MethodPost, Path: "vendor-requests/{id}/approve", Policy: Optimistic, Fallback: approved},
	{Entity: EntityVendorRequest, Name: "reject", Method: http.MethodPost, Path: "vendor-requests/{id}/reject", Policy: Optimistic, Confirm: true, Fallback: rejected},
	{Entity: EntityVendor, Name: "block", Method: http.MethodPost, Path: "vendors/{id}/block", Policy: Optimistic, Confirm: true, Fallback: blocked},
	{Entity: EntityVendor, Name: "unblock", Method: http.MethodPost, Path: "vendors/{id}/unblock", Policy: Optimistic, Fallback: unblocked},
	{Entity: EntityAgent, Name: "block", Method: http.MethodPost, Path: "delivery-agents/{id}/block", Policy: Optimistic, Confirm: true, Fallback: blocked},
	{Entity: EntityAgent, Name: "unblock", Method: http.MethodPost, Path: "delivery-agents/{id}/unblock", Policy: Optimistic, Fallback: unblocked},
	{Entity: EntityAgentRequest, Name: "approve", Method: http.MethodPost, Path: "delivery-requests/{id}/approve", Policy: Optimistic, Fallback: approved},
	{Entity: EntityAgentRequest, Name: "reject", Method: http.MethodPost, Path: "delivery-requests/{id}/reject", Policy: Optimistic, Confirm: true, Fallback: rejected},
	{Entity: EntityUser, Name: "block", Method: http.MethodPost, Path: "users/{id}/toggle-block", Policy: Optimistic, Confirm: true, Fallback: blocked},
	{Entity: EntityUser, Name: "unblock", Method: http.MethodPost, Path: "users/{id}/toggle-block", Policy: Optimistic, Fallback: unblocked},
	{Entity: EntityProduct, Name: "toggle-status", Method: http.MethodPost, Path: "products/{id}/toggle-status", Policy: Optimistic},
	{Entity: EntityOrder, Name: "settle-payment", Method: http.MethodPost, Path: "settle-payment/{id}", Policy: Reload, Confirm: true},
	{Entity: EntityCommission, Name: "set-global", Method: http.MethodPatch, Path: "commission-settings/global", Policy: Reload},
	{Entity: EntityCommission, Name: "set-category", Method: http.MethodPost, Path: "commission-settings/categories", Policy: Reload},
	{Entity: EntityCommission, Name: "update-category", Method: http.MethodPatch, Path: "commission-settings/categories/{id}", Policy: Reload},
	{Entity: EntityCommission, Name: "delete-category", Method: http.MethodDelete, Path: "commission-settings/categories/{id}", Policy: Reload, Confirm: true},
}

var byKey = func() map[string]Action {
	m := make(map[string]Action, len(actions))
	for _, a := range actions {
		m[a.key()] = a
	}
	return m
}()

// Lookup returns the action for entity and name.
func Lookup(entity, name string) (Action, bool) {
	a, ok := byKey[entity+"/"+name]
	return a, ok
}

// Actions returns the whole vocabulary, sorted by entity then name.
func Actions() []Action {
	out := make([]Action, len(actions))
	copy(out, actions)
	sort.Slice(out, func(i, j int) bool { return out[i].key() < out[j].key() })
	return out
}

// ActionsFor returns the actions available on entity.
func ActionsFor(entity string) []Action {
	var out []Action
	for _, a := range Actions() {
		if a.Entity == entity {
			out = append(out, a)
		}
	}
	return out
}
