package console

import (
	"strings"

	"github.com/shopsphere/shopctl/pkg/api"
)

// Status values the console derives when the backend omits them.
const (
	StatusActive   = "ACTIVE"
	StatusBlocked  = "BLOCKED"
	StatusInactive = "INACTIVE"
	StatusPending  = "PENDING"
)

// normalizeAccount derives status from is_blocked for vendors and delivery
// agents.
func normalizeAccount(r api.Record) api.Record {
	if r.Has("status") {
		return upperField(r, "status")
	}
	status := StatusActive
	if r.Bool("is_blocked") {
		status = StatusBlocked
	}
	return r.Merge(api.Record{"status": status})
}

// normalizeUser derives status from is_blocked, then is_active.
func normalizeUser(r api.Record) api.Record {
	if r.Has("status") {
		return upperField(r, "status")
	}
	status := StatusActive
	switch {
	case r.Bool("is_blocked"):
		status = StatusBlocked
	case r.Has("is_active") && !r.Bool("is_active"):
		status = StatusInactive
	}
	return r.Merge(api.Record{"status": status})
}

// normalizeRequest defaults approval_status of onboarding requests.
func normalizeRequest(r api.Record) api.Record {
	if r.Has("approval_status") {
		return upperField(r, "approval_status")
	}
	return r.Merge(api.Record{"approval_status": StatusPending})
}

func normalizeProduct(r api.Record) api.Record {
	if r.Has("status") {
		return upperField(r, "status")
	}
	status := StatusActive
	if r.Has("is_active") && !r.Bool("is_active") {
		status = StatusInactive
	}
	return r.Merge(api.Record{"status": status})
}

func upperField(r api.Record, key string) api.Record {
	s, ok := r[key].(string)
	if !ok || s == strings.ToUpper(s) {
		return r
	}
	return r.Merge(api.Record{key: strings.ToUpper(s)})
}
