package console

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopsphere/shopctl/pkg/api"
	"github.com/shopsphere/shopctl/pkg/mutation"
)

// ErrNoChange is returned by CheckTransition when the loaded record is
// already in the state the action would move it to.
var ErrNoChange = errors.New("nothing to change")

// CheckTransition compares an action with the locally loaded record. The
// user toggle endpoint flips whatever state the backend holds, so blocking
// an already blocked user would unblock it; the same check keeps requests
// from being decided twice. rec may be nil when the target is not loaded.
func CheckTransition(entity, action string, rec api.Record) error {
	if rec == nil {
		return nil
	}
	switch action {
	case "block":
		if strings.EqualFold(rec.String("status"), StatusBlocked) {
			return fmt.Errorf("%s %s is already blocked: %w", entity, rec.ID(), ErrNoChange)
		}
	case "unblock":
		if rec.Has("status") && !strings.EqualFold(rec.String("status"), StatusBlocked) {
			return fmt.Errorf("%s %s is not blocked: %w", entity, rec.ID(), ErrNoChange)
		}
	case "approve", "reject":
		if entity != mutation.EntityVendorRequest && entity != mutation.EntityAgentRequest {
			return nil
		}
		if s := rec.String("approval_status"); s != "" && !strings.EqualFold(s, StatusPending) {
			return fmt.Errorf("%s %s was already %s: %w", entity, rec.ID(), s, ErrNoChange)
		}
	}
	return nil
}

// SettleTarget returns the id of the first order item whose vendor payout
// has not been settled yet.
func SettleTarget(order api.Record) (string, bool) {
	items, _ := order["items"].([]any)
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if !strings.EqualFold(api.Record(item).String("payout_status"), "SETTLED") {
			return api.Record(item).ID(), true
		}
	}
	return "", false
}
