package mutation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopsphere/shopctl/pkg/api"
	"github.com/shopsphere/shopctl/pkg/journal"
	"github.com/shopsphere/shopctl/pkg/resource"
)

type captured struct {
	method string
	path   string
	body   map[string]any
}

// backend answers every request with status and body and remembers what it
// was asked.
func backend(t *testing.T, status int, body string) (*api.Client, *[]captured) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []captured
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := captured{method: r.Method, path: r.URL.Path}
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			json.Unmarshal(raw, &c.body)
		}
		mu.Lock()
		calls = append(calls, c)
		mu.Unlock()
		if r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"id":7,"approval_status":"PENDING","store_name":"Seven"},{"id":8,"approval_status":"PENDING","store_name":"Eight"}]`))
			return
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return api.NewClient(srv.URL), &calls
}

func TestActionTable(t *testing.T) {
	tests := []struct {
		entity, action string
		method         string
		path           string
		policy         Policy
		confirm        bool
	}{
		{EntityVendorRequest, "approve", "POST", "/superAdmin/api/vendor-requests/7/approve/", Optimistic, false},
		{EntityVendorRequest, "reject", "POST", "/superAdmin/api/vendor-requests/7/reject/", Optimistic, true},
		{EntityVendor, "block", "POST", "/superAdmin/api/vendors/7/block/", Optimistic, true},
		{EntityAgent, "unblock", "POST", "/superAdmin/api/delivery-agents/7/unblock/", Optimistic, false},
		{EntityUser, "block", "POST", "/superAdmin/api/users/7/toggle-block/", Optimistic, true},
		{EntityProduct, "toggle-status", "POST", "/superAdmin/api/products/7/toggle-status/", Optimistic, false},
		{EntityOrder, "settle-payment", "POST", "/superAdmin/api/settle-payment/7/", Reload, true},
		{EntityCommission, "set-global", "PATCH", "/superAdmin/api/commission-settings/global/", Reload, false},
		{EntityCommission, "delete-category", "DELETE", "/superAdmin/api/commission-settings/categories/7/", Reload, true},
	}
	for _, tc := range tests {
		t.Run(tc.entity+"/"+tc.action, func(t *testing.T) {
			a, ok := Lookup(tc.entity, tc.action)
			if !ok {
				t.Fatal("action not found")
			}
			if a.Method != tc.method || a.URL("7") != tc.path {
				t.Errorf("got %s %s, want %s %s", a.Method, a.URL("7"), tc.method, tc.path)
			}
			if a.Policy != tc.policy || a.Confirm != tc.confirm {
				t.Errorf("policy=%s confirm=%v", a.Policy, a.Confirm)
			}
		})
	}

	// Status flips are optimistic, money movements reload.
	for _, a := range Actions() {
		financial := a.Entity == EntityOrder || a.Entity == EntityCommission
		if financial && a.Policy != Reload {
			t.Errorf("%s/%s should reload", a.Entity, a.Name)
		}
		if !financial && a.Policy != Optimistic {
			t.Errorf("%s/%s should be optimistic", a.Entity, a.Name)
		}
	}
	if _, ok := Lookup(EntityVendor, "delete"); ok {
		t.Error("vendor/delete should not exist")
	}
	if got := len(ActionsFor(EntityCommission)); got != 4 {
		t.Errorf("commission actions = %d, want 4", got)
	}
}

func TestPerformSendsReasonAndFields(t *testing.T) {
	c, calls := backend(t, http.StatusOK, `{"id":5,"status":"BLOCKED","message":"Vendor blocked"}`)
	f := NewFacade(c)

	fields, err := f.Perform(context.Background(), EntityVendor, "block", "5", Params{Reason: "fraud", Fields: map[string]any{"notify": true}})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	got := (*calls)[0]
	if got.method != "POST" || got.path != "/superAdmin/api/vendors/5/block/" {
		t.Errorf("request = %s %s", got.method, got.path)
	}
	if got.body["reason"] != "fraud" || got.body["notify"] != true {
		t.Errorf("body = %v", got.body)
	}
	if fields.String("status") != "BLOCKED" || fields.String("message") != "Vendor blocked" {
		t.Errorf("fields = %v", fields)
	}

	a, _ := Lookup(EntityVendor, "block")
	patch := Patch(a, fields)
	if patch.Has("message") || patch.String("status") != "BLOCKED" || !patch.Bool("is_blocked") {
		t.Errorf("patch = %v", patch)
	}
}

func TestPerformFallbackOnEmptyBody(t *testing.T) {
	c, calls := backend(t, http.StatusNoContent, "")
	fields, err := NewFacade(c).Perform(context.Background(), EntityAgent, "unblock", "3", Params{})
	if err != nil {
		t.Fatal(err)
	}
	if fields.String("status") != "ACTIVE" || fields.Bool("is_blocked") {
		t.Errorf("fields = %v, want fallback", fields)
	}
	if (*calls)[0].body != nil {
		t.Errorf("expected no body, got %v", (*calls)[0].body)
	}
}

func TestPerformErrors(t *testing.T) {
	c, calls := backend(t, http.StatusConflict, `{"error":"Request already processed"}`)
	f := NewFacade(c)
	ctx := context.Background()

	_, err := f.Perform(ctx, EntityVendorRequest, "approve", "7", Params{})
	he, ok := api.AsHTTPError(err)
	if !ok || he.Status != 409 || he.Message != "Request already processed" {
		t.Errorf("err = %v", err)
	}

	if _, err := f.Perform(ctx, EntityVendor, "explode", "7", Params{}); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("err = %v, want ErrUnknownAction", err)
	}
	if _, err := f.Perform(ctx, EntityVendor, "block", "../7", Params{}); err == nil {
		t.Error("expected invalid id error")
	}
	if len(*calls) != 1 {
		t.Errorf("backend saw %d calls, want 1", len(*calls))
	}
}

func TestApproveVendorRequestPatchesOnlyTarget(t *testing.T) {
	c, _ := backend(t, http.StatusOK, `{"id":7,"approval_status":"approved"}`)
	ss := api.NewShopSphere(c)
	store := resource.New(resource.Spec{
		Name: "vendor-requests",
		Fetch: func(ctx context.Context, q api.Query) (api.Page, error) {
			return ss.List(ctx, api.VendorRequests, q)
		},
	})
	ctx := context.Background()
	if err := store.Load(ctx, nil); err != nil {
		t.Fatal(err)
	}
	before := store.Snapshot()

	jr := journal.NewMemory()
	ex := NewExecutor(NewFacade(c), WithJournal(jr), WithOperator("root@shopsphere.test"))
	p, err := NewPending(EntityVendorRequest, "approve", "7", Params{}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	res, err := ex.Execute(ctx, p, store)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Patched {
		t.Fatal("record 7 was not patched")
	}

	after := store.Snapshot()
	for i, rec := range after.Items {
		prev := before.Items[i]
		switch rec.ID() {
		case "7":
			if rec.String("approval_status") != "approved" {
				t.Errorf("approval_status = %q", rec.String("approval_status"))
			}
			if rec.String("store_name") != "Seven" {
				t.Errorf("store_name changed to %q", rec.String("store_name"))
			}
		default:
			if rec.String("approval_status") != prev.String("approval_status") {
				t.Errorf("record %s changed", rec.ID())
			}
		}
	}

	entries, _ := jr.List(ctx, journal.Filter{})
	if len(entries) != 1 || entries[0].Outcome != journal.OutcomeOK || entries[0].Operator != "root@shopsphere.test" || entries[0].ID != p.ID {
		t.Errorf("journal = %+v", entries)
	}
}

type fakeStore struct {
	patched  map[string]api.Record
	reloads  int
	reloadFn func() error
}

func (f *fakeStore) ApplyLocalPatch(id string, patch api.Record) bool {
	if f.patched == nil {
		f.patched = map[string]api.Record{}
	}
	f.patched[id] = patch
	return true
}

func (f *fakeStore) Reload(context.Context) error {
	f.reloads++
	if f.reloadFn != nil {
		return f.reloadFn()
	}
	return nil
}

type countingObserver struct{ outcomes []string }

func (o *countingObserver) ObserveMutation(entity, action, outcome string) {
	o.outcomes = append(o.outcomes, entity+"/"+action+"="+outcome)
}

func TestExecutorRequiresConfirmation(t *testing.T) {
	c, calls := backend(t, http.StatusOK, `{}`)
	ex := NewExecutor(NewFacade(c))
	p, _ := NewPending(EntityOrder, "settle-payment", "991", Params{}, time.Now())
	if p.Confirmed {
		t.Fatal("settle-payment should start unconfirmed")
	}
	if _, err := ex.Execute(context.Background(), p, nil); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("err = %v, want ErrNotConfirmed", err)
	}
	if len(*calls) != 0 {
		t.Error("unconfirmed action reached the backend")
	}
}

func TestExecutorReloadPolicy(t *testing.T) {
	c, _ := backend(t, http.StatusOK, `{"message":"Payment settled"}`)
	obs := &countingObserver{}
	ex := NewExecutor(NewFacade(c), WithObserver(obs))
	p, _ := NewPending(EntityOrder, "settle-payment", "991", Params{}, time.Now())
	p.Confirmed = true

	fs := &fakeStore{}
	res, err := ex.Execute(context.Background(), p, fs)
	if err != nil {
		t.Fatal(err)
	}
	if fs.reloads != 1 || len(fs.patched) != 0 || !res.Reloaded {
		t.Errorf("reloads=%d patched=%v reloaded=%v", fs.reloads, fs.patched, res.Reloaded)
	}

	fs.reloadFn = func() error { return errors.New("backend down") }
	res, err = ex.Execute(context.Background(), p, fs)
	if err != nil {
		t.Fatalf("action should still succeed: %v", err)
	}
	if res.ReloadErr == nil || res.Reloaded {
		t.Errorf("ReloadErr = %v, Reloaded = %v", res.ReloadErr, res.Reloaded)
	}
	if len(obs.outcomes) != 2 || obs.outcomes[0] != "order/settle-payment=ok" {
		t.Errorf("outcomes = %v", obs.outcomes)
	}
}

func TestExecutorFailureLeavesStoreAlone(t *testing.T) {
	c, _ := backend(t, http.StatusForbidden, `{"detail":"Not allowed"}`)
	jr := journal.NewMemory()
	obs := &countingObserver{}
	ex := NewExecutor(NewFacade(c), WithJournal(jr), WithObserver(obs))
	p, _ := NewPending(EntityProduct, "toggle-status", "4", Params{}, time.Now())

	fs := &fakeStore{}
	_, err := ex.Execute(context.Background(), p, fs)
	if he, ok := api.AsHTTPError(err); !ok || he.Status != 403 || he.Message != "Not allowed" {
		t.Fatalf("err = %v", err)
	}
	if len(fs.patched) != 0 || fs.reloads != 0 {
		t.Error("store touched after failure")
	}
	entries, _ := jr.List(context.Background(), journal.Filter{})
	if len(entries) != 1 || entries[0].Outcome != journal.OutcomeError || entries[0].Status != 403 {
		t.Errorf("journal = %+v", entries)
	}
	if len(obs.outcomes) != 1 || obs.outcomes[0] != "product/toggle-status=error" {
		t.Errorf("outcomes = %v", obs.outcomes)
	}
}

func TestQueue(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q := NewQueue(func() time.Time { now = now.Add(time.Millisecond); return now })

	first, err := q.Propose(EntityVendor, "block", "12", Params{Reason: "spam"})
	if err != nil {
		t.Fatal(err)
	}
	if first.Confirmed {
		t.Error("block should need confirmation")
	}
	if _, err := q.Propose(EntityVendor, "fly", "12", Params{}); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("err = %v", err)
	}

	// A second proposal on the same target replaces the first.
	second, _ := q.Propose(EntityVendor, "unblock", "12", Params{})
	if _, ok := q.Get(first.ID); ok {
		t.Error("replaced action still queued")
	}
	if got, ok := q.ForTarget(EntityVendor, "12"); !ok || got.ID != second.ID {
		t.Errorf("ForTarget = %+v", got)
	}

	other, _ := q.Propose(EntityUser, "block", "3", Params{})
	if q.Len() != 2 {
		t.Fatalf("Len = %d, want 2", q.Len())
	}
	list := q.List()
	if list[0].ID != second.ID || list[1].ID != other.ID {
		t.Errorf("List order = %s, %s", list[0].ID, list[1].ID)
	}

	confirmed, err := q.Confirm(other.ID)
	if err != nil || !confirmed.Confirmed {
		t.Fatalf("Confirm = %+v, %v", confirmed, err)
	}
	if _, err := q.Confirm("nope"); !errors.Is(err, ErrNoPending) {
		t.Errorf("err = %v, want ErrNoPending", err)
	}
	if !q.Discard(second.ID) || q.Discard(second.ID) {
		t.Error("Discard should succeed once")
	}
	if !q.Resolve(other.ID) || q.Len() != 0 {
		t.Errorf("Resolve left %d pending", q.Len())
	}
	if got := confirmed.Describe(); got != "block user 3" {
		t.Errorf("Describe = %q", got)
	}
}

func TestPatchUnwrapsNestedRecord(t *testing.T) {
	a, _ := Lookup(EntityVendor, "block")
	patch := Patch(a, api.Record{
		"message": "Vendor blocked",
		"vendor":  map[string]any{"id": float64(5), "status": "BLOCKED", "is_blocked": true},
		"meta":    map[string]any{"request": "abc"},
	})
	if patch.Has("vendor") || patch.Has("meta") || patch.Has("message") {
		t.Errorf("nested objects leaked into patch: %v", patch)
	}
	if patch.String("status") != "BLOCKED" || !patch.Bool("is_blocked") || patch.ID() != "5" {
		t.Errorf("patch = %v", patch)
	}

	a, _ = Lookup(EntityAgentRequest, "approve")
	patch = Patch(a, api.Record{"delivery_request": map[string]any{"approval_status": "APPROVED", "review_reason": "ok"}})
	if patch.String("approval_status") != "APPROVED" || patch.String("review_reason") != "ok" {
		t.Errorf("patch = %v", patch)
	}
}
