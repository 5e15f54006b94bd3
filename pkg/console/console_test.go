package console

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopsphere/shopctl/pkg/api"
	"github.com/shopsphere/shopctl/pkg/devserver"
	"github.com/shopsphere/shopctl/pkg/mutation"
	"github.com/shopsphere/shopctl/pkg/resource"
)

func newConsole(t *testing.T) (*Console, *devserver.Server) {
	t.Helper()
	srv := devserver.New(devserver.Options{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	token := srv.IssueToken(devserver.DefaultAdminEmail)
	c := api.NewClient(ts.URL, api.WithTokenSource(api.TokenFunc(func(context.Context) (string, error) {
		return token, nil
	})))
	return New(api.NewShopSphere(c), nil), srv
}

func TestNormalizers(t *testing.T) {
	tests := []struct {
		name string
		fn   func(api.Record) api.Record
		in   api.Record
		key  string
		want string
	}{
		{"blocked account", normalizeAccount, api.Record{"is_blocked": true}, "status", StatusBlocked},
		{"explicit status wins", normalizeAccount, api.Record{"is_blocked": true, "status": "active"}, "status", StatusActive},
		{"inactive user", normalizeUser, api.Record{"is_active": false}, "status", StatusInactive},
		{"blocked user", normalizeUser, api.Record{"is_active": false, "is_blocked": true}, "status", StatusBlocked},
		{"plain user", normalizeUser, api.Record{"email": "a@b.c"}, "status", StatusActive},
		{"request default", normalizeRequest, api.Record{}, "approval_status", StatusPending},
		{"request lower-case", normalizeRequest, api.Record{"approval_status": "approved"}, "approval_status", "APPROVED"},
		{"inactive product", normalizeProduct, api.Record{"is_active": false}, "status", StatusInactive},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := tc.in.Clone()
			got := tc.fn(tc.in)
			if got.String(tc.key) != tc.want {
				t.Errorf("%s = %q, want %q", tc.key, got.String(tc.key), tc.want)
			}
			if len(tc.in) != len(in) {
				t.Error("normalizer mutated its input")
			}
		})
	}
}

func TestUsersStoreUsesServerStats(t *testing.T) {
	c, _ := newConsole(t)
	if err := c.Users.Load(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	st := c.Users.Snapshot()
	if st.Stats["total"] != 5 || st.Stats["active"] != 3 || st.Stats["blocked"] != 1 {
		t.Errorf("stats = %v", st.Stats)
	}
	// inactive is not reported by the server, so it is counted locally.
	if st.Stats["inactive"] != 1 {
		t.Errorf("inactive = %d, want 1", st.Stats["inactive"])
	}
	for _, u := range st.Items {
		if u.String("status") == "" {
			t.Errorf("user %s has no derived status", u.ID())
		}
	}
}

func TestLoadAll(t *testing.T) {
	c, _ := newConsole(t)
	entities := []string{
		mutation.EntityUser, mutation.EntityVendor, mutation.EntityVendorRequest, mutation.EntityAgent,
		mutation.EntityAgentRequest, mutation.EntityProduct, mutation.EntityOrder, mutation.EntityCommission,
	}
	if err := c.LoadAll(context.Background(), entities...); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	for entity, s := range c.Stores() {
		if st := s.Snapshot(); st.Phase != resource.Loaded || len(st.Items) == 0 {
			t.Errorf("%s: phase=%s items=%d", entity, st.Phase, len(st.Items))
		}
	}
	if err := c.LoadAll(context.Background(), "spaceship"); err == nil {
		t.Error("expected error for unknown entity")
	}
}

func TestExecuteBlockVendor(t *testing.T) {
	c, srv := newConsole(t)
	ctx := context.Background()
	if err := c.Vendors.Load(ctx, nil); err != nil {
		t.Fatal(err)
	}

	p, err := c.Queue.Propose(mutation.EntityVendor, "block", "1", mutation.Params{Reason: "chargebacks"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Execute(ctx, p); err == nil {
		t.Fatal("unconfirmed block should be refused")
	}
	p, _ = c.Queue.Confirm(p.ID)
	res, err := c.Execute(ctx, p)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	c.Queue.Resolve(p.ID)

	if !res.Patched {
		t.Error("vendor 1 not patched locally")
	}
	rec, _ := c.Vendors.Find("1")
	if rec.String("status") != StatusBlocked || !rec.Bool("is_blocked") {
		t.Errorf("local vendor = %v", rec)
	}
	if rec.Has("message") {
		t.Error("response message leaked into the record")
	}
	backend, _ := srv.Store().Get("vendors", "1")
	if !backend.Bool("is_blocked") {
		t.Error("backend vendor not blocked")
	}
	if c.Queue.Len() != 0 {
		t.Errorf("queue = %d", c.Queue.Len())
	}
}

func TestExecuteSettleReloadsOrders(t *testing.T) {
	c, _ := newConsole(t)
	ctx := context.Background()
	if err := c.Orders.Load(ctx, api.Query{"status": "DELIVERED"}); err != nil {
		t.Fatal(err)
	}
	seq := c.Orders.Snapshot().Seq

	p, _ := c.Queue.Propose(mutation.EntityOrder, "settle-payment", "102", mutation.Params{})
	p, _ = c.Queue.Confirm(p.ID)
	res, err := c.Execute(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Reloaded {
		t.Error("orders should be reloaded after settlement")
	}
	st := c.Orders.Snapshot()
	if st.Seq == seq || st.Query["status"] != "DELIVERED" {
		t.Errorf("seq=%d query=%v", st.Seq, st.Query)
	}
	rec, ok := c.Orders.Find("2")
	if !ok || rec.String("payout_status") != "SETTLED" {
		t.Errorf("order 2 = %v", rec)
	}
}

func TestOverview(t *testing.T) {
	c, _ := newConsole(t)
	ov, err := c.Overview(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ov.Errors) != 0 {
		t.Errorf("errors = %v", ov.Errors)
	}
	if ov.Balance() != 1250.75 {
		t.Errorf("balance = %v", ov.Balance())
	}
	found := false
	for _, cnt := range ov.Counts() {
		if cnt.Name == "total_users" && cnt.Value == 5 {
			found = true
		}
	}
	if !found {
		t.Errorf("counts = %v", ov.Counts())
	}
}

func TestOverviewPartialFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == api.WalletPath {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"balance":"42.10"}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()
	c := New(api.NewShopSphere(api.NewClient(ts.URL)), nil)

	ov, err := c.Overview(context.Background())
	if err != nil {
		t.Fatalf("partial failure should not be an error: %v", err)
	}
	if ov.Balance() != 42.10 {
		t.Errorf("balance = %v", ov.Balance())
	}
	if ov.Errors[SourceDashboard] == nil || len(ov.Dashboard) != 0 {
		t.Errorf("dashboard = %v errors = %v", ov.Dashboard, ov.Errors)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	c = New(api.NewShopSphere(api.NewClient(down.URL)), nil)
	if _, err := c.Overview(context.Background()); err == nil {
		t.Error("expected error when every source fails")
	}
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		entity, action string
		rec            api.Record
		noChange       bool
	}{
		{mutation.EntityUser, "block", api.Record{"id": 2.0, "status": StatusBlocked}, true},
		{mutation.EntityUser, "block", api.Record{"id": 1.0, "status": StatusActive}, false},
		{mutation.EntityUser, "unblock", api.Record{"id": 1.0, "status": StatusActive}, true},
		{mutation.EntityVendor, "unblock", api.Record{"id": 3.0, "status": StatusBlocked}, false},
		{mutation.EntityVendorRequest, "approve", api.Record{"id": 3.0, "approval_status": "REJECTED"}, true},
		{mutation.EntityAgentRequest, "reject", api.Record{"id": 1.0, "approval_status": StatusPending}, false},
		{mutation.EntityVendor, "block", nil, false},
	}
	for _, tc := range tests {
		err := CheckTransition(tc.entity, tc.action, tc.rec)
		if got := errors.Is(err, ErrNoChange); got != tc.noChange {
			t.Errorf("%s %s %v: err = %v", tc.action, tc.entity, tc.rec, err)
		}
	}
}

func TestSettleTarget(t *testing.T) {
	order := api.Record{"items": []any{
		map[string]any{"id": 101.0, "payout_status": "SETTLED"},
		map[string]any{"id": 102.0, "payout_status": "PENDING"},
	}}
	if id, ok := SettleTarget(order); !ok || id != "102" {
		t.Errorf("SettleTarget = %q, %v", id, ok)
	}
	if _, ok := SettleTarget(api.Record{"items": []any{}}); ok {
		t.Error("empty order has a settle target")
	}
}

func TestGetNormalizes(t *testing.T) {
	c, _ := newConsole(t)
	rec, err := c.Get(context.Background(), mutation.EntityUser, "2")
	if err != nil {
		t.Fatal(err)
	}
	if rec.String("status") != StatusBlocked {
		t.Errorf("user 2 = %v", rec)
	}
	if _, err := c.Get(context.Background(), "warehouse", "1"); err == nil {
		t.Error("expected error for unknown entity")
	}
	_, err = c.Get(context.Background(), mutation.EntityVendor, "99")
	if he, ok := api.AsHTTPError(err); !ok || he.Status != http.StatusNotFound {
		t.Errorf("missing vendor err = %v", err)
	}
}

func TestLowerCasePatchKeepsTransitionGuard(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /superAdmin/api/users/{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"users": [{"id": 1, "email": "a@example.com", "is_blocked": false}], "total": 1}`))
	})
	mux.HandleFunc("POST /superAdmin/api/users/1/toggle-block/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 1, "status": "blocked", "message": "User blocked"}`))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	c := New(api.NewShopSphere(api.NewClient(ts.URL)), nil)
	ctx := context.Background()
	if err := c.Users.Load(ctx, nil); err != nil {
		t.Fatal(err)
	}

	p, err := mutation.NewPending(mutation.EntityUser, "block", "1", mutation.Params{}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	p.Confirmed = true
	if _, err := c.Execute(ctx, p); err != nil {
		t.Fatal(err)
	}
	rec, _ := c.Users.Find("1")
	if rec.String("status") != StatusBlocked {
		t.Errorf("patched status = %q, want %q", rec.String("status"), StatusBlocked)
	}
	if err := CheckTransition(mutation.EntityUser, "block", rec); !errors.Is(err, ErrNoChange) {
		t.Errorf("block on blocked user = %v", err)
	}
	if err := CheckTransition(mutation.EntityUser, "unblock", rec); err != nil {
		t.Errorf("unblock on blocked user = %v", err)
	}
}

func TestCheckTransitionIgnoresCase(t *testing.T) {
	tests := []struct {
		entity, action string
		rec            api.Record
		refused        bool
	}{
		{mutation.EntityVendor, "block", api.Record{"id": "1", "status": "blocked"}, true},
		{mutation.EntityVendor, "unblock", api.Record{"id": "1", "status": "Blocked"}, false},
		{mutation.EntityUser, "unblock", api.Record{"id": "1", "status": "active"}, true},
		{mutation.EntityVendorRequest, "approve", api.Record{"id": "1", "approval_status": "pending"}, false},
		{mutation.EntityAgentRequest, "reject", api.Record{"id": "1", "approval_status": "approved"}, true},
	}
	for _, tc := range tests {
		err := CheckTransition(tc.entity, tc.action, tc.rec)
		if got := errors.Is(err, ErrNoChange); got != tc.refused {
			t.Errorf("%s %s on %v: err = %v", tc.action, tc.entity, tc.rec, err)
		}
	}
}

// listOnlyUsers serves the users collection and its toggle endpoint, but no
// detail endpoint.
func listOnlyUsers(t *testing.T, toggled *int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /superAdmin/api/users/{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"users": [{"id": 1, "is_blocked": false}, {"id": 2, "is_blocked": true}], "total": 2}`))
	})
	mux.HandleFunc("POST /superAdmin/api/users/{id}/toggle-block/{$}", func(w http.ResponseWriter, r *http.Request) {
		*toggled++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": ` + r.PathValue("id") + `, "message": "User toggled"}`))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestCurrentFallsBackToCollection(t *testing.T) {
	var toggled int
	ts := listOnlyUsers(t, &toggled)
	c := New(api.NewShopSphere(api.NewClient(ts.URL)), nil)
	ctx := context.Background()

	if _, err := c.Get(ctx, mutation.EntityUser, "1"); err == nil {
		t.Fatal("expected the detail request to fail")
	}
	rec, err := c.Current(ctx, mutation.EntityUser, "2")
	if err != nil {
		t.Fatal(err)
	}
	if rec.String("status") != StatusBlocked {
		t.Errorf("user 2 = %v", rec)
	}
	rec, err = c.Current(ctx, mutation.EntityUser, "9")
	if err != nil || rec != nil {
		t.Errorf("missing user = %v, %v", rec, err)
	}
	if toggled != 0 {
		t.Errorf("toggled %d times", toggled)
	}
}
