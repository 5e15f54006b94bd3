package devserver

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/shopsphere/shopctl/pkg/api"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	email, _ := body["email"].(string)
	password, _ := body["password"].(string)
	if email == "" || password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"non_field_errors": []string{"Email and password are required."}})
		return
	}
	if want, ok := s.admins[email]; !ok || want != password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid email or password."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access":  s.IssueToken(email),
		"refresh": "refresh-" + uuid.NewString(),
		"user":    map[string]string{"email": email, "role": "superadmin"},
	})
}

func (s *Server) handleWallet(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"balance":  math.Round(s.store.Wallet()*100) / 100,
		"currency": "USD",
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"total_users":               s.store.Count(colUsers),
		"total_vendors":             s.store.Count(colVendors),
		"total_delivery_agents":     s.store.Count(colDeliveryAgents),
		"total_products":            s.store.Count(colProducts),
		"total_orders":              s.store.Count(colOrders),
		"pending_vendor_requests":   countWhere(s.store.List(colVendorRequests), "approval_status", "PENDING"),
		"pending_delivery_requests": countWhere(s.store.List(colDeliveryRequests), "approval_status", "PENDING"),
	})
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	orders := s.store.List(colOrders)
	byStatus := map[string]int{}
	revenue := 0.0
	for _, o := range orders {
		byStatus[strings.ToLower(o.String("status"))]++
		if o.String("status") != "CANCELLED" {
			revenue += o.Float("total_amount")
		}
	}
	products := map[string]int{}
	for _, p := range s.store.List(colProducts) {
		products[p.String("vendor_id")]++
	}
	var top []map[string]any
	for _, v := range s.store.List(colVendors) {
		top = append(top, map[string]any{"vendor": v.String("store_name"), "products": products[v.ID()]})
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i]["products"].(int) > top[j]["products"].(int) })

	rng := r.URL.Query().Get("range")
	if rng == "" {
		rng = "30d"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"range":            rng,
		"total_revenue":    math.Round(revenue*100) / 100,
		"orders_by_status": byStatus,
		"top_vendors":      top,
	})
}

func (s *Server) handleGet(col string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := s.store.Get(col, mux.Vars(r)["id"])
		if !ok {
			writeFailure(w, errNotFound)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// handleListUsers answers in the keyed shape with server-side counts.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	all := s.store.List(colUsers)
	active, blocked := 0, 0
	for _, u := range all {
		switch accountStatus(u) {
		case "ACTIVE":
			active++
		case "BLOCKED":
			blocked++
		}
	}
	items := filterRecords(all, r.URL.Query(), accountStatus, "name", "email")
	writeJSON(w, http.StatusOK, map[string]any{
		"users":   items,
		"total":   len(all),
		"active":  active,
		"blocked": blocked,
	})
}

func (s *Server) handleToggleBlockUser(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Update(colUsers, mux.Vars(r)["id"], func(u api.Record) (api.Record, error) {
		u["is_blocked"] = !u.Bool("is_blocked")
		return u, nil
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	msg := "User unblocked"
	if rec.Bool("is_blocked") {
		msg = "User blocked"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         rec["id"],
		"is_blocked": rec.Bool("is_blocked"),
		"status":     accountStatus(rec),
		"message":    msg,
	})
}

// handleListVendors answers with a paginated envelope.
func (s *Server) handleListVendors(w http.ResponseWriter, r *http.Request) {
	items := filterRecords(s.store.List(colVendors), r.URL.Query(), accountStatus, "store_name", "email")
	writeJSON(w, http.StatusOK, paginate(items, r))
}

// handleListAgents answers with a bare array.
func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, filterRecords(s.store.List(colDeliveryAgents), r.URL.Query(), accountStatus, "name", "phone"))
}

func (s *Server) handleSetBlocked(col string, blocked bool) http.HandlerFunc {
	noun := strings.TrimSuffix(strings.ReplaceAll(col, "-", " "), "s")
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := s.store.Update(col, mux.Vars(r)["id"], func(v api.Record) (api.Record, error) {
			if v.Bool("is_blocked") == blocked {
				return nil, errConflict(fmt.Sprintf("%s is already %s", noun, strings.ToLower(statusOf(blocked))))
			}
			v["is_blocked"] = blocked
			if v.Has("status") {
				v["status"] = statusOf(blocked)
			}
			return v, nil
		})
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":         rec["id"],
			"is_blocked": blocked,
			"status":     statusOf(blocked),
			"message":    fmt.Sprintf("%s %s", noun, strings.ToLower(statusOf(blocked))),
		})
	}
}

// handleListRequests answers with the keyed shape plus per-decision counts.
func (s *Server) handleListRequests(col string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := s.store.List(col)
		resp := map[string]any{
			"pending":  countWhere(all, "approval_status", "PENDING"),
			"approved": countWhere(all, "approval_status", "APPROVED"),
			"rejected": countWhere(all, "approval_status", "REJECTED"),
		}
		resp["requests"] = filterRecords(all, r.URL.Query(), func(rec api.Record) string {
			return rec.String("approval_status")
		}, "store_name", "name", "email")
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleDecide(col, decision string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := decodeBody(r)
		if err != nil {
			writeFailure(w, err)
			return
		}
		reason, _ := body["reason"].(string)
		rec, err := s.store.Update(col, mux.Vars(r)["id"], func(req api.Record) (api.Record, error) {
			if req.String("approval_status") != "PENDING" {
				return nil, errConflict("Request already processed")
			}
			req["approval_status"] = decision
			if reason != "" {
				req["review_reason"] = reason
			}
			return req, nil
		})
		if err != nil {
			writeFailure(w, err)
			return
		}
		if decision == "APPROVED" {
			s.onboard(col, rec)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":              rec["id"],
			"approval_status": decision,
			"message":         "Request " + strings.ToLower(decision),
		})
	}
}

// onboard creates the vendor or delivery agent for an approved request.
func (s *Server) onboard(col string, req api.Record) {
	switch col {
	case colVendorRequests:
		s.store.Insert(colVendors, api.Record{
			"store_name": req.String("store_name"),
			"email":      req.String("email"),
			"is_blocked": false,
			"status":     "ACTIVE",
		})
	case colDeliveryRequests:
		s.store.Insert(colDeliveryAgents, api.Record{
			"name":       req.String("name"),
			"email":      req.String("email"),
			"is_blocked": false,
		})
	}
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items := filterRecords(s.store.List(colProducts), q, func(rec api.Record) string {
		return rec.String("status")
	}, "name")
	if vendor := q.Get("vendor"); vendor != "" {
		kept := items[:0]
		for _, p := range items {
			if p.String("vendor_id") == vendor {
				kept = append(kept, p)
			}
		}
		items = kept
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(items), "results": items})
}

func (s *Server) handleToggleProduct(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Update(colProducts, mux.Vars(r)["id"], func(p api.Record) (api.Record, error) {
		active := !p.Bool("is_active")
		p["is_active"] = active
		p["status"] = activeStatus(active)
		return p, nil
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":        rec["id"],
		"is_active": rec.Bool("is_active"),
		"status":    rec.String("status"),
	})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	items := filterRecords(s.store.List(colOrders), r.URL.Query(), func(rec api.Record) string {
		return rec.String("status")
	}, "order_number", "customer")
	writeJSON(w, http.StatusOK, paginate(items, r))
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	item, err := s.store.settleItem(mux.Vars(r)["id"])
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Payment settled", "item": item})
}

func (s *Server) handleGetCommission(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"global_rate":    s.store.GlobalRate(),
		"category_rates": s.store.List(colCategories),
	})
}

func (s *Server) handleSetGlobalRate(w http.ResponseWriter, r *http.Request) {
	rate, err := readRate(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	s.store.SetGlobalRate(rate)
	writeJSON(w, http.StatusOK, map[string]any{"global_rate": rate})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	category, _ := body["category"].(string)
	if category == "" {
		writeError(w, http.StatusBadRequest, "category is required")
		return
	}
	rate, err := rateOf(body)
	if err != nil {
		writeFailure(w, err)
		return
	}
	for _, c := range s.store.List(colCategories) {
		if strings.EqualFold(c.String("category"), category) {
			writeError(w, http.StatusConflict, "a rate for "+category+" already exists")
			return
		}
	}
	writeJSON(w, http.StatusCreated, s.store.Insert(colCategories, api.Record{"category": category, "rate": rate}))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	rate, err := readRate(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	rec, err := s.store.Update(colCategories, mux.Vars(r)["id"], func(c api.Record) (api.Record, error) {
		c["rate"] = rate
		return c, nil
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if !s.store.Delete(colCategories, mux.Vars(r)["id"]) {
		writeFailure(w, errNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func readRate(r *http.Request) (float64, error) {
	body, err := decodeBody(r)
	if err != nil {
		return 0, err
	}
	return rateOf(body)
}

func rateOf(body map[string]any) (float64, error) {
	rate := api.Record(body).Float("rate")
	if _, ok := body["rate"]; !ok {
		return 0, errBadRequest("rate is required")
	}
	if rate < 0 || rate > 100 {
		return 0, errBadRequest("rate must be between 0 and 100")
	}
	return rate, nil
}

// accountStatus is the status of a user, vendor or agent, derived from its
// flags when the record has none.
func accountStatus(rec api.Record) string {
	if st := rec.String("status"); st != "" {
		return strings.ToUpper(st)
	}
	switch {
	case rec.Bool("is_blocked"):
		return "BLOCKED"
	case rec.Has("is_active") && !rec.Bool("is_active"):
		return "INACTIVE"
	default:
		return "ACTIVE"
	}
}

// filterRecords applies the status and search query parameters.
func filterRecords(items []api.Record, q url.Values, status func(api.Record) string, searchFields ...string) []api.Record {
	want := strings.ToUpper(q.Get("status"))
	search := strings.ToLower(q.Get("search"))
	out := make([]api.Record, 0, len(items))
	for _, rec := range items {
		if want != "" && strings.ToUpper(status(rec)) != want {
			continue
		}
		if search != "" && !matchesAny(rec, search, searchFields) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func matchesAny(rec api.Record, needle string, fields []string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(rec.String(f)), needle) {
			return true
		}
	}
	return false
}

func countWhere(items []api.Record, field, value string) int {
	n := 0
	for _, rec := range items {
		if strings.EqualFold(rec.String(field), value) {
			n++
		}
	}
	return n
}

// paginate slices items per the page and page_size parameters and wraps
// them in the {count, next, previous, results} envelope.
func paginate(items []api.Record, r *http.Request) map[string]any {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(q.Get("page_size"))
	if size < 1 {
		size = defaultPageSize
	}
	size = min(size, maxPageSize)

	start := min((page-1)*size, len(items))
	end := min(start+size, len(items))

	link := func(p int) any {
		if p < 1 || (p-1)*size >= len(items) {
			return nil
		}
		u := *r.URL
		v := u.Query()
		v.Set("page", strconv.Itoa(p))
		u.RawQuery = v.Encode()
		return u.RequestURI()
	}
	return map[string]any{
		"count":    len(items),
		"next":     link(page + 1),
		"previous": link(page - 1),
		"results":  items[start:end],
	}
}
