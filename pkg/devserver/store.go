package devserver

import (
	"strconv"
	"sync"

	"github.com/shopsphere/shopctl/pkg/api"
)

// Collection names, matching the admin URL segments.
const (
	colUsers            = "users"
	colVendors          = "vendors"
	colVendorRequests   = "vendor-requests"
	colDeliveryAgents   = "delivery-agents"
	colDeliveryRequests = "delivery-requests"
	colProducts         = "products"
	colOrders           = "orders"
	colCategories       = "categories"
)

type collection struct {
	order []string
	items map[string]api.Record
	next  int
}

// Store is the in-memory state of the development backend. Records are
// cloned on the way in and out so handlers never share maps.
type Store struct {
	mu         sync.RWMutex
	cols       map[string]*collection
	globalRate float64
	wallet     float64
}

// NewStore returns an empty store.
func NewStore() *Store {
	s := &Store{cols: make(map[string]*collection), globalRate: 10}
	for _, name := range []string{colUsers, colVendors, colVendorRequests, colDeliveryAgents, colDeliveryRequests, colProducts, colOrders, colCategories} {
		s.cols[name] = &collection{items: make(map[string]api.Record), next: 1}
	}
	return s
}

// List returns every record of a collection in insertion order.
func (s *Store) List(name string) []api.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.cols[name]
	out := make([]api.Record, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id].Clone())
	}
	return out
}

// Get returns one record.
func (s *Store) Get(name, id string) (api.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.cols[name].items[id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Insert adds rec, assigning the next numeric id when rec has none.
func (s *Store) Insert(name string, rec api.Record) api.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(name, rec)
}

func (s *Store) insertLocked(name string, rec api.Record) api.Record {
	c := s.cols[name]
	rec = rec.Clone()
	if !rec.Has("id") {
		rec["id"] = float64(c.next)
	}
	id := rec.ID()
	if n, err := strconv.Atoi(id); err == nil && n >= c.next {
		c.next = n + 1
	}
	if _, exists := c.items[id]; !exists {
		c.order = append(c.order, id)
	}
	c.items[id] = rec
	return rec.Clone()
}

// Update replaces the record with fn's result. fn receives a copy and may
// return an error to abort.
func (s *Store) Update(name, id string, fn func(api.Record) (api.Record, error)) (api.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cols[name]
	rec, ok := c.items[id]
	if !ok {
		return nil, errNotFound
	}
	next, err := fn(rec.Clone())
	if err != nil {
		return nil, err
	}
	c.items[id] = next
	return next.Clone(), nil
}

// Delete removes a record.
func (s *Store) Delete(name, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cols[name]
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Count returns the number of records in a collection.
func (s *Store) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cols[name].order)
}

// GlobalRate returns the default commission percentage.
func (s *Store) GlobalRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.globalRate
}

// SetGlobalRate sets the default commission percentage.
func (s *Store) SetGlobalRate(rate float64) {
	s.mu.Lock()
	s.globalRate = rate
	s.mu.Unlock()
}

// Wallet returns the admin wallet balance.
func (s *Store) Wallet() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wallet
}

// settleItem marks one order item as paid out and credits the commission to
// the admin wallet.
func (s *Store) settleItem(itemID string) (api.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := s.cols[colOrders]
	for _, oid := range orders.order {
		order := orders.items[oid]
		items, _ := order["items"].([]any)
		for i, raw := range items {
			item, ok := raw.(map[string]any)
			if !ok || api.Record(item).ID() != itemID {
				continue
			}
			if api.Record(item).String("payout_status") == "SETTLED" {
				return nil, errConflict("payment already settled")
			}
			next := api.Record(item).Merge(api.Record{"payout_status": "SETTLED"})
			copied := make([]any, len(items))
			copy(copied, items)
			copied[i] = map[string]any(next)
			updated := order.Merge(api.Record{"items": copied})
			if allSettled(copied) {
				updated["payout_status"] = "SETTLED"
			}
			orders.items[oid] = updated
			s.wallet += next.Float("amount") * s.globalRate / 100
			return next.Clone(), nil
		}
	}
	return nil, errNotFound
}

func allSettled(items []any) bool {
	for _, raw := range items {
		if item, ok := raw.(map[string]any); ok && item["payout_status"] != "SETTLED" {
			return false
		}
	}
	return true
}
