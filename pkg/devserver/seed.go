package devserver

import (
	"fmt"

	"github.com/shopsphere/shopctl/pkg/api"
)

// Seed fills s with a small marketplace: a few users, vendors, delivery
// agents, onboarding requests, products and orders.
func Seed(s *Store) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := []struct {
		name, email string
		blocked     bool
		active      bool
	}{
		{"Asha Rao", "asha@example.com", false, true},
		{"Ben Ortiz", "ben@example.com", true, true},
		{"Chen Wei", "chen@example.com", false, true},
		{"Dana Kim", "dana@example.com", false, false},
		{"Eli Novak", "eli@example.com", false, true},
	}
	for _, u := range users {
		s.insertLocked(colUsers, api.Record{
			"name":        u.name,
			"email":       u.email,
			"is_blocked":  u.blocked,
			"is_active":   u.active,
			"date_joined": "2026-01-15T09:30:00Z",
		})
	}

	vendors := []struct {
		store, owner string
		blocked      bool
	}{
		{"Green Grocer", "grace@greengrocer.test", false},
		{"Volt Electronics", "victor@volt.test", false},
		{"Paper Trail Books", "pat@papertrail.test", true},
	}
	for _, v := range vendors {
		s.insertLocked(colVendors, api.Record{
			"store_name": v.store,
			"email":      v.owner,
			"is_blocked": v.blocked,
			"status":     statusOf(v.blocked),
			"rating":     4.5,
		})
	}

	for i, name := range []string{"Sunrise Bakery", "Kite Toys", "Nimbus Outdoor"} {
		status := "PENDING"
		if i == 2 {
			status = "REJECTED"
		}
		s.insertLocked(colVendorRequests, api.Record{
			"store_name":      name,
			"email":           fmt.Sprintf("owner%d@vendor.test", i+1),
			"approval_status": status,
			"submitted_at":    "2026-02-01T10:00:00Z",
		})
	}

	for i, name := range []string{"Farah Ali", "Gus Mendel", "Hana Sato"} {
		s.insertLocked(colDeliveryAgents, api.Record{
			"name":       name,
			"phone":      fmt.Sprintf("+1-555-010%d", i),
			"vehicle":    []string{"bike", "van", "scooter"}[i],
			"is_blocked": i == 1,
		})
	}

	for i, name := range []string{"Ivan Petrov", "Jo Mensah"} {
		s.insertLocked(colDeliveryRequests, api.Record{
			"name":            name,
			"email":           fmt.Sprintf("rider%d@agents.test", i+1),
			"approval_status": "PENDING",
		})
	}

	products := []struct {
		name   string
		vendor int
		price  string
		active bool
	}{
		{"Sourdough Loaf", 1, "6.50", true},
		{"Organic Apples 1kg", 1, "4.20", true},
		{"USB-C Charger", 2, "19.99", true},
		{"Noise Cancelling Headphones", 2, "149.00", false},
		{"Field Notes Set", 3, "12.00", true},
	}
	for _, p := range products {
		s.insertLocked(colProducts, api.Record{
			"name":      p.name,
			"vendor_id": float64(p.vendor),
			"price":     p.price,
			"is_active": p.active,
			"status":    activeStatus(p.active),
		})
	}

	item := 100
	for i, status := range []string{"DELIVERED", "DELIVERED", "SHIPPED", "PENDING", "CANCELLED", "DELIVERED"} {
		item++
		payout := "PENDING"
		if i == 0 {
			payout = "SETTLED"
		}
		amount := float64(20 + 15*i)
		s.insertLocked(colOrders, api.Record{
			"order_number":  fmt.Sprintf("SS-%05d", 1000+i),
			"customer":      users[i%len(users)].email,
			"status":        status,
			"total_amount":  fmt.Sprintf("%.2f", amount),
			"payout_status": payout,
			"created_at":    fmt.Sprintf("2026-02-%02dT12:00:00Z", 10+i),
			"items": []any{map[string]any{
				"id":            float64(item),
				"vendor_id":     float64(1 + i%3),
				"amount":        amount,
				"payout_status": payout,
			}},
		})
	}

	for _, c := range []struct {
		category string
		rate     float64
	}{{"electronics", 8}, {"books", 12}} {
		s.insertLocked(colCategories, api.Record{"category": c.category, "rate": c.rate})
	}
	s.wallet = 1250.75
}

func statusOf(blocked bool) string {
	if blocked {
		return "BLOCKED"
	}
	return "ACTIVE"
}

func activeStatus(active bool) string {
	if active {
		return "ACTIVE"
	}
	return "INACTIVE"
}
