package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Backend paths outside the super-admin namespace.
const (
	LoginPath  = "/user_login/"
	WalletPath = "/wallet-balance/"
	adminRoot  = "/superAdmin/api/"
)

// AdminPath joins parts under /superAdmin/api/ with a trailing slash, the
// form the backend routes require.
func AdminPath(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			clean = append(clean, p)
		}
	}
	return adminRoot + strings.Join(clean, "/") + "/"
}

// Resource describes one admin list endpoint.
type Resource struct {
	// Name is the short identifier used by the CLI and the stores.
	Name string
	// Path is the collection path below /superAdmin/api/.
	Path string
	// ItemsKey is the list field for object-shaped responses.
	ItemsKey string
}

// ListPath returns the collection URL path.
func (r Resource) ListPath() string { return AdminPath(r.Path) }

// ItemPath returns the URL path of one entity.
func (r Resource) ItemPath(id string) string { return AdminPath(r.Path, id) }

// The admin collections the console manages.
var (
	Users            = Resource{Name: "users", Path: "users", ItemsKey: "users"}
	Vendors          = Resource{Name: "vendors", Path: "vendors", ItemsKey: "vendors"}
	VendorRequests   = Resource{Name: "vendor-requests", Path: "vendor-requests", ItemsKey: "requests"}
	DeliveryAgents   = Resource{Name: "delivery-agents", Path: "delivery-agents", ItemsKey: "agents"}
	DeliveryRequests = Resource{Name: "delivery-requests", Path: "delivery-requests", ItemsKey: "requests"}
	Products         = Resource{Name: "products", Path: "products", ItemsKey: "products"}
	Orders           = Resource{Name: "orders", Path: "orders", ItemsKey: "orders"}
	Commission       = Resource{Name: "commission", Path: "commission-settings", ItemsKey: "category_rates"}
)

// Tokens is the login response.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	// Token is an older alias of Access some deployments still send.
	Token string `json:"token,omitempty"`
	User  Record `json:"user,omitempty"`
}

// Bearer returns the access token, whichever field carried it.
func (t Tokens) Bearer() string {
	if t.Access != "" {
		return t.Access
	}
	return t.Token
}

// ShopSphere exposes the backend endpoints on top of a Doer.
type ShopSphere struct {
	d Doer
}

// NewShopSphere wraps d.
func NewShopSphere(d Doer) *ShopSphere {
	return &ShopSphere{d: d}
}

// Doer returns the underlying request adapter.
func (s *ShopSphere) Doer() Doer { return s.d }

// Login exchanges credentials for bearer and refresh tokens.
func (s *ShopSphere) Login(ctx context.Context, email, password string) (*Tokens, error) {
	var t Tokens
	body := map[string]string{"email": email, "password": password}
	if err := DoJSON(ctx, s.d, http.MethodPost, LoginPath, body, nil, &t); err != nil {
		return nil, err
	}
	if t.Bearer() == "" {
		return nil, &HTTPError{Kind: KindDecode, Message: "login response carried no access token"}
	}
	return &t, nil
}

// Dashboard returns the aggregate counts for the landing page.
func (s *ShopSphere) Dashboard(ctx context.Context) (Record, error) {
	return s.getRecord(ctx, AdminPath("dashboard"), nil)
}

// WalletBalance returns the admin wallet.
func (s *ShopSphere) WalletBalance(ctx context.Context) (Record, error) {
	return s.getRecord(ctx, WalletPath, nil)
}

// Reports returns the consolidated analytics payload.
func (s *ShopSphere) Reports(ctx context.Context, q Query) (Record, error) {
	return s.getRecord(ctx, AdminPath("reports"), q)
}

// List fetches one page of a collection.
func (s *ShopSphere) List(ctx context.Context, r Resource, q Query) (Page, error) {
	raw, err := s.d.Do(ctx, http.MethodGet, r.ListPath(), nil, q)
	if err != nil {
		return Page{}, err
	}
	return DecodePage(raw, r.ItemsKey)
}

// Get fetches one entity.
func (s *ShopSphere) Get(ctx context.Context, r Resource, id string) (Record, error) {
	if err := ValidateID(id); err != nil {
		return nil, fmt.Errorf("invalid %s id: %w", r.Name, err)
	}
	return s.getRecord(ctx, r.ItemPath(id), nil)
}

func (s *ShopSphere) getRecord(ctx context.Context, path string, q Query) (Record, error) {
	raw, err := s.d.Do(ctx, http.MethodGet, path, nil, q)
	if err != nil {
		return nil, err
	}
	return DecodeRecord(raw)
}
