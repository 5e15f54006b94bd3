// Package console wires the ShopSphere endpoints, one resource store per
// admin collection and the mutation executor into the object the CLI and
// the dashboard share.
package console

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/shopsphere/shopctl/pkg/api"
	"github.com/shopsphere/shopctl/pkg/mutation"
	"github.com/shopsphere/shopctl/pkg/resource"
)

// Console holds the stores of one admin session.
type Console struct {
	API      *api.ShopSphere
	Executor *mutation.Executor
	Queue    *mutation.Queue

	Users          *resource.Store
	Vendors        *resource.Store
	VendorRequests *resource.Store
	Agents         *resource.Store
	AgentRequests  *resource.Store
	Products       *resource.Store
	Orders         *resource.Store
	Commission     *resource.Store

	byEntity map[string]*resource.Store
	defs     map[string]entityDef
}

type entityDef struct {
	res  api.Resource
	norm func(api.Record) api.Record
}

// New builds the console. ex may be nil, in which case a bare executor on
// top of ss is used.
func New(ss *api.ShopSphere, ex *mutation.Executor, opts ...resource.Option) *Console {
	if ex == nil {
		ex = mutation.NewExecutor(mutation.NewFacade(ss.Doer()))
	}
	c := &Console{
		API:      ss,
		Executor: ex,
		Queue:    mutation.NewQueue(nil),
		defs:     make(map[string]entityDef),
	}
	store := func(r api.Resource, norm func(api.Record) api.Record, count func([]api.Record) resource.Stats, server ...string) *resource.Store {
		c.defs[r.Name] = entityDef{res: r, norm: norm}
		return resource.New(resource.Spec{
			Name: r.Name,
			Fetch: func(ctx context.Context, q api.Query) (api.Page, error) {
				return ss.List(ctx, r, q)
			},
			Normalize:   norm,
			Count:       count,
			ServerStats: server,
		}, opts...)
	}
	c.Users = store(api.Users, normalizeUser, resource.CountBy("status"), "active", "blocked")
	c.Vendors = store(api.Vendors, normalizeAccount, resource.CountBy("status"), "active", "blocked")
	c.VendorRequests = store(api.VendorRequests, normalizeRequest, resource.CountBy("approval_status"), "pending", "approved", "rejected")
	c.Agents = store(api.DeliveryAgents, normalizeAccount, resource.CountBy("status"), "active", "blocked")
	c.AgentRequests = store(api.DeliveryRequests, normalizeRequest, resource.CountBy("approval_status"), "pending", "approved", "rejected")
	c.Products = store(api.Products, normalizeProduct, resource.CountBy("status"), "active", "inactive")
	c.Orders = store(api.Orders, nil, resource.CountBy("status"))
	c.Commission = store(api.Commission, nil, nil, "global_rate")

	c.byEntity = map[string]*resource.Store{
		mutation.EntityUser:          c.Users,
		mutation.EntityVendor:        c.Vendors,
		mutation.EntityVendorRequest: c.VendorRequests,
		mutation.EntityAgent:         c.Agents,
		mutation.EntityAgentRequest:  c.AgentRequests,
		mutation.EntityProduct:       c.Products,
		mutation.EntityOrder:         c.Orders,
		mutation.EntityCommission:    c.Commission,
	}
	for entity, st := range c.byEntity {
		c.defs[entity] = c.defs[st.Name()]
	}
	return c
}

// Get fetches one record of entity and normalizes it the way its store
// does.
func (c *Console) Get(ctx context.Context, entity, id string) (api.Record, error) {
	d, ok := c.defs[entity]
	if !ok {
		return nil, fmt.Errorf("unknown entity %q", entity)
	}
	rec, err := c.API.Get(ctx, d.res, id)
	if err != nil {
		return nil, err
	}
	if d.norm != nil {
		rec = d.norm(rec)
	}
	return rec, nil
}

// Current returns the freshest record of entity known to the backend. Some
// collections (users, onboarding requests) have no detail endpoint; when
// the detail request answers 404 or 405 the collection is loaded and the
// record looked up there instead. A nil record with a nil error means the
// target is not on the loaded page.
func (c *Console) Current(ctx context.Context, entity, id string) (api.Record, error) {
	rec, err := c.Get(ctx, entity, id)
	if err == nil {
		return rec, nil
	}
	he, ok := api.AsHTTPError(err)
	if !ok || (he.Status != http.StatusNotFound && he.Status != http.StatusMethodNotAllowed) {
		return nil, err
	}
	st, ok := c.byEntity[entity]
	if !ok {
		return nil, err
	}
	if lerr := st.Reload(ctx); lerr != nil {
		return nil, lerr
	}
	rec, _ = st.Find(id)
	return rec, nil
}

// Store returns the store that mirrors entity, keyed by the mutation entity
// name ("vendor", "agent-request", ...).
func (c *Console) Store(entity string) (*resource.Store, bool) {
	s, ok := c.byEntity[entity]
	return s, ok
}

// Stores returns every store keyed by entity.
func (c *Console) Stores() map[string]*resource.Store {
	out := make(map[string]*resource.Store, len(c.byEntity))
	for k, v := range c.byEntity {
		out[k] = v
	}
	return out
}

// Execute runs p and reconciles the store of its entity.
func (c *Console) Execute(ctx context.Context, p mutation.Pending) (*mutation.Result, error) {
	if s, ok := c.byEntity[p.Entity]; ok {
		return c.Executor.Execute(ctx, p, s)
	}
	return c.Executor.Execute(ctx, p, nil)
}

// LoadAll loads the given entities concurrently, each with the query it was
// last loaded with. Failures are joined; superseded loads are not failures.
func (c *Console) LoadAll(ctx context.Context, entities ...string) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, e := range entities {
		s, ok := c.byEntity[e]
		if !ok {
			return fmt.Errorf("unknown entity %q", e)
		}
		g.Go(func() error {
			if err := s.Reload(ctx); err != nil && !errors.Is(err, resource.ErrSuperseded) {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()
	return errors.Join(errs...)
}
