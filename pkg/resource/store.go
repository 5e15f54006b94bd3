// Package resource implements the client-side Resource Store: an in-memory
// mirror of one backend collection with its load state and aggregate stats.
//
// A Store is the only writer of its collection. Readers take a Snapshot,
// which is never partially updated: a completed load swaps items, total and
// stats under one lock, and local patches replace the record slice rather
// than mutating it.
package resource

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopsphere/shopctl/pkg/api"
)

// ErrSuperseded is returned by Load when a newer load was started before
// this one completed. Its result has been discarded.
var ErrSuperseded = errors.New("load superseded by a newer request")

// Phase is the load state of a store.
type Phase int

const (
	Idle Phase = iota
	Loading
	Loaded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "error"
	default:
		return "unknown"
	}
}

// FetchFunc retrieves one page of the collection.
type FetchFunc func(ctx context.Context, q api.Query) (api.Page, error)

// Spec describes one entity collection.
type Spec struct {
	// Name identifies the store in logs and metrics.
	Name string
	// Fetch loads one page.
	Fetch FetchFunc
	// Normalize fills in derived fields of each record. Optional.
	Normalize func(api.Record) api.Record
	// Count computes stats over the loaded page. Optional.
	Count func(items []api.Record) Stats
	// ServerStats lists the top-level response fields that carry
	// server-computed counts. The reported collection size is always used
	// for "total".
	ServerStats []string
}

// LoadObserver is notified of every load outcome.
type LoadObserver interface {
	ObserveLoad(resource, outcome string)
}

// State is an immutable snapshot of a store.
type State struct {
	Phase Phase
	// Items is the most recent successfully loaded page, patched locally.
	Items []api.Record
	// Total is the server-side collection size when reported, else len(Items).
	Total int
	Stats Stats
	// Err is the error of the last failed load. Cleared by a successful one.
	Err      error
	Query    api.Query
	LoadedAt time.Time
	// Seq is the sequence number of the load that produced Items.
	Seq uint64
}

// Option configures a Store.
type Option func(*Store)

// WithObserver reports load outcomes to o.
func WithObserver(o LoadObserver) Option {
	return func(s *Store) { s.observer = o }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store owns one collection. It is safe for concurrent use.
type Store struct {
	spec     Spec
	observer LoadObserver
	now      func() time.Time

	mu      sync.RWMutex
	state   State
	server  Stats
	started uint64
	query   api.Query

	lmu       sync.Mutex
	listeners map[int]func(State)
	nextID    int
}

// New creates an idle store.
func New(spec Spec, opts ...Option) *Store {
	s := &Store{
		spec:      spec,
		now:       time.Now,
		listeners: make(map[int]func(State)),
		state:     State{Items: []api.Record{}, Stats: Stats{}},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the collection name.
func (s *Store) Name() string { return s.spec.Name }

// Load fetches the collection with query q. Several loads may be in flight;
// only the most recently started one is allowed to change the store, older
// ones return ErrSuperseded once they complete. On failure the previously
// loaded items stay available and the phase becomes Failed.
func (s *Store) Load(ctx context.Context, q api.Query) error {
	s.mu.Lock()
	s.started++
	seq := s.started
	s.query = q.Clone()
	s.state.Phase = Loading
	s.mu.Unlock()
	s.notify()

	page, err := s.spec.Fetch(ctx, q)

	s.mu.Lock()
	if seq != s.started {
		s.mu.Unlock()
		s.observe("superseded")
		return ErrSuperseded
	}
	if err != nil {
		s.state.Phase = Failed
		s.state.Err = err
		s.mu.Unlock()
		s.observe("error")
		s.notify()
		return err
	}

	items := make([]api.Record, 0, len(page.Items))
	for _, rec := range page.Items {
		if rec == nil {
			continue
		}
		if s.spec.Normalize != nil {
			rec = s.spec.Normalize(rec)
		}
		items = append(items, rec)
	}
	server := s.serverStats(page)
	total := page.Total
	if !page.TotalReported {
		total = len(items)
	}
	s.server = server
	s.state = State{
		Phase:    Loaded,
		Items:    items,
		Total:    total,
		Stats:    s.mergeStats(items, server),
		Query:    q.Clone(),
		LoadedAt: s.now(),
		Seq:      seq,
	}
	s.mu.Unlock()
	s.observe("ok")
	s.notify()
	return nil
}

// LoadAsync runs Load on its own goroutine. The returned channel receives
// the result and is then closed.
func (s *Store) LoadAsync(ctx context.Context, q api.Query) <-chan error {
	ch := make(chan error, 1)
	go func() {
		defer close(ch)
		ch <- s.Load(ctx, q)
	}()
	return ch
}

// Reload repeats the last load with the same query.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.RLock()
	q := s.query.Clone()
	s.mu.RUnlock()
	return s.Load(ctx, q)
}

// ApplyLocalPatch overwrites the given fields of the record with id,
// without a network round-trip. Fields not in patch, and every other record,
// are preserved. The patched record goes through Normalize like a loaded
// one. It reports whether the record was found.
func (s *Store) ApplyLocalPatch(id string, patch api.Record) bool {
	s.mu.Lock()
	idx := -1
	for i, rec := range s.state.Items {
		if rec.ID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	items := make([]api.Record, len(s.state.Items))
	copy(items, s.state.Items)
	rec := items[idx].Merge(patch)
	if s.spec.Normalize != nil {
		rec = s.spec.Normalize(rec)
	}
	items[idx] = rec
	s.state.Items = items
	s.state.Stats = s.mergeStats(items, s.server)
	s.mu.Unlock()
	s.notify()
	return true
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Stats = st.Stats.Clone()
	st.Query = st.Query.Clone()
	return st
}

// Find returns the record with id from the loaded page.
func (s *Store) Find(id string) (api.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.state.Items {
		if rec.ID() == id {
			return rec, true
		}
	}
	return nil, false
}

// Subscribe registers fn to be called with a fresh snapshot after every
// state change. The returned function unregisters it.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.lmu.Unlock()
	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

func (s *Store) notify() {
	s.lmu.Lock()
	fns := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()
	if len(fns) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) observe(outcome string) {
	if s.observer != nil {
		s.observer.ObserveLoad(s.spec.Name, outcome)
	}
}

// serverStats extracts the counts the server reported alongside the page.
func (s *Store) serverStats(page api.Page) Stats {
	server := Stats{}
	if page.TotalReported {
		server[StatTotal] = page.Total
	}
	for _, key := range s.spec.ServerStats {
		if v, ok := page.Meta[key].(float64); ok {
			server[key] = int(v)
		}
	}
	return server
}

// mergeStats computes local counts and lets server counts win key by key.
func (s *Store) mergeStats(items []api.Record, server Stats) Stats {
	local := Stats{StatTotal: len(items)}
	if s.spec.Count != nil {
		for k, v := range s.spec.Count(items) {
			local[k] = v
		}
	}
	return local.Overlay(server)
}
