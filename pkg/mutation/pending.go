package mutation

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrNoPending is returned when a pending action id is not queued.
var ErrNoPending = errors.New("no such pending action")

// Pending is an action the operator asked for but that has not run yet.
type Pending struct {
	ID        string         `json:"id" yaml:"id"`
	Entity    string         `json:"entity" yaml:"entity"`
	Action    string         `json:"action" yaml:"action"`
	Target    string         `json:"target" yaml:"target"`
	Reason    string         `json:"reason,omitempty" yaml:"reason,omitempty"`
	Fields    map[string]any `json:"fields,omitempty" yaml:"fields,omitempty"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at"`
	Confirmed bool           `json:"confirmed" yaml:"confirmed"`
}

// NewPending builds a pending action. Actions that do not need
// confirmation start out confirmed.
func NewPending(entity, action, target string, p Params, now time.Time) (Pending, error) {
	a, ok := Lookup(entity, action)
	if !ok {
		return Pending{}, fmt.Errorf("%w %q for %s", ErrUnknownAction, action, entity)
	}
	return Pending{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Entity:    entity,
		Action:    action,
		Target:    target,
		Reason:    p.Reason,
		Fields:    p.Fields,
		CreatedAt: now,
		Confirmed: !a.Confirm,
	}, nil
}

// Params returns the inputs to pass to Facade.Perform.
func (p Pending) Params() Params {
	return Params{Reason: p.Reason, Fields: p.Fields}
}

// Describe renders the action for prompts, e.g. "block vendor 12".
func (p Pending) Describe() string {
	if p.Target == "" {
		return p.Action + " " + p.Entity
	}
	return p.Action + " " + p.Entity + " " + p.Target
}

// Queue holds pending actions, at most one per target entity.
type Queue struct {
	now func() time.Time

	mu       sync.Mutex
	byID     map[string]Pending
	byTarget map[string]string
}

// NewQueue returns an empty queue. now may be nil.
func NewQueue(now func() time.Time) *Queue {
	if now == nil {
		now = time.Now
	}
	return &Queue{now: now, byID: map[string]Pending{}, byTarget: map[string]string{}}
}

func targetKey(entity, target string) string { return entity + "/" + target }

// Propose queues a new action, replacing any action already pending on the
// same target.
func (q *Queue) Propose(entity, action, target string, p Params) (Pending, error) {
	pa, err := NewPending(entity, action, target, p, q.now())
	if err != nil {
		return Pending{}, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	key := targetKey(entity, target)
	if old, ok := q.byTarget[key]; ok {
		delete(q.byID, old)
	}
	q.byID[pa.ID] = pa
	q.byTarget[key] = pa.ID
	return pa, nil
}

// Confirm marks the pending action as confirmed.
func (q *Queue) Confirm(id string) (Pending, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	pa, ok := q.byID[id]
	if !ok {
		return Pending{}, fmt.Errorf("%w: %s", ErrNoPending, id)
	}
	pa.Confirmed = true
	q.byID[id] = pa
	return pa, nil
}

// Discard drops a pending action the operator cancelled.
func (q *Queue) Discard(id string) bool {
	return q.remove(id)
}

// Resolve clears a pending action once its mutation has completed.
func (q *Queue) Resolve(id string) bool {
	return q.remove(id)
}

func (q *Queue) remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	pa, ok := q.byID[id]
	if !ok {
		return false
	}
	delete(q.byID, id)
	key := targetKey(pa.Entity, pa.Target)
	if q.byTarget[key] == id {
		delete(q.byTarget, key)
	}
	return true
}

// Get returns the pending action with id.
func (q *Queue) Get(id string) (Pending, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	pa, ok := q.byID[id]
	return pa, ok
}

// ForTarget returns the action pending on one entity, if any.
func (q *Queue) ForTarget(entity, target string) (Pending, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	id, ok := q.byTarget[targetKey(entity, target)]
	if !ok {
		return Pending{}, false
	}
	return q.byID[id], true
}

// List returns all pending actions, oldest first.
func (q *Queue) List() []Pending {
	q.mu.Lock()
	out := make([]Pending, 0, len(q.byID))
	for _, pa := range q.byID {
		out = append(out, pa)
	}
	q.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of pending actions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.byID)
}
