// Package journal records every admin action shopctl executes against the
// backend, successful or not, so operators can see who did what.
package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Outcomes of a journaled action.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown journal driver")

// Entry is one executed admin action.
type Entry struct {
	ID       string    `db:"id" json:"id" yaml:"id"`
	Entity   string    `db:"entity" json:"entity" yaml:"entity"`
	Action   string    `db:"action" json:"action" yaml:"action"`
	Target   string    `db:"target" json:"target" yaml:"target"`
	Reason   string    `db:"reason" json:"reason,omitempty" yaml:"reason,omitempty"`
	Outcome  string    `db:"outcome" json:"outcome" yaml:"outcome"`
	Status   int       `db:"status" json:"status,omitempty" yaml:"status,omitempty"`
	Message  string    `db:"message" json:"message,omitempty" yaml:"message,omitempty"`
	Operator string    `db:"operator" json:"operator,omitempty" yaml:"operator,omitempty"`
	At       time.Time `db:"-" json:"at" yaml:"at"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Entity string
	Target string
	// Limit caps the number of entries; 0 means no limit.
	Limit int
}

func (f Filter) match(e Entry) bool {
	if f.Entity != "" && f.Entity != e.Entity {
		return false
	}
	if f.Target != "" && f.Target != e.Target {
		return false
	}
	return true
}

// Journal stores entries. Implementations must be safe for concurrent use.
type Journal interface {
	Record(ctx context.Context, e Entry) error
	// List returns matching entries, newest first.
	List(ctx context.Context, f Filter) ([]Entry, error)
	Close() error
}

// Memory is a process-local journal.
type Memory struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemory creates an empty in-memory journal.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	m.entries = append(m.entries, e)
	m.mu.Unlock()
	return nil
}

func (m *Memory) List(_ context.Context, f Filter) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if f.match(e) {
			out = append(out, e)
		}
	}
	sortNewestFirst(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

// Entry ids are ULIDs, so lexical order is creation order.
func sortNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].At.Equal(entries[j].At) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].At.After(entries[j].At)
	})
}

// Open returns the journal for driver: "memory" (or empty), "sqlite3" or
// "postgres". dsn is ignored for memory.
func Open(ctx context.Context, driver, dsn string) (Journal, error) {
	switch driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite3", "sqlite":
		j, err := OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return j, nil
	case "postgres":
		j, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return j, nil
	default:
		return nil, fmt.Errorf("%w %q (want memory, sqlite3 or postgres)", ErrUnknownDriver, driver)
	}
}
