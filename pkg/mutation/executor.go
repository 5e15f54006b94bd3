package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopsphere/shopctl/pkg/api"
	"github.com/shopsphere/shopctl/pkg/journal"
	"github.com/shopsphere/shopctl/pkg/resource"
)

// Reconciler is the part of a resource.Store the executor updates.
type Reconciler interface {
	ApplyLocalPatch(id string, patch api.Record) bool
	Reload(ctx context.Context) error
}

var _ Reconciler = (*resource.Store)(nil)

// Recorder persists journal entries.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Observer counts mutation outcomes. telemetry.Metrics implements it.
type Observer interface {
	ObserveMutation(entity, action, outcome string)
}

// Result describes a completed action.
type Result struct {
	Pending Pending
	Policy  Policy
	// Fields are the fields returned by Facade.Perform.
	Fields api.Record
	// Patch is what was applied to the store under the optimistic policy.
	Patch api.Record
	// Patched is false when the target was not in the loaded page.
	Patched  bool
	Reloaded bool
	// ReloadErr is set when the action succeeded but the follow-up reload
	// failed. The store then shows the Failed phase with its old items.
	ReloadErr error
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithJournal records every executed action in r.
func WithJournal(r Recorder) ExecutorOption {
	return func(e *Executor) { e.journal = r }
}

// WithObserver counts outcomes in o.
func WithObserver(o Observer) ExecutorOption {
	return func(e *Executor) { e.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = l }
}

// WithOperator names the admin account in journal entries.
func WithOperator(email string) ExecutorOption {
	return func(e *Executor) { e.operator = email }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) { e.now = now }
}

// Executor runs pending actions through the facade and reconciles the
// affected store according to the action's policy.
type Executor struct {
	facade   *Facade
	journal  Recorder
	observer Observer
	logger   *slog.Logger
	operator string
	now      func() time.Time
}

// NewExecutor creates an executor.
func NewExecutor(f *Facade, opts ...ExecutorOption) *Executor {
	e := &Executor{
		facade: f,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute performs p and reconciles store, which may be nil. Destructive
// actions must be confirmed first. The backend error, if any, is returned
// unchanged and the store is left as it was.
func (e *Executor) Execute(ctx context.Context, p Pending, store Reconciler) (*Result, error) {
	a, ok := Lookup(p.Entity, p.Action)
	if !ok {
		return nil, fmt.Errorf("%w %q for %s", ErrUnknownAction, p.Action, p.Entity)
	}
	if a.Confirm && !p.Confirmed {
		return nil, fmt.Errorf("%s: %w", p.Describe(), ErrNotConfirmed)
	}

	fields, err := e.facade.Perform(ctx, p.Entity, p.Action, p.Target, p.Params())
	if err != nil {
		e.record(ctx, p, err)
		e.observe(a, journal.OutcomeError)
		e.logger.Warn("action failed",
			slog.String("entity", p.Entity),
			slog.String("action", p.Action),
			slog.String("target", p.Target),
			slog.String("error", err.Error()))
		return nil, err
	}

	res := &Result{Pending: p, Policy: a.Policy, Fields: fields}
	if store != nil {
		switch a.Policy {
		case Optimistic:
			res.Patch = Patch(a, fields)
			res.Patched = store.ApplyLocalPatch(p.Target, res.Patch)
		case Reload:
			if rerr := store.Reload(ctx); rerr != nil && !errors.Is(rerr, resource.ErrSuperseded) {
				res.ReloadErr = rerr
				e.logger.Warn("reload after action failed",
					slog.String("entity", p.Entity),
					slog.String("action", p.Action),
					slog.String("error", rerr.Error()))
			} else {
				res.Reloaded = true
			}
		}
	}

	e.record(ctx, p, nil)
	e.observe(a, journal.OutcomeOK)
	e.logger.Info("action completed",
		slog.String("id", p.ID),
		slog.String("entity", p.Entity),
		slog.String("action", p.Action),
		slog.String("target", p.Target),
		slog.String("policy", a.Policy.String()))
	return res, nil
}

func (e *Executor) record(ctx context.Context, p Pending, err error) {
	if e.journal == nil {
		return
	}
	entry := journal.Entry{
		ID:       p.ID,
		Entity:   p.Entity,
		Action:   p.Action,
		Target:   p.Target,
		Reason:   p.Reason,
		Outcome:  journal.OutcomeOK,
		Operator: e.operator,
		At:       e.now(),
	}
	if err != nil {
		entry.Outcome = journal.OutcomeError
		entry.Message = err.Error()
		if he, ok := api.AsHTTPError(err); ok {
			entry.Status = he.Status
		}
	}
	if jerr := e.journal.Record(ctx, entry); jerr != nil {
		e.logger.Warn("journal write failed", slog.String("id", p.ID), slog.String("error", jerr.Error()))
	}
}

func (e *Executor) observe(a Action, outcome string) {
	if e.observer != nil {
		e.observer.ObserveMutation(a.Entity, a.Name, outcome)
	}
}
