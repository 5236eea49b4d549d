// Package fetch implements the cache-or-fetch orchestration pipeline: it
// drives a Subject through Loading to Loaded or Failed, consulting the
// persistence collaborator first and falling back to the transport
// collaborator, persisting what it fetched.
package fetch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/loadkit/internal/loadable"
	"git.home.luguber.info/inful/loadkit/internal/observability"
)

// Pipeline describes one logical entity fetch. CheckCache answers from
// the local store; on a miss, Fetch goes to the remote source and Persist
// writes the payload durably, returning the value as re-read from the
// store so the published value always reflects what is stored.
type Pipeline[P, T any] struct {
	Entity     string
	CheckCache func(ctx context.Context) (T, bool, error)
	Fetch      func(ctx context.Context) (P, error)
	Persist    func(ctx context.Context, payload P) (T, error)
}

// Orchestrator runs pipelines against subjects. One instance is shared by
// all entities; per-run state lives on the stack.
type Orchestrator struct {
	// floor is the minimum time a subject stays Loading when the remote
	// path is taken, to avoid loading-state flicker. Zero disables it.
	floor   time.Duration
	metrics *observability.Metrics
}

// New creates an orchestrator. metrics may be nil.
func New(floor time.Duration, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{floor: floor, metrics: metrics}
}

// Run executes the pipeline against the subject and blocks until the
// subject reaches a terminal state for this attempt. The subject is
// transitioned to Loading immediately, with a fresh cancel group; the
// whole pipeline is registered in that group, so Subject.Cancel aborts
// whichever step is outstanding.
//
// Invoking Run while a previous attempt is still Loading cancels the
// previous attempt's group before taking over the subject.
//
// Only one terminal transition wins: if the caller cancels the subject
// mid-run, the pipeline's own result is discarded rather than
// overwriting the cancellation outcome.
func Run[P, T any](ctx context.Context, o *Orchestrator, subject *loadable.Subject[T], p Pipeline[P, T]) loadable.Loadable[T] {
	ctx = observability.WithRequestID(ctx, uuid.NewString())
	ctx = observability.WithEntity(ctx, p.Entity)
	started := time.Now()

	group := loadable.NewCancelGroup()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	handleID, _ := group.Add(loadable.CancelFunc(cancel))

	subject.Apply(func(cur loadable.Loadable[T]) loadable.Loadable[T] {
		if g := cur.Group(); g != nil && g != group {
			g.Cancel()
		}
		return cur.SetLoading(group)
	})

	// publish commits a terminal state only if this attempt still owns the
	// subject; a cancellation or a newer attempt wins otherwise.
	publish := func(terminal loadable.Loadable[T]) bool {
		won := false
		subject.Apply(func(cur loadable.Loadable[T]) loadable.Loadable[T] {
			if cur.State() == loadable.StateLoading && cur.Group() == group {
				won = true
				group.Remove(handleID)
				return terminal
			}
			return cur
		})
		return won
	}

	fail := func(stage string, err error) loadable.Loadable[T] {
		if errors.Is(err, context.Canceled) {
			observability.InfoContext(runCtx, "load cancelled", slog.String("stage", stage))
			o.record(p.Entity, "cancelled", started)
			if o.metrics != nil {
				o.metrics.RecordCancellation(p.Entity)
			}
		} else {
			observability.ErrorContext(runCtx, "load failed",
				slog.String("stage", stage), slog.String("error", err.Error()))
			o.record(p.Entity, "failed", started)
		}
		publish(loadable.Failed[T](err))
		return subject.Get()
	}

	cached, hit, err := p.CheckCache(observability.WithStage(runCtx, "cache-check"))
	if err != nil {
		return fail("cache-check", err)
	}
	if hit {
		observability.DebugContext(runCtx, "served from local store")
		if o.metrics != nil {
			o.metrics.RecordCacheHit(p.Entity)
		}
		o.record(p.Entity, "cache_hit", started)
		publish(loadable.Loaded(cached))
		return subject.Get()
	}

	if o.metrics != nil {
		o.metrics.RecordCacheMiss(p.Entity)
	}

	payload, err := p.Fetch(observability.WithStage(runCtx, "fetch"))
	if err != nil {
		return fail("fetch", err)
	}

	persisted, err := p.Persist(observability.WithStage(runCtx, "persist"), payload)
	if err != nil {
		return fail("persist", err)
	}

	if err := o.waitFloor(runCtx, started); err != nil {
		return fail("floor", err)
	}

	observability.InfoContext(runCtx, "load complete",
		slog.Duration("elapsed", time.Since(started)))
	o.record(p.Entity, "fetched", started)
	publish(loadable.Loaded(persisted))
	return subject.Get()
}

// waitFloor blocks until the minimum loading time has elapsed, or the run
// is cancelled.
func (o *Orchestrator) waitFloor(ctx context.Context, started time.Time) error {
	remaining := o.floor - time.Since(started)
	if remaining <= 0 {
		return nil
	}
	select {
	case <-time.After(remaining):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) record(entity, outcome string, started time.Time) {
	if o.metrics != nil {
		o.metrics.RecordFetch(entity, outcome, time.Since(started))
	}
}
