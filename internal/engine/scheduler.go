package engine

import (
	"context"
	"log"
	"time"

	"github.com/ziadkadry99/auto-decide/internal/decision"
)

// run drives Tick on the configured interval until ctx is cancelled.
func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.safeTick(ctx)
		}
	}
}

func (e *Engine) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("engine: tick panic recovered: %v", r)
		}
	}()
	e.Tick(ctx)
}

// Tick performs one scheduler iteration. With the configured probability it
// generates a decision, retains it and, in auto mode, evaluates it and
// launches execution on approval. It reports whether a decision was made.
//
// Tick works whether or not the engine is active, so hosts can drive the
// engine without the internal ticker.
func (e *Engine) Tick(ctx context.Context) (decision.Decision, bool) {
	d, snap, launch := e.advance()
	if d == nil {
		return decision.Decision{}, false
	}

	e.record(ctx, snap)
	if launch {
		go func() {
			defer e.inflight.Done()
			e.execute(e.execCtx, d)
		}()
	}
	return snap, true
}

// advance applies the state changes of one tick under e.mu and returns the
// new decision with a snapshot of it, or nil when nothing was generated.
func (e *Engine) advance() (d *decision.Decision, snap decision.Decision, launch bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.src.Float64() >= e.opts.GenerateProbability {
		e.recomputeLocked()
		return nil, decision.Decision{}, false
	}

	generated := e.gen.Generate(e.criteria)
	d = &generated
	e.decisions = append([]*decision.Decision{d}, e.decisions...)
	if len(e.decisions) > e.opts.Retention {
		e.decisions = e.decisions[:e.opts.Retention]
	}
	e.metrics.TotalDecisions++
	e.metrics.PendingDecisions++

	if e.autoMode {
		verdict := decision.Evaluate(*d, e.criteria)
		switch {
		case !verdict.Approved:
			d.Status = decision.StatusRejected
		case e.opts.EnforceHumanApproval && e.criteria.RequireHumanApproval:
			d.Status = decision.StatusApproved
		default:
			e.beginLocked(d)
			e.metrics.PendingDecisions = max(0, e.metrics.PendingDecisions-1)
			e.inflight.Add(1)
			launch = true
		}
	}
	e.recomputeLocked()
	return d, d.Clone(), launch
}
