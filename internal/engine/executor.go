package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ziadkadry99/auto-decide/internal/decision"
)

// beginLocked moves d to executing and writes the first log entry.
// Callers hold e.mu.
func (e *Engine) beginLocked(d *decision.Decision) {
	d.Status = decision.StatusExecuting
	d.ExecutionLog = append(d.ExecutionLog, decision.LogEntry{
		Timestamp: e.now(),
		Action:    "Execution Started",
		Result:    decision.ResultSuccess,
		Details:   fmt.Sprintf("Beginning execution of %s decision", d.Type),
	})
}

// execute runs the simulated execution sequence for d, which must already
// be in executing state. It never panics.
func (e *Engine) execute(ctx context.Context, d *decision.Decision) bool {
	e.mu.Lock()
	timeout := e.criteria.DecisionTimeout
	e.mu.Unlock()

	if e.opts.EnforceDecisionTimeout && timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}

	ok, err := e.runSequence(ctx, d)
	if err != nil {
		e.finish(ctx, d, decision.LogEntry{
			Action:  "Execution Error",
			Result:  decision.ResultFailure,
			Details: fmt.Sprintf("Unexpected error: %v", err),
		}, Notice{
			Kind:    NoticeExecutionError,
			Title:   "Decision Execution Error",
			Message: d.Description,
		}, nil)
		return false
	}

	if ok {
		e.finish(ctx, d, decision.LogEntry{
			Action:  "Execution Completed",
			Result:  decision.ResultSuccess,
			Details: "Decision executed successfully",
		}, Notice{
			Kind:    NoticeExecutionSucceeded,
			Title:   "Decision Executed Successfully",
			Message: d.Description,
		}, func(m *Metrics) {
			m.SuccessfulExecutions++
			m.LastDecisionTime = e.now()
		})
		return true
	}

	e.finish(ctx, d, decision.LogEntry{
		Action:  "Execution Failed",
		Result:  decision.ResultFailure,
		Details: "Execution encountered errors and was rolled back",
	}, Notice{
		Kind:    NoticeExecutionFailed,
		Title:   "Decision Execution Failed",
		Message: d.Description,
	}, func(m *Metrics) {
		m.FailedExecutions++
	})
	return false
}

// runSequence performs the pre-checks, the simulated work and the outcome
// draw. Panics and context errors come back as err.
func (e *Engine) runSequence(ctx context.Context, d *decision.Decision) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("engine: execution of %s panicked: %v", d.ID, r)
			ok, err = false, fmt.Errorf("panic: %v", r)
		}
	}()

	if err := sleep(ctx, e.opts.PreCheckDelay); err != nil {
		return false, err
	}
	e.appendLog(d, decision.LogEntry{
		Action:  "Pre-execution Checks",
		Result:  decision.ResultSuccess,
		Details: "All systems ready for execution",
	})

	e.mu.Lock()
	estimated, confidence, risk := d.EstimatedTime, d.Confidence, d.RiskLevel
	e.mu.Unlock()

	effective := float64(estimated) * (0.5 + e.src.Float64())
	if err := sleep(ctx, time.Duration(effective*float64(e.opts.SimulatedSecond))); err != nil {
		return false, err
	}

	p := float64(confidence) / 100 * (1 - float64(risk)/100)
	return e.src.Float64() < p, nil
}

// finish applies a terminal outcome to d, then records and announces it.
func (e *Engine) finish(ctx context.Context, d *decision.Decision, entry decision.LogEntry, n Notice, count func(*Metrics)) {
	e.mu.Lock()
	entry.Timestamp = e.now()
	d.ExecutionLog = append(d.ExecutionLog, entry)
	if entry.Result == decision.ResultSuccess {
		d.Status = decision.StatusCompleted
	} else {
		d.Status = decision.StatusFailed
	}
	if count != nil {
		count(&e.metrics)
	}
	e.recomputeLocked()
	snap := d.Clone()
	e.mu.Unlock()

	// The outcome is already applied; a faulty sink must not take the
	// execution goroutine down with it.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("engine: delivering outcome of %s: panic recovered: %v", snap.ID, r)
		}
	}()

	ctx = context.WithoutCancel(ctx)
	e.record(ctx, snap)
	n.DecisionID = snap.ID
	e.notify(ctx, n)
}

func (e *Engine) appendLog(d *decision.Decision, entry decision.LogEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry.Timestamp = e.now()
	d.ExecutionLog = append(d.ExecutionLog, entry)
}

// sleep waits for d or until ctx is done. A non-positive d only checks ctx.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
