// Package engine runs the autonomous decision loop: it periodically
// generates candidate decisions, evaluates them against the current
// criteria, executes approved ones and keeps running metrics.
//
// All state lives on the Engine and every mutation is serialised by its
// mutex. Executions run on their own goroutines and outlive Deactivate;
// only Close cancels them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ziadkadry99/auto-decide/internal/decision"
)

var (
	// ErrDecisionNotFound is returned when no retained decision has the id.
	ErrDecisionNotFound = errors.New("decision not found")
	// ErrNotExecutable is returned when a decision's status forbids execution.
	ErrNotExecutable = errors.New("decision is not executable")
)

// Options configures an Engine. Start from DefaultOptions.
type Options struct {
	Source    decision.Source
	Catalogue decision.Catalogue
	Now       func() time.Time
	Notifier  Notifier
	Recorder  Recorder

	Criteria            decision.Criteria
	TickInterval        time.Duration
	GenerateProbability float64
	Retention           int

	// PreCheckDelay is the simulated pre-execution check duration.
	PreCheckDelay time.Duration
	// SimulatedSecond is the wall-clock time one estimated second takes.
	SimulatedSecond time.Duration

	AutoMode     bool
	LearningMode bool

	// ManualTicks makes Activate skip the internal ticker; the host drives
	// Tick itself. Activation still starts the velocity clock.
	ManualTicks bool

	EnforceHumanApproval   bool
	EnforceDecisionTimeout bool
}

// DefaultOptions returns the stock engine configuration.
func DefaultOptions() Options {
	return Options{
		Criteria:            decision.DefaultCriteria(),
		TickInterval:        4 * time.Second,
		GenerateProbability: 0.4,
		Retention:           50,
		PreCheckDelay:       time.Second,
		SimulatedSecond:     10 * time.Millisecond,
		LearningMode:        true,
	}
}

// Engine owns the criteria store, the retained decision list and metrics.
type Engine struct {
	opts     Options
	src      decision.Source
	gen      *decision.Generator
	now      func() time.Time
	notifier Notifier
	recorder Recorder

	mu           sync.Mutex
	criteria     decision.Criteria
	decisions    []*decision.Decision // newest first
	metrics      Metrics
	active       bool
	autoMode     bool
	learningMode bool
	activatedAt  time.Time
	stopLoop     context.CancelFunc
	loopDone     chan struct{}

	execCtx    context.Context
	cancelExec context.CancelFunc
	inflight   sync.WaitGroup
}

// New creates an inactive engine.
func New(opts Options) *Engine {
	if opts.Source == nil {
		opts.Source = decision.NewSource(0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 4 * time.Second
	}
	if opts.Retention <= 0 {
		opts.Retention = 50
	}
	if opts.Criteria == (decision.Criteria{}) {
		opts.Criteria = decision.DefaultCriteria()
	}

	src := decision.Synchronized(opts.Source)
	genOpts := []decision.GeneratorOption{decision.WithNow(opts.Now)}
	if opts.Catalogue != nil {
		genOpts = append(genOpts, decision.WithCatalogue(opts.Catalogue))
	}

	execCtx, cancel := context.WithCancel(context.Background())
	return &Engine{
		opts:         opts,
		src:          src,
		gen:          decision.NewGenerator(src, genOpts...),
		now:          opts.Now,
		notifier:     opts.Notifier,
		recorder:     opts.Recorder,
		criteria:     opts.Criteria,
		autoMode:     opts.AutoMode,
		learningMode: opts.LearningMode,
		execCtx:      execCtx,
		cancelExec:   cancel,
	}
}

// Activate starts the periodic tick unless Options.ManualTicks is set. It
// returns false if already active.
func (e *Engine) Activate(ctx context.Context) bool {
	e.mu.Lock()
	if e.active {
		e.mu.Unlock()
		return false
	}
	e.active = true
	if e.activatedAt.IsZero() {
		e.activatedAt = e.now()
	}
	if !e.opts.ManualTicks {
		loopCtx, stop := context.WithCancel(context.Background())
		done := make(chan struct{})
		e.stopLoop, e.loopDone = stop, done
		go e.run(loopCtx, done)
	}
	e.mu.Unlock()

	e.notify(ctx, Notice{
		Kind:    NoticeActivated,
		Title:   "Autonomous Decision Engine Activated",
		Message: "The engine is now capable of autonomous decision making",
	})
	return true
}

// Deactivate stops future ticks and switches auto mode off. Executions
// already in flight run to completion. It returns false if already inactive.
func (e *Engine) Deactivate(ctx context.Context) bool {
	if !e.halt() {
		return false
	}
	e.notify(ctx, Notice{
		Kind:    NoticeDeactivated,
		Title:   "Decision Engine Deactivated",
		Message: "Manual control restored",
	})
	return true
}

func (e *Engine) halt() bool {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return false
	}
	e.active = false
	e.autoMode = false
	stop, done := e.stopLoop, e.loopDone
	e.stopLoop, e.loopDone = nil, nil
	e.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
	return true
}

// IsActive reports whether the tick loop is running.
func (e *Engine) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// ToggleAutoMode flips auto mode and returns the new setting.
func (e *Engine) ToggleAutoMode(ctx context.Context) bool {
	e.mu.Lock()
	e.autoMode = !e.autoMode
	enabled := e.autoMode
	e.mu.Unlock()

	e.announceAutoMode(ctx, enabled)
	return enabled
}

// SetAutoMode sets auto mode explicitly. It announces only real changes.
func (e *Engine) SetAutoMode(ctx context.Context, enabled bool) {
	e.mu.Lock()
	changed := e.autoMode != enabled
	e.autoMode = enabled
	e.mu.Unlock()

	if changed {
		e.announceAutoMode(ctx, enabled)
	}
}

func (e *Engine) announceAutoMode(ctx context.Context, enabled bool) {
	if enabled {
		e.notify(ctx, Notice{
			Kind:    NoticeAutoModeEnabled,
			Title:   "Full Autonomous Mode Activated",
			Message: "Approved decisions will execute automatically",
		})
	} else {
		e.notify(ctx, Notice{
			Kind:    NoticeAutoModeDisabled,
			Title:   "Manual Approval Mode Enabled",
			Message: "Decisions require manual approval",
		})
	}
}

// SetLearningMode stores the learning flag. No decision logic reads it.
func (e *Engine) SetLearningMode(ctx context.Context, enabled bool) {
	e.mu.Lock()
	e.learningMode = enabled
	e.mu.Unlock()

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	e.notify(ctx, Notice{
		Kind:    NoticeLearningMode,
		Title:   "Learning Mode Updated",
		Message: "Learning mode " + state,
	})
}

// UpdateCriteria shallow-merges p into the criteria store and returns the
// result. Values are accepted as given.
func (e *Engine) UpdateCriteria(ctx context.Context, p decision.CriteriaPatch) decision.Criteria {
	e.mu.Lock()
	e.criteria = e.criteria.Merge(p)
	updated := e.criteria
	e.mu.Unlock()

	e.notify(ctx, Notice{
		Kind:    NoticeCriteriaUpdated,
		Title:   "Decision Criteria Updated",
		Message: "Engine parameters have been adjusted",
	})
	return updated
}

// Criteria returns the criteria currently in effect.
func (e *Engine) Criteria() decision.Criteria {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.criteria
}

// ClearHistory drops every retained decision and resets the pending
// counter. Other counters are untouched.
func (e *Engine) ClearHistory(ctx context.Context) {
	e.mu.Lock()
	e.decisions = nil
	e.metrics.PendingDecisions = 0
	e.recomputeLocked()
	e.mu.Unlock()

	e.notify(ctx, Notice{
		Kind:    NoticeHistoryCleared,
		Title:   "Decision History Cleared",
		Message: "All decision records have been removed",
	})
}

// ManualExecute runs the executor for a retained decision and waits for the
// outcome. The execution itself is not bound to ctx; it stops early only
// when the engine is closed.
func (e *Engine) ManualExecute(ctx context.Context, id string) (bool, error) {
	e.mu.Lock()
	d := e.findLocked(id)
	if d == nil {
		e.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrDecisionNotFound, id)
	}
	if !d.Status.Executable() {
		status := d.Status
		e.mu.Unlock()
		return false, fmt.Errorf("%w: %s is %s", ErrNotExecutable, id, status)
	}
	e.beginLocked(d)
	snap := d.Clone()
	e.inflight.Add(1)
	e.mu.Unlock()
	defer e.inflight.Done()

	e.record(ctx, snap)
	ok := e.execute(e.execCtx, d)

	e.mu.Lock()
	e.metrics.PendingDecisions = max(0, e.metrics.PendingDecisions-1)
	e.recomputeLocked()
	e.mu.Unlock()
	return ok, nil
}

// Evaluate scores d against the current criteria without side effects.
func (e *Engine) Evaluate(d decision.Decision) decision.Evaluation {
	return decision.Evaluate(d, e.Criteria())
}

// Generate returns a fresh candidate under the current criteria. It is not
// retained and does not affect metrics.
func (e *Engine) Generate() decision.Decision {
	return e.gen.Generate(e.Criteria())
}

// Decision returns a copy of the retained decision with the given id.
func (e *Engine) Decision(id string) (decision.Decision, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.findLocked(id)
	if d == nil {
		return decision.Decision{}, false
	}
	return d.Clone(), true
}

// Decisions returns copies of all retained decisions, newest first.
func (e *Engine) Decisions() []decision.Decision {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]decision.Decision, 0, len(e.decisions))
	for _, d := range e.decisions {
		out = append(out, d.Clone())
	}
	return out
}

// Wait blocks until every in-flight execution has finished.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

// Close stops the tick loop and waits for in-flight executions. If ctx
// expires first, remaining executions are cancelled and take the error path.
func (e *Engine) Close(ctx context.Context) error {
	e.halt()

	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.cancelExec()
		return nil
	case <-ctx.Done():
		e.cancelExec()
		<-done
		return ctx.Err()
	}
}

func (e *Engine) findLocked(id string) *decision.Decision {
	for _, d := range e.decisions {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func (e *Engine) notify(ctx context.Context, n Notice) {
	if n.Time.IsZero() {
		n.Time = e.now()
	}
	e.notifier.Notify(ctx, n)
}

func (e *Engine) record(ctx context.Context, d decision.Decision) {
	if err := e.recorder.Record(ctx, d); err != nil {
		log.Printf("engine: recording decision %s: %v", d.ID, err)
	}
}
