package engine

import (
	"context"
	"log"
	"time"

	"github.com/ziadkadry99/auto-decide/internal/decision"
)

// NoticeKind identifies the event behind a notice.
type NoticeKind string

const (
	NoticeActivated          NoticeKind = "engine_activated"
	NoticeDeactivated        NoticeKind = "engine_deactivated"
	NoticeAutoModeEnabled    NoticeKind = "auto_mode_enabled"
	NoticeAutoModeDisabled   NoticeKind = "auto_mode_disabled"
	NoticeLearningMode       NoticeKind = "learning_mode_changed"
	NoticeCriteriaUpdated    NoticeKind = "criteria_updated"
	NoticeHistoryCleared     NoticeKind = "history_cleared"
	NoticeExecutionSucceeded NoticeKind = "execution_succeeded"
	NoticeExecutionFailed    NoticeKind = "execution_failed"
	NoticeExecutionError     NoticeKind = "execution_error"
)

// Notice is a short human-readable event emitted by the engine.
type Notice struct {
	Kind       NoticeKind `json:"kind"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	DecisionID string     `json:"decision_id,omitempty"`
	Time       time.Time  `json:"time"`
}

// Notifier receives engine notices. Implementations must not call back
// into the engine's activation methods.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// Notifiers fans a notice out to every member in order.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, n Notice) {
	for _, notifier := range ns {
		if notifier != nil {
			notifier.Notify(ctx, n)
		}
	}
}

// LogNotifier writes notices to the standard logger.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notice) {
	if n.DecisionID != "" {
		log.Printf("engine: %s: %s (%s)", n.Title, n.Message, n.DecisionID)
		return
	}
	log.Printf("engine: %s: %s", n.Title, n.Message)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notice) {}

// Recorder persists decision snapshots whenever the engine changes one.
type Recorder interface {
	Record(ctx context.Context, d decision.Decision) error
}

// Recorders fans a snapshot out to every member, returning the first error.
type Recorders []Recorder

func (rs Recorders) Record(ctx context.Context, d decision.Decision) error {
	var first error
	for _, r := range rs {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, d); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, decision.Decision) error { return nil }
