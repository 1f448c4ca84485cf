package notifications

import (
	"time"

	"github.com/ziadkadry99/auto-decide/internal/engine"
)

// Severity indicates the importance of a notification.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s == SeverityInfo || s == SeverityWarning || s == SeverityCritical
}

// SeverityFor maps an engine notice kind to a notification severity.
func SeverityFor(kind engine.NoticeKind) Severity {
	switch kind {
	case engine.NoticeExecutionError:
		return SeverityCritical
	case engine.NoticeExecutionFailed, engine.NoticeDeactivated, engine.NoticeHistoryCleared:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// DigestFrequency controls how often digest summaries are sent.
type DigestFrequency string

const (
	FreqRealtime DigestFrequency = "realtime"
	FreqDaily    DigestFrequency = "daily"
	FreqWeekly   DigestFrequency = "weekly"
)

// Notification is a persisted engine notice.
type Notification struct {
	ID         string            `json:"id"`
	Kind       engine.NoticeKind `json:"kind"`
	Severity   Severity          `json:"severity"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	DecisionID string            `json:"decision_id,omitempty"`
	Delivered  bool              `json:"delivered"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Preference stores a subscriber's delivery preferences. EventFilter is a
// glob over notice kinds, for example "execution_*".
type Preference struct {
	SubscriberID    string          `json:"subscriber_id"`
	Channel         string          `json:"channel"`
	SeverityFilter  Severity        `json:"severity_filter"`
	EventFilter     string          `json:"event_filter"`
	DigestFrequency DigestFrequency `json:"digest_frequency"`
	WebhookURL      string          `json:"webhook_url,omitempty"`
}
