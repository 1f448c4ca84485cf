package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/patrickmn/go-cache"
	"github.com/ziadkadry99/auto-decide/internal/engine"
)

// Digest summarises notifications for a subscriber over a time period.
type Digest struct {
	SubscriberID  string         `json:"subscriber_id"`
	Period        string         `json:"period"`
	Notifications []Notification `json:"notifications"`
	Summary       string         `json:"summary"`
}

// DefaultCooldown is how long a failing webhook is skipped.
const DefaultCooldown = time.Minute

// Dispatcher persists engine notices and delivers them to webhook
// subscribers. It implements engine.Notifier.
type Dispatcher struct {
	store    *Store
	client   *http.Client
	cooldown time.Duration
	failing  *cache.Cache
	static   []Preference
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithHTTPClient replaces the webhook HTTP client.
func WithHTTPClient(c *http.Client) DispatcherOption {
	return func(d *Dispatcher) { d.client = c }
}

// WithCooldown sets how long a URL is skipped after a failed delivery.
func WithCooldown(cooldown time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.cooldown = cooldown }
}

// WithSubscriber adds a preference that is not stored in the database,
// typically the webhook from the config file.
func WithSubscriber(p Preference) DispatcherOption {
	return func(d *Dispatcher) { d.static = append(d.static, p) }
}

// NewDispatcher creates a Dispatcher backed by the given store.
func NewDispatcher(store *Store, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store: store,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		cooldown: DefaultCooldown,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.failing = cache.New(d.cooldown, 2*d.cooldown)
	return d
}

// Notify converts an engine notice into a notification and dispatches it.
// Errors are logged; the engine never sees them.
func (d *Dispatcher) Notify(ctx context.Context, n engine.Notice) {
	err := d.Dispatch(ctx, Notification{
		Kind:       n.Kind,
		Severity:   SeverityFor(n.Kind),
		Title:      n.Title,
		Message:    n.Message,
		DecisionID: n.DecisionID,
		CreatedAt:  n.Time,
	})
	if err != nil {
		log.Printf("notifications: dispatching %s: %v", n.Kind, err)
	}
}

// Dispatch persists a notification and sends it to every matching realtime
// webhook subscriber. The notification is marked delivered once any
// webhook accepts it.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) error {
	id, err := d.store.Create(ctx, n)
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}
	n.ID = id

	prefs, err := d.store.ListPreferences(ctx)
	if err != nil {
		return fmt.Errorf("loading preferences: %w", err)
	}
	prefs = append(prefs, d.static...)

	var payload []byte
	delivered := false
	for _, pref := range prefs {
		if pref.WebhookURL == "" || !d.wants(pref, n) {
			continue
		}
		if pref.DigestFrequency != "" && pref.DigestFrequency != FreqRealtime {
			continue
		}
		if _, cooling := d.failing.Get(pref.WebhookURL); cooling {
			continue
		}
		if payload == nil {
			if payload, err = json.Marshal(n); err != nil {
				return fmt.Errorf("marshalling notification: %w", err)
			}
		}
		if err := d.SendWebhook(ctx, pref.WebhookURL, payload); err != nil {
			log.Printf("notifications: webhook for %s failed, pausing for %s: %v", pref.SubscriberID, d.cooldown, err)
			d.failing.SetDefault(pref.WebhookURL, err.Error())
			continue
		}
		delivered = true
	}

	if delivered {
		if err := d.store.MarkDelivered(ctx, n.ID); err != nil {
			return err
		}
	}
	return nil
}

// GenerateDigest builds a summary of the notifications a subscriber's
// preferences select since the given time.
func (d *Dispatcher) GenerateDigest(ctx context.Context, subscriberID string, since time.Time) (*Digest, error) {
	prefs, err := d.store.GetPreferences(ctx, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("loading preferences: %w", err)
	}
	for _, p := range d.static {
		if p.SubscriberID == subscriberID {
			prefs = append(prefs, p)
		}
	}

	all, err := d.store.List(ctx, ListFilter{Since: since})
	if err != nil {
		return nil, fmt.Errorf("listing notifications for digest: %w", err)
	}

	// A subscriber with no preferences receives everything.
	matched := []Notification{}
	for _, n := range all {
		if len(prefs) == 0 {
			matched = append(matched, n)
			continue
		}
		for _, p := range prefs {
			if d.wants(p, n) {
				matched = append(matched, n)
				break
			}
		}
	}

	period := fmt.Sprintf("%s to %s",
		since.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339))

	summary := fmt.Sprintf("%d notification(s) for %s", len(matched), subscriberID)

	return &Digest{
		SubscriberID:  subscriberID,
		Period:        period,
		Notifications: matched,
		Summary:       summary,
	}, nil
}

// SendWebhook POSTs payload to the given URL.
func (d *Dispatcher) SendWebhook(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (d *Dispatcher) wants(p Preference, n Notification) bool {
	filter := p.SeverityFilter
	if filter == "" {
		filter = SeverityInfo
	}
	return severityMatches(n.Severity, filter) && eventMatches(p.EventFilter, n.Kind)
}

// ValidateEventFilter reports whether pattern is a usable event filter glob.
func ValidateEventFilter(pattern string) error {
	if pattern == "" {
		return nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid event filter %q", pattern)
	}
	return nil
}

// eventMatches reports whether kind is selected by the glob. An empty
// pattern matches every kind.
func eventMatches(pattern string, kind engine.NoticeKind) bool {
	if pattern == "" {
		return true
	}
	matched, err := doublestar.Match(pattern, string(kind))
	return err == nil && matched
}

// severityMatches returns true if the notification severity meets or exceeds the filter threshold.
func severityMatches(actual, filter Severity) bool {
	levels := map[Severity]int{
		SeverityInfo:     0,
		SeverityWarning:  1,
		SeverityCritical: 2,
	}
	return levels[actual] >= levels[filter]
}
