package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ziadkadry99/auto-decide/internal/audit"
	"github.com/ziadkadry99/auto-decide/internal/config"
	"github.com/ziadkadry99/auto-decide/internal/db"
	"github.com/ziadkadry99/auto-decide/internal/engine"
	"github.com/ziadkadry99/auto-decide/internal/notifications"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Engine.TickIntervalMS = int(time.Hour / time.Millisecond)
	cfg.Engine.GenerateProbability = 1
	cfg.Engine.PreCheckDelayMS = 0
	cfg.Engine.MSPerSimulatedSecond = 0
	cfg.Engine.Seed = 11
	return cfg
}

func setupServices(t *testing.T, cfg *config.Config) *Services {
	t.Helper()

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	svc := NewServices(database, cfg)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		svc.Close(ctx)
	})
	return svc
}

func TestHealthCheck(t *testing.T) {
	srv := New(Config{Port: 0}, nil)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := New(Config{Port: 0, AllowAll: true}, nil)

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func TestFeatureRoutesMounted(t *testing.T) {
	svc := setupServices(t, testConfig())
	srv := New(Config{}, svc)

	paths := []string{
		"/api/engine/status",
		"/api/archive/stats",
		"/api/audit",
		"/api/notifications",
		"/api/dashboard/stats",
		"/",
	}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, p, nil)
			w := httptest.NewRecorder()
			srv.Router().ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Errorf("GET %s = %d: %s", p, w.Code, w.Body.String())
			}
		})
	}
}

func TestActivationFlowsToCollaborators(t *testing.T) {
	svc := setupServices(t, testConfig())
	srv := New(Config{}, svc)
	ctx := t.Context()

	req := httptest.NewRequest(http.MethodPost, "/api/engine/activate", nil)
	req.Header.Set(engine.ActorHeader, "alice")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("activate = %d: %s", w.Code, w.Body.String())
	}

	if _, ok := svc.Engine.Tick(ctx); !ok {
		t.Fatal("tick did not generate a decision")
	}

	notes, err := svc.Notifications.List(ctx, notifications.ListFilter{Kind: engine.NoticeActivated})
	if err != nil {
		t.Fatalf("listing notifications: %v", err)
	}
	if len(notes) != 1 {
		t.Errorf("expected 1 activation notification, got %d", len(notes))
	}

	entries, err := svc.Audit.Query(ctx, audit.QueryFilter{Action: audit.ActionEngineActivated})
	if err != nil {
		t.Fatalf("querying audit: %v", err)
	}
	if len(entries) != 1 || entries[0].ActorID != "alice" {
		t.Errorf("audit entries = %+v", entries)
	}

	stats, err := svc.Archive.Stats(ctx)
	if err != nil {
		t.Fatalf("archive stats: %v", err)
	}
	if stats.Total != 1 {
		t.Errorf("expected 1 archived decision, got %d", stats.Total)
	}

	if len(svc.Hub.Recent()) != 1 {
		t.Errorf("hub recent = %+v", svc.Hub.Recent())
	}
}

func TestStartActivatesWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.ActivateOnStart = true
	svc := setupServices(t, cfg)
	ctx := t.Context()

	svc.Start(ctx)
	if !svc.Engine.IsActive() {
		t.Fatal("engine should be active after Start")
	}

	entries, err := svc.Audit.Query(ctx, audit.QueryFilter{ActorID: "config"})
	if err != nil {
		t.Fatalf("querying audit: %v", err)
	}
	if len(entries) != 1 || entries[0].ActorType != audit.ActorSystem {
		t.Errorf("audit entries = %+v", entries)
	}
}

func TestStartLeavesEngineIdleByDefault(t *testing.T) {
	svc := setupServices(t, testConfig())
	svc.Start(t.Context())
	if svc.Engine.IsActive() {
		t.Error("engine should stay inactive")
	}
}

func TestConfigSubscriberReceivesWebhooks(t *testing.T) {
	received := make(chan struct{}, 4)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- struct{}{}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(hook.Close)

	cfg := testConfig()
	cfg.Notifications.WebhookURL = hook.URL
	cfg.Notifications.EventFilter = "engine_*"
	svc := setupServices(t, cfg)

	svc.Engine.Activate(t.Context())

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("webhook was not called")
	}
}

func TestServiceOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.TickIntervalMS = 1

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	var seen []engine.NoticeKind
	svc := NewServices(database, cfg,
		WithManualTicks(),
		WithNotifier(engine.NotifierFunc(func(_ context.Context, n engine.Notice) {
			seen = append(seen, n.Kind)
		})),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		svc.Close(ctx)
	})

	svc.Engine.Activate(t.Context())
	time.Sleep(20 * time.Millisecond)

	if got := svc.Engine.Metrics().TotalDecisions; got != 0 {
		t.Errorf("internal ticker ran with manual ticks: %d decisions", got)
	}
	if len(seen) != 1 || seen[0] != engine.NoticeActivated {
		t.Errorf("extra notifier saw %v", seen)
	}
}
