package server

import (
	"context"
	"fmt"
	"log"

	"github.com/ziadkadry99/auto-decide/internal/archive"
	"github.com/ziadkadry99/auto-decide/internal/audit"
	"github.com/ziadkadry99/auto-decide/internal/config"
	"github.com/ziadkadry99/auto-decide/internal/dashboard"
	"github.com/ziadkadry99/auto-decide/internal/db"
	"github.com/ziadkadry99/auto-decide/internal/engine"
	"github.com/ziadkadry99/auto-decide/internal/notifications"
)

// Services is the engine together with every persistence and delivery
// collaborator it feeds.
type Services struct {
	Engine        *engine.Engine
	Archive       *archive.Store
	Audit         *audit.Store
	Notifications *notifications.Store
	Dispatcher    *notifications.Dispatcher
	Hub           *dashboard.Hub
	Dashboard     *dashboard.Dashboard

	activateOnStart bool
}

// Option adjusts how NewServices wires the engine.
type Option func(*options)

type options struct {
	notifiers   []engine.Notifier
	manualTicks bool
}

// WithNotifier appends n to the engine's notice fan-out.
func WithNotifier(n engine.Notifier) Option {
	return func(o *options) { o.notifiers = append(o.notifiers, n) }
}

// WithManualTicks leaves ticking to the caller: activation does not start
// the engine's internal ticker.
func WithManualTicks() Option {
	return func(o *options) { o.manualTicks = true }
}

// NewServices builds the stores on database and an engine whose notices
// and decision snapshots flow to them.
func NewServices(database *db.DB, cfg *config.Config, opts ...Option) *Services {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Services{
		Archive:         archive.NewStore(database),
		Audit:           audit.NewStore(database),
		Notifications:   notifications.NewStore(database),
		Hub:             dashboard.NewHub(),
		activateOnStart: cfg.Engine.ActivateOnStart,
	}

	var dispatchOpts []notifications.DispatcherOption
	if sub, ok := cfg.Subscriber(); ok {
		dispatchOpts = append(dispatchOpts, notifications.WithSubscriber(sub))
	}
	s.Dispatcher = notifications.NewDispatcher(s.Notifications, dispatchOpts...)

	notifiers := engine.Notifiers{engine.LogNotifier{}, s.Dispatcher, s.Hub}
	notifiers = append(notifiers, o.notifiers...)

	engineOpts := cfg.EngineOptions()
	engineOpts.Notifier = notifiers
	engineOpts.Recorder = engine.Recorders{s.Archive, s.Hub}
	engineOpts.ManualTicks = o.manualTicks
	s.Engine = engine.New(engineOpts)

	s.Dashboard = dashboard.New(s.Engine, s.Archive, s.Hub)
	return s
}

// Start activates the engine when the configuration asks for it.
func (s *Services) Start(ctx context.Context) {
	if !s.activateOnStart {
		return
	}
	if s.Engine.Activate(ctx) {
		err := s.Audit.Log(ctx, audit.Entry{
			Action:    audit.ActionEngineActivated,
			Scope:     audit.ScopeEngine,
			ActorType: audit.ActorSystem,
			ActorID:   "config",
			Summary:   "Engine activated on start",
		})
		if err != nil {
			log.Printf("server: audit activation: %v", err)
		}
	}
}

// Close stops the engine and waits for in-flight executions.
func (s *Services) Close(ctx context.Context) error {
	if err := s.Engine.Close(ctx); err != nil {
		return fmt.Errorf("closing engine: %w", err)
	}
	return nil
}
