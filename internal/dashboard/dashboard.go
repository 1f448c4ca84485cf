// Package dashboard serves the operator page and a live websocket feed of
// engine notices, decision snapshots and status.
package dashboard

import (
	"github.com/go-chi/chi/v5"
	"github.com/ziadkadry99/auto-decide/internal/archive"
	"github.com/ziadkadry99/auto-decide/internal/engine"
)

// Dashboard provides the HTML page, summary endpoints and the live feed.
type Dashboard struct {
	engine  *engine.Engine
	archive *archive.Store
	hub     *Hub
}

// New creates a Dashboard. The hub should also be registered as the
// engine's notifier and recorder so the feed sees every change. archive
// may be nil.
func New(eng *engine.Engine, arch *archive.Store, hub *Hub) *Dashboard {
	if hub == nil {
		hub = NewHub()
	}
	return &Dashboard{
		engine:  eng,
		archive: arch,
		hub:     hub,
	}
}

// Hub returns the broadcast hub backing the live feed.
func (d *Dashboard) Hub() *Hub {
	return d.hub
}

// RegisterRoutes mounts all dashboard routes onto the given router.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Get("/", d.ServeIndex)
	r.Get("/api/dashboard/stats", d.handleStats)
	r.Get("/api/dashboard/recent", d.handleRecent)
	r.Get("/ws", d.handleWebSocket)
}
