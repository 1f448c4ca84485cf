package dashboard

import (
	_ "embed"
	"encoding/json"
	"net/http"

	"github.com/ziadkadry99/auto-decide/internal/archive"
	"github.com/ziadkadry99/auto-decide/internal/decision"
	"github.com/ziadkadry99/auto-decide/internal/engine"
)

const recentDecisions = 10

// livePage is the single-page feed client; it talks to /ws only.
//
//go:embed index.html
var livePage []byte

// statsResponse is the JSON response for the stats endpoint.
type statsResponse struct {
	Engine  engine.Status  `json:"engine"`
	Archive *archive.Stats `json:"archive,omitempty"`
	Clients int            `json:"clients"`
}

// recentResponse is the JSON response for the recent activity endpoint.
type recentResponse struct {
	Decisions []decision.Decision `json:"decisions"`
	Notices   []engine.Notice     `json:"notices"`
}

// ServeIndex serves the embedded live feed page.
func (d *Dashboard) ServeIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(livePage)
}

func (d *Dashboard) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{
		Engine:  d.engine.Status(),
		Clients: d.hub.Clients(),
	}

	if d.archive != nil {
		st, err := d.archive.Stats(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		resp.Archive = st
	}

	writeJSON(w, http.StatusOK, resp)
}

func (d *Dashboard) handleRecent(w http.ResponseWriter, r *http.Request) {
	decisions := d.engine.Decisions()
	if len(decisions) > recentDecisions {
		decisions = decisions[:recentDecisions]
	}
	if decisions == nil {
		decisions = []decision.Decision{}
	}

	writeJSON(w, http.StatusOK, recentResponse{
		Decisions: decisions,
		Notices:   d.hub.Recent(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
