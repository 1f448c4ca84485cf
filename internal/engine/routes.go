package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ziadkadry99/auto-decide/internal/audit"
	"github.com/ziadkadry99/auto-decide/internal/decision"
)

// ActorHeader names the request header that identifies the operator.
const ActorHeader = "X-Actor"

// RegisterRoutes mounts engine endpoints under /api/engine on the given
// router. Operator actions are written to trail when it is non-nil.
func RegisterRoutes(r chi.Router, eng *Engine, trail *audit.Store) {
	h := &handlers{eng: eng, trail: trail}
	r.Route("/api/engine", func(r chi.Router) {
		r.Get("/status", h.status)
		r.Post("/activate", h.activate)
		r.Post("/deactivate", h.deactivate)
		r.Post("/auto-mode", h.toggleAutoMode)
		r.Put("/learning-mode", h.setLearningMode)
		r.Get("/criteria", h.getCriteria)
		r.Patch("/criteria", h.patchCriteria)
		r.Delete("/history", h.clearHistory)
		r.Get("/decisions", h.listDecisions)
		r.Get("/decisions/{id}", h.getDecision)
		r.Post("/decisions/{id}/execute", h.execute)
		r.Post("/evaluate", h.evaluate)
		r.Post("/generate", h.generate)
		r.Post("/tick", h.tick)
	})
}

type handlers struct {
	eng   *Engine
	trail *audit.Store
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.eng.Status())
}

func (h *handlers) activate(w http.ResponseWriter, r *http.Request) {
	changed := h.eng.Activate(r.Context())
	if changed {
		h.audit(r, audit.Entry{
			Action:  audit.ActionEngineActivated,
			Scope:   audit.ScopeEngine,
			Summary: "Engine activated",
		}, nil, nil)
	}
	writeJSON(w, http.StatusOK, map[string]any{"changed": changed, "status": h.eng.Status()})
}

func (h *handlers) deactivate(w http.ResponseWriter, r *http.Request) {
	changed := h.eng.Deactivate(r.Context())
	if changed {
		h.audit(r, audit.Entry{
			Action:  audit.ActionEngineDeactivated,
			Scope:   audit.ScopeEngine,
			Summary: "Engine deactivated",
		}, nil, nil)
	}
	writeJSON(w, http.StatusOK, map[string]any{"changed": changed, "status": h.eng.Status()})
}

func (h *handlers) toggleAutoMode(w http.ResponseWriter, r *http.Request) {
	enabled := h.eng.ToggleAutoMode(r.Context())
	h.audit(r, audit.Entry{
		Action:  audit.ActionAutoModeChanged,
		Scope:   audit.ScopeEngine,
		Summary: fmt.Sprintf("Auto mode set to %t", enabled),
	}, map[string]bool{"auto_mode": !enabled}, map[string]bool{"auto_mode": enabled})
	writeJSON(w, http.StatusOK, map[string]bool{"auto_mode": enabled})
}

func (h *handlers) setLearningMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Enabled == nil {
		http.Error(w, "request body must be {\"enabled\": bool}", http.StatusBadRequest)
		return
	}

	previous := h.eng.Status().LearningMode
	h.eng.SetLearningMode(r.Context(), *body.Enabled)
	h.audit(r, audit.Entry{
		Action:  audit.ActionLearningChanged,
		Scope:   audit.ScopeEngine,
		Summary: fmt.Sprintf("Learning mode set to %t", *body.Enabled),
	}, map[string]bool{"learning_mode": previous}, map[string]bool{"learning_mode": *body.Enabled})
	writeJSON(w, http.StatusOK, map[string]bool{"learning_mode": *body.Enabled})
}

func (h *handlers) getCriteria(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.eng.Criteria())
}

func (h *handlers) patchCriteria(w http.ResponseWriter, r *http.Request) {
	var patch decision.CriteriaPatch
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if patch.Empty() {
		http.Error(w, "no criteria fields supplied", http.StatusBadRequest)
		return
	}

	previous := h.eng.Criteria()
	if err := previous.Merge(patch).Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated := h.eng.UpdateCriteria(r.Context(), patch)
	h.audit(r, audit.Entry{
		Action:  audit.ActionCriteriaUpdated,
		Scope:   audit.ScopeCriteria,
		Summary: "Decision criteria updated",
	}, previous, updated)
	writeJSON(w, http.StatusOK, updated)
}

func (h *handlers) clearHistory(w http.ResponseWriter, r *http.Request) {
	retained := len(h.eng.Decisions())
	h.eng.ClearHistory(r.Context())
	h.audit(r, audit.Entry{
		Action:  audit.ActionHistoryCleared,
		Scope:   audit.ScopeEngine,
		Summary: fmt.Sprintf("Cleared %d retained decisions", retained),
	}, nil, nil)
	writeJSON(w, http.StatusOK, map[string]int{"cleared": retained})
}

func (h *handlers) listDecisions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := decision.Status(q.Get("status"))
	limit := 0
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	out := []decision.Decision{}
	for _, d := range h.eng.Decisions() {
		if status != "" && d.Status != status {
			continue
		}
		out = append(out, d)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) getDecision(w http.ResponseWriter, r *http.Request) {
	d, ok := h.eng.Decision(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *handlers) execute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ok, err := h.eng.ManualExecute(r.Context(), id)
	switch {
	case errors.Is(err, ErrDecisionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, ErrNotExecutable):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	d, _ := h.eng.Decision(id)
	h.audit(r, audit.Entry{
		Action:  audit.ActionDecisionExecuted,
		Scope:   audit.ScopeDecision,
		ScopeID: id,
		Summary: fmt.Sprintf("Manual execution finished with status %s", d.Status),
		Detail:  d.Description,
	}, nil, nil)
	writeJSON(w, http.StatusOK, map[string]any{"success": ok, "decision": d})
}

func (h *handlers) evaluate(w http.ResponseWriter, r *http.Request) {
	var d decision.Decision
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !d.Type.Valid() || !d.Priority.Valid() {
		http.Error(w, "type and priority must be valid", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.eng.Evaluate(d))
}

func (h *handlers) generate(w http.ResponseWriter, r *http.Request) {
	d := h.eng.Generate()
	writeJSON(w, http.StatusOK, map[string]any{
		"decision":   d,
		"evaluation": h.eng.Evaluate(d),
	})
}

func (h *handlers) tick(w http.ResponseWriter, r *http.Request) {
	d, generated := h.eng.Tick(r.Context())
	resp := map[string]any{"generated": generated}
	if generated {
		resp["decision"] = d
	}
	writeJSON(w, http.StatusOK, resp)
}

// audit writes an operator action to the trail. Failures are logged only.
func (h *handlers) audit(r *http.Request, entry audit.Entry, previous, next any) {
	if h.trail == nil {
		return
	}
	entry.ActorType = audit.ActorUser
	entry.ActorID = r.Header.Get(ActorHeader)
	if entry.ActorID == "" {
		entry.ActorID = "anonymous"
	}

	ctx := context.WithoutCancel(r.Context())
	if err := h.trail.LogChange(ctx, entry, previous, next); err != nil {
		log.Printf("engine: writing audit entry: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
