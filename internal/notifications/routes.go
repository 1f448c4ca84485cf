package notifications

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ziadkadry99/auto-decide/internal/engine"
)

// RegisterRoutes mounts notification endpoints under /api/notifications on the given router.
func RegisterRoutes(r chi.Router, store *Store, dispatcher *Dispatcher) {
	r.Route("/api/notifications", func(r chi.Router) {
		r.Get("/", handleList(store))
		r.Get("/pending", handlePending(store))
		r.Get("/digest/{subscriberID}", handleDigest(dispatcher))
		r.Get("/preferences/{subscriberID}", handleGetPreferences(store))
		r.Put("/preferences", handleSetPreference(store))
		r.Get("/{id}", handleGetByID(store))
		r.Post("/{id}/deliver", handleMarkDelivered(store))
	})
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		filter := ListFilter{}

		if v := q.Get("kind"); v != "" {
			filter.Kind = engine.NoticeKind(v)
		}
		if v := q.Get("decision_id"); v != "" {
			filter.DecisionID = v
		}
		if v := q.Get("severity"); v != "" {
			filter.Severity = Severity(v)
		}
		if v := q.Get("delivered"); v != "" {
			b, err := strconv.ParseBool(v)
			if err == nil {
				filter.Delivered = &b
			}
		}
		if v := q.Get("since"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				filter.Since = t
			}
		}
		if v := q.Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Limit = n
			}
		}
		if v := q.Get("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Offset = n
			}
		}

		notifications, err := store.List(r.Context(), filter)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if notifications == nil {
			notifications = []Notification{}
		}

		writeJSON(w, http.StatusOK, notifications)
	}
}

func handleGetByID(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		n, err := store.GetByID(r.Context(), id)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, n)
	}
}

func handleMarkDelivered(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := store.MarkDelivered(r.Context(), id); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "delivered"})
	}
}

func handlePending(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notifications, err := store.GetPending(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, notifications)
	}
}

func handleGetPreferences(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subscriberID := chi.URLParam(r, "subscriberID")

		prefs, err := store.GetPreferences(r.Context(), subscriberID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, prefs)
	}
}

func handleSetPreference(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var pref Preference
		if err := json.NewDecoder(r.Body).Decode(&pref); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		if pref.SubscriberID == "" || pref.Channel == "" {
			http.Error(w, "subscriber_id and channel are required", http.StatusBadRequest)
			return
		}
		if pref.SeverityFilter != "" && !pref.SeverityFilter.Valid() {
			http.Error(w, "unknown severity_filter", http.StatusBadRequest)
			return
		}
		if err := ValidateEventFilter(pref.EventFilter); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		switch pref.DigestFrequency {
		case "", FreqRealtime, FreqDaily, FreqWeekly:
		default:
			http.Error(w, "unknown digest_frequency", http.StatusBadRequest)
			return
		}

		if err := store.SetPreference(r.Context(), pref); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, pref)
	}
}

func handleDigest(dispatcher *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subscriberID := chi.URLParam(r, "subscriberID")

		since := time.Now().UTC().Add(-24 * time.Hour) // default: last 24 hours
		if v := r.URL.Query().Get("since"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				since = t
			}
		}

		digest, err := dispatcher.GenerateDigest(r.Context(), subscriberID, since)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, digest)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
