package dispatch

import (
	"encoding/json"
	"net/http"
	"time"

	coredispatch "github.com/serenity-care/dispatch/core/dispatch"
	"github.com/serenity-care/dispatch/core/metrics"
	"github.com/serenity-care/dispatch/core/store"
)

// NewSummaryHandler returns an HTTP handler exposing the dashboard snapshot
// via GET /api/dispatch/summary.
func NewSummaryHandler(detector coredispatch.GapDetector, nlog store.NotificationLog, orgID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		now := time.Now()
		gaps, err := detector.Detect(r.Context(), orgID, now)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		summary, err := metrics.BuildSummary(r.Context(), nlog, len(gaps), now)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(summary); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// NewGapsHandler returns an HTTP handler listing the current coverage gaps
// via GET /api/dispatch/gaps.
func NewGapsHandler(detector coredispatch.GapDetector, orgID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		gaps, err := detector.Detect(r.Context(), orgID, time.Now())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(gaps); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

type respondRequest struct {
	NotificationID string `json:"notification_id"`
	WorkerID       string `json:"worker_id"`
	Accept         bool   `json:"accept"`
}

type respondReply struct {
	Outcome string `json:"outcome"`
}

// NewRespondHandler returns an HTTP handler accepting worker replies via
// POST /api/dispatch/respond. A race loss is reported as 200 with the
// "no longer available" outcome, not as an error.
func NewRespondHandler(resolver *coredispatch.Resolver) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req respondRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.NotificationID == "" || req.WorkerID == "" {
			http.Error(w, "notification_id and worker_id are required", http.StatusBadRequest)
			return
		}
		outcome, err := resolver.Resolve(r.Context(), coredispatch.Response{
			NotificationID: req.NotificationID,
			WorkerID:       req.WorkerID,
			Accept:         req.Accept,
			At:             time.Now(),
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(respondReply{Outcome: outcome.String()}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// NewMux assembles the API routes on a fresh ServeMux.
func NewMux(detector coredispatch.GapDetector, resolver *coredispatch.Resolver, nlog store.NotificationLog, orgID string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/dispatch/summary", NewSummaryHandler(detector, nlog, orgID))
	mux.Handle("/api/dispatch/gaps", NewGapsHandler(detector, orgID))
	mux.Handle("/api/dispatch/respond", NewRespondHandler(resolver))
	return mux
}
