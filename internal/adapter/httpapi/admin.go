package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bkyoung/prreview/internal/config"
	"github.com/bkyoung/prreview/internal/scheduler"
	"github.com/bkyoung/prreview/internal/store"
)

// AdminDeps wires the read-only operator surface. It deliberately
// exposes no mutating endpoint — an operator who needs to requeue or
// delete a task uses the CLI against the same store and queue
// directly, not this HTTP surface.
type AdminDeps struct {
	Config config.AdminConfig
	Queue  *scheduler.Queue
	Store  store.Store
}

// NewAdminRouter builds the operator-facing router. Unlike the webhook
// router it runs chi's Logger and Recoverer middleware, since this
// surface isn't on anyone's response-time budget.
func NewAdminRouter(deps AdminDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAdminToken(deps.Config.Token))

		r.Get("/admin/queues", deps.handleQueues)
		r.Get("/admin/deadletter", deps.handleDeadLetter)
		r.Get("/admin/installations/{installationID}/repos", deps.handleRepos)
	})

	return r
}

type queueSummary struct {
	FastDepth       int64 `json:"fast_depth"`
	SlowDepth       int64 `json:"slow_depth"`
	IndexDepth      int64 `json:"index_depth"`
	RetryDepth      int64 `json:"retry_depth"`
	DeadLetterDepth int64 `json:"dead_letter_depth"`
}

func (d AdminDeps) handleQueues(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary := queueSummary{}

	var err error
	if summary.FastDepth, err = d.Queue.Depth(ctx, scheduler.LaneFast); err != nil {
		writeError(w, err)
		return
	}
	if summary.SlowDepth, err = d.Queue.Depth(ctx, scheduler.LaneSlow); err != nil {
		writeError(w, err)
		return
	}
	if summary.IndexDepth, err = d.Queue.Depth(ctx, scheduler.LaneIndex); err != nil {
		writeError(w, err)
		return
	}
	if summary.RetryDepth, err = d.Queue.RetryDepth(ctx); err != nil {
		writeError(w, err)
		return
	}
	if summary.DeadLetterDepth, err = d.Queue.DeadLetterDepth(ctx); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, summary)
}

func (d AdminDeps) handleDeadLetter(w http.ResponseWriter, r *http.Request) {
	limit := int64(20)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			limit = parsed
		}
	}

	entries, err := d.Queue.PeekDeadLetter(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, entries)
}

func (d AdminDeps) handleRepos(w http.ResponseWriter, r *http.Request) {
	installationID, err := strconv.ParseInt(chi.URLParam(r, "installationID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid installation id", http.StatusBadRequest)
		return
	}

	repos, err := d.Store.ListRepositoriesByInstallation(r.Context(), installationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, repos)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
