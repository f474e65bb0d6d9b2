// internal/web/admin.go
//
// Admin listener: provisioning API and metrics.
//
// Routes
// ------
//
//	POST /api/sites               provision.Request → 201 provision.Result
//	POST /api/sites/{id}/publish  → 200 {"siteId", "status", "publishedAt"}
//	GET  /api/tasks/{id}          → 200 task.Status
//	GET  /metrics                 Prometheus exposition
//	GET  /healthz                 liveness
//
// Errors are JSON {"error": "...", "field": "..."}: 400 validation, 404
// unknown site or task, 409 subdomain collision or publish without pages,
// 500 anything else.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/vitrine/internal/provision"
	"github.com/yanizio/vitrine/internal/site"
	"github.com/yanizio/vitrine/internal/task"
)

const maxBody = 1 << 20

// Provisioner creates sites.
type Provisioner interface {
	Provision(ctx context.Context, req provision.Request) (*provision.Result, error)
}

// Publisher moves a site to PUBLISHED.
type Publisher interface {
	Publish(ctx context.Context, siteID string, at time.Time) error
}

// Tasks reads background task status.
type Tasks interface {
	Get(ctx context.Context, id string) (task.Status, error)
}

// AdminDeps are the collaborators of the admin router.  Cache is optional.
type AdminDeps struct {
	Provisioner Provisioner
	Publisher   Publisher
	Tasks       Tasks
	Cache       provision.Invalidator
	Now         func() time.Time
}

// Admin returns the operator-facing handler.
func Admin(d AdminDeps, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.L()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	a := &admin{d: d, log: log}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/sites", a.createSite)
		r.Post("/sites/{id}/publish", a.publish)
		r.Get("/tasks/{id}", a.getTask)
	})
	return r
}

type admin struct {
	d   AdminDeps
	log *zap.Logger
}

type apiError struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (a *admin) createSite(w http.ResponseWriter, r *http.Request) {
	var req provision.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid JSON: " + err.Error()})
		return
	}

	res, err := a.d.Provisioner.Provision(r.Context(), req)
	var ve *provision.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, res)
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, apiError{Error: ve.Reason, Field: ve.Field})
	case errors.Is(err, provision.ErrSubdomainCollision):
		writeJSON(w, http.StatusConflict, apiError{Error: err.Error(), Field: "subdomain"})
	default:
		a.fail(w, r, "provision failed", err)
	}
}

func (a *admin) publish(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	at := a.d.Now().UTC()
	err := a.d.Publisher.Publish(r.Context(), id, at)
	switch {
	case err == nil:
	case errors.Is(err, site.ErrNotFound):
		writeJSON(w, http.StatusNotFound, apiError{Error: "site not found"})
		return
	case errors.Is(err, site.ErrNoPages):
		writeJSON(w, http.StatusConflict, apiError{Error: err.Error()})
		return
	default:
		a.fail(w, r, "publish failed", err)
		return
	}

	if a.d.Cache != nil {
		a.d.Cache.InvalidateSite(id)
	}
	a.log.Info("site published", zap.String("site_id", id))
	writeJSON(w, http.StatusOK, map[string]any{
		"siteId":      id,
		"status":      site.StatusPublished,
		"publishedAt": at,
	})
}

func (a *admin) getTask(w http.ResponseWriter, r *http.Request) {
	st, err := a.d.Tasks.Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, st)
	case errors.Is(err, task.ErrNotFound):
		writeJSON(w, http.StatusNotFound, apiError{Error: "task not found"})
	default:
		a.fail(w, r, "task lookup failed", err)
	}
}

func (a *admin) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	a.log.Error(msg,
		zap.String("request_id", chimw.GetReqID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, apiError{Error: http.StatusText(http.StatusInternalServerError)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
