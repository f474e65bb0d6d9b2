// internal/web/public.go
//
// Public listener: every tenant page.
//
// Context
// -------
// The public router answers any host.  `/static/*` serves the shared
// stylesheet; every other GET is handed to the renderer as path segments.
//
// Status mapping
// --------------
//   • 200 – rendered page (MAINTENANCE sites included, with a banner)
//   • 404 – render.ErrNotFound; one generic body whatever the cause
//   • 503 – any *render.Error; the stage goes to the log, not the body
//
// Notes
// -----
// • Only GET and HEAD are routed.
// • The trailing slash is ignored ("/imoveis/" ≡ "/imoveis").
package web

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/vitrine/internal/metrics"
	"github.com/yanizio/vitrine/internal/middleware"
	"github.com/yanizio/vitrine/internal/render"
	"github.com/yanizio/vitrine/internal/requestinfo"
	"github.com/yanizio/vitrine/internal/routing"
)

//go:embed static
var staticFS embed.FS

const (
	notFoundBody    = "<!DOCTYPE html><html lang=\"pt-BR\"><head><meta charset=\"utf-8\"><title>Página não encontrada</title></head><body><h1>Página não encontrada</h1></body></html>"
	unavailableBody = "<!DOCTYPE html><html lang=\"pt-BR\"><head><meta charset=\"utf-8\"><title>Indisponível</title></head><body><h1>Site temporariamente indisponível</h1></body></html>"
)

// Renderer turns (host, path segments) into a page.
type Renderer interface {
	Render(ctx context.Context, host string, segments []string) (*render.Page, error)
}

// PublicOptions configures the public router.
type PublicOptions struct {
	ForceHTTPS bool
	// Sites is required when ForceHTTPS is set.
	Sites middleware.SiteLookup
	Geo   *requestinfo.GeoDB
}

// Public returns the tenant-facing handler.
func Public(rd Renderer, opts PublicOptions, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.L()
	}
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Security(opts.ForceHTTPS))
	r.Use(requestinfo.Enrich(opts.Geo, log))

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	p := &public{rd: rd, log: log}
	r.Get("/*", p.serve)
	r.Head("/*", p.serve)

	var h http.Handler = r
	if opts.ForceHTTPS && opts.Sites != nil {
		h = middleware.ForceHTTPS(opts.Sites, h)
	}
	return h
}

type public struct {
	rd  Renderer
	log *zap.Logger
}

func (p *public) serve(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	page, err := p.rd.Render(r.Context(), r.Host, routing.Segments(r.URL.Path))

	var re *render.Error
	switch {
	case err == nil:
	case errors.Is(err, render.ErrNotFound):
		writeHTML(w, http.StatusNotFound, notFoundBody)
		return
	case errors.As(err, &re):
		w.Header().Set("Retry-After", "30")
		writeHTML(w, http.StatusServiceUnavailable, unavailableBody)
		return
	default:
		p.log.Error("unexpected render error", zap.String("host", r.Host), zap.Error(err))
		writeHTML(w, http.StatusServiceUnavailable, unavailableBody)
		return
	}

	device := requestinfo.Device(r.Context())
	metrics.PageViewsTotal.WithLabelValues(device).Inc()
	p.log.Debug("page rendered",
		zap.String("site_id", page.SiteID),
		zap.String("page", page.Slug),
		zap.String("device", device),
		zap.Duration("took", time.Since(start)))

	if page.Maintenance {
		w.Header().Set("X-Site-Status", "maintenance")
	}
	writeHTML(w, http.StatusOK, string(page.HTML))
}

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status != http.StatusOK {
		w.Header().Set("Cache-Control", "no-store")
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
