// Package render is the single entry point the HTTP layer uses to turn a
// (host, path) pair into a page.
//
// State machine
// -------------
//
//	RESOLVING      host → site.Config (tenant resolver); miss → ErrNotFound
//	LOCATING_PAGE  first segment (or "home") → site.Page; miss → ErrNotFound
//	PROJECTING     bounded property fetch → []property.View
//	COMPOSING      page + views → compose.RenderTree
//	DONE           *Page
//
// Every not-found cause returns the same ErrNotFound value so callers cannot
// tell a missing site from an inactive page.  Any other failure is an
// *Error carrying the stage it happened in.  Nothing is retried.
package render

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/vitrine/internal/compose"
	"github.com/yanizio/vitrine/internal/metrics"
	"github.com/yanizio/vitrine/internal/property"
	"github.com/yanizio/vitrine/internal/site"
	"github.com/yanizio/vitrine/internal/tenant"
)

// Stage names one step of a render.
type Stage string

const (
	StageResolving    Stage = "RESOLVING"
	StageLocatingPage Stage = "LOCATING_PAGE"
	StageProjecting   Stage = "PROJECTING"
	StageComposing    Stage = "COMPOSING"
	StageDone         Stage = "DONE"
)

// ErrNotFound is the only not-found outcome of Render.
var ErrNotFound = errors.New("not found")

// Error is a render failure other than not found.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string { return fmt.Sprintf("render %s: %v", e.Stage, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Defaults for Options.
const (
	DefaultPropertyLimit = 24
	DefaultFetchTimeout  = 2 * time.Second
	DefaultTitle         = "Imóveis à venda e para alugar"
	DefaultDescription   = "Encontre casas, apartamentos e terrenos."
)

// Options tunes a Renderer.  Zero fields take the defaults above.
type Options struct {
	PropertyLimit      int
	FetchTimeout       time.Duration
	BaseDomain         string
	DefaultTitle       string
	DefaultDescription string
}

// SiteResolver is the tenant lookup the renderer needs.
type SiteResolver interface {
	Resolve(ctx context.Context, hostOrSubdomain string) (*site.Config, error)
}

// Page is a successful render.
type Page struct {
	SiteID      string
	TenantID    string
	PageID      string
	Type        site.PageType
	Slug        string
	Title       string
	Description string
	Status      site.Status
	Maintenance bool
	HTML        template.HTML
	Tree        *compose.RenderTree
}

// Renderer wires resolver, property source, and composer.
type Renderer struct {
	sites    SiteResolver
	props    property.Lister
	composer *compose.Composer
	opts     Options
	log      *zap.Logger
}

// New returns a Renderer.  log may be nil.
func New(sites SiteResolver, props property.Lister, composer *compose.Composer, opts Options, log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.L()
	}
	if opts.PropertyLimit <= 0 {
		opts.PropertyLimit = DefaultPropertyLimit
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.DefaultTitle == "" {
		opts.DefaultTitle = DefaultTitle
	}
	if opts.DefaultDescription == "" {
		opts.DefaultDescription = DefaultDescription
	}
	return &Renderer{sites: sites, props: props, composer: composer, opts: opts, log: log}
}

// Render produces the page at segments of host.
func (r *Renderer) Render(ctx context.Context, host string, segments []string) (*Page, error) {
	start := time.Now()
	p, err := r.render(ctx, host, segments)
	metrics.RenderDuration.Observe(time.Since(start).Seconds())

	var re *Error
	switch {
	case err == nil:
		metrics.RenderTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrNotFound):
		metrics.RenderTotal.WithLabelValues("not_found").Inc()
	case errors.As(err, &re):
		metrics.RenderTotal.WithLabelValues("error").Inc()
		r.log.Error("render failed",
			zap.String("host", host),
			zap.Strings("segments", segments),
			zap.String("stage", string(re.Stage)),
			zap.Error(re.Err))
	}
	return p, err
}

func (r *Renderer) render(ctx context.Context, host string, segments []string) (*Page, error) {
	// RESOLVING
	cfg, err := r.sites.Resolve(ctx, host)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &Error{Stage: StageResolving, Err: err}
	}

	// LOCATING_PAGE
	page, propertyID, ok := locate(cfg, segments)
	if !ok {
		return nil, ErrNotFound
	}

	// PROJECTING
	views, detail, err := r.project(ctx, cfg, propertyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &Error{Stage: StageProjecting, Err: err}
	}

	// COMPOSING
	meta := r.metadata(cfg, page, detail, segments)
	tree, err := r.composer.Compose(page, cfg, views, compose.Context{
		Nav:         navigation(cfg, page),
		Property:    detail,
		DetailPath:  detailPath(cfg),
		Title:       meta.TitleText(),
		Description: meta.DescriptionText(),
		Head:        meta.HTML(),
		Maintenance: cfg.Status == site.StatusMaintenance,
	})
	if err != nil {
		if errors.Is(err, compose.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &Error{Stage: StageComposing, Err: err}
	}

	// DONE
	return &Page{
		SiteID:      cfg.ID,
		TenantID:    cfg.TenantID,
		PageID:      page.ID,
		Type:        page.Type,
		Slug:        page.Slug,
		Title:       meta.TitleText(),
		Description: meta.DescriptionText(),
		Status:      cfg.Status,
		Maintenance: cfg.Status == site.StatusMaintenance,
		HTML:        tree.Document,
		Tree:        tree,
	}, nil
}

// locate maps path segments to an active page.  Detail pages take the
// property id as the second segment; every other page takes exactly one
// segment (or none for home).
func locate(cfg *site.Config, segments []string) (*site.Page, string, bool) {
	var page *site.Page
	var ok bool
	if len(segments) == 0 {
		page, ok = cfg.PageBySlug(site.PageHome.DefaultSlug())
		if !ok {
			page, ok = cfg.FirstOfType(site.PageHome)
		}
	} else {
		page, ok = cfg.PageBySlug(segments[0])
	}
	if !ok || !page.Active {
		return nil, "", false
	}

	switch page.Type {
	case site.PageListingDetail:
		if len(segments) != 2 || segments[1] == "" {
			return nil, "", false
		}
		return page, segments[1], true
	default:
		if len(segments) > 1 {
			return nil, "", false
		}
		return page, "", true
	}
}

// project fetches the bounded listing and, on detail pages, the property.
func (r *Renderer) project(ctx context.Context, cfg *site.Config, propertyID string) ([]property.View, *property.View, error) {
	fctx, cancel := context.WithTimeout(ctx, r.opts.FetchTimeout)
	defer cancel()

	raws, err := r.props.ListActive(fctx, cfg.TenantID, r.opts.PropertyLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("list properties: %w", err)
	}
	views, defs := property.ProjectAll(raws)
	for _, d := range defs {
		metrics.ProjectionDefaultsTotal.Inc()
		r.log.Debug("property projected with defaults",
			zap.String("tenant_id", cfg.TenantID),
			zap.String("property_id", d.PropertyID),
			zap.Strings("fields", d.Fields))
	}
	if propertyID == "" {
		return views, nil, nil
	}

	for i := range views {
		if views[i].ID == propertyID {
			v := views[i]
			return views, &v, nil
		}
	}
	finder, ok := r.props.(property.Finder)
	if !ok {
		return nil, nil, ErrNotFound
	}
	raw, err := finder.FindActive(fctx, cfg.TenantID, propertyID)
	if err != nil {
		if errors.Is(err, property.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("find property: %w", err)
	}
	v := property.Project(*raw)
	return views, &v, nil
}
