// Package provision creates new tenant sites.
//
// Workflow
// --------
//  1. Candidate subdomain: requested label → tenant handle → site name,
//     folded to lowercase alphanumerics (≤63).
//  2. Allocation: reserved labels count as taken.  The candidate is checked,
//     then inserted; a collision on either step moves to the one suffixed
//     retry ("imobexemplo4821").  The store's unique key is the guarantee;
//     the check only avoids a failed insert.
//  3. The site is written in DRAFT with theme = default + overrides and the
//     chosen variants of the catalog template.
//  4. One empty page per requested type, ordered by selection index.
//  5. The background task (logo, page copy) is submitted and the call
//     returns without waiting for it.
//
// Calling Provision twice creates two independent sites.
package provision

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/vitrine/internal/assets"
	"github.com/yanizio/vitrine/internal/catalog"
	"github.com/yanizio/vitrine/internal/metrics"
	"github.com/yanizio/vitrine/internal/routing"
	"github.com/yanizio/vitrine/internal/site"
	"github.com/yanizio/vitrine/internal/task"
	"github.com/yanizio/vitrine/internal/theme"
)

// Reserved labels are never allocated to tenants.
var Reserved = []string{"www", "api", "admin", "app", "mail", "static"}

const (
	maxName     = 120
	suffixFloor = 1000
	suffixSpan  = 9000
)

var validate = validator.New()

// Request is one "create site" call.
type Request struct {
	TenantID   string           `json:"tenantId"`
	Name       string           `json:"name"`
	Subdomain  string           `json:"subdomain,omitempty"`
	TemplateID string           `json:"templateId"`
	Theme      *theme.Overrides `json:"theme,omitempty"`
	PageTypes  []string         `json:"pageTypes"`
}

// Result is returned as soon as the DRAFT site exists.
type Result struct {
	SiteID    string      `json:"siteId"`
	Subdomain string      `json:"subdomain"`
	Status    site.Status `json:"status"`
	Slugs     []string    `json:"slugs"`
	// TaskID is blank when the background task could not be queued.
	TaskID string `json:"taskId,omitempty"`
}

// HandleLookup returns the existing public handle of a tenant, or "" when
// it has none.
type HandleLookup interface {
	Handle(ctx context.Context, tenantID string) (string, error)
}

// HandleFunc adapts a function to HandleLookup.
type HandleFunc func(ctx context.Context, tenantID string) (string, error)

func (f HandleFunc) Handle(ctx context.Context, tenantID string) (string, error) {
	return f(ctx, tenantID)
}

// Submitter queues background tasks.
type Submitter interface {
	Submit(ctx context.Context, t task.Task) (string, error)
}

// Invalidator drops cached site configs after background writes.
type Invalidator interface {
	InvalidateSite(siteID string)
}

// Deps are the collaborators of a Workflow.  Store, Catalog, and Queue are
// required.
type Deps struct {
	Store     site.Store
	Catalog   *catalog.Catalog
	Queue     Submitter
	Generator assets.Generator
	Handles   HandleLookup
	Cache     Invalidator
	Log       *zap.Logger
}

// Workflow provisions sites.
type Workflow struct {
	d      Deps
	now    func() time.Time
	suffix func() int
}

// New returns a Workflow.
func New(d Deps) *Workflow {
	if d.Log == nil {
		d.Log = zap.L()
	}
	if d.Generator == nil {
		d.Generator = assets.Disabled{}
	}
	return &Workflow{
		d:      d,
		now:    time.Now,
		suffix: func() int { return suffixFloor + rand.IntN(suffixSpan) },
	}
}

// Provision runs steps 1–5.
func (w *Workflow) Provision(ctx context.Context, req Request) (*Result, error) {
	res, err := w.provision(ctx, req)
	var ve *ValidationError
	switch {
	case err == nil:
		metrics.ProvisionTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrSubdomainCollision):
		metrics.ProvisionTotal.WithLabelValues("collision").Inc()
	case errors.As(err, &ve):
		metrics.ProvisionTotal.WithLabelValues("invalid").Inc()
	default:
		metrics.ProvisionTotal.WithLabelValues("error").Inc()
	}
	return res, err
}

func (w *Workflow) provision(ctx context.Context, req Request) (*Result, error) {
	types, err := checkRequest(&req)
	if err != nil {
		return nil, err
	}

	base, err := w.candidate(ctx, req)
	if err != nil {
		return nil, err
	}

	tpl, fallback := w.d.Catalog.Resolve(req.TemplateID)
	if fallback {
		w.d.Log.Warn("unknown template, using default",
			zap.String("template_id", req.TemplateID),
			zap.String("default", tpl.ID))
	}

	tokens := theme.Default
	if req.Theme != nil {
		tokens = theme.Default.With(*req.Theme)
	}

	now := w.now().UTC()
	cfg := &site.Config{
		ID:             uuid.NewString(),
		TenantID:       req.TenantID,
		Name:           req.Name,
		Status:         site.StatusDraft,
		Theme:          tokens,
		ChosenVariants: tpl.ChosenVariants(),
		TemplateID:     tpl.ID,
		MetaTitle:      req.Name,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	cfg.Pages = buildPages(cfg.ID, types)

	if err := w.allocate(ctx, cfg, base); err != nil {
		return nil, err
	}
	w.d.Log.Info("site provisioned",
		zap.String("site_id", cfg.ID),
		zap.String("tenant_id", cfg.TenantID),
		zap.String("subdomain", cfg.Subdomain),
		zap.String("template_id", cfg.TemplateID),
		zap.Int("pages", len(cfg.Pages)))

	res := &Result{SiteID: cfg.ID, Subdomain: cfg.Subdomain, Status: cfg.Status}
	for _, p := range cfg.Pages {
		res.Slugs = append(res.Slugs, p.Slug)
	}

	id, err := w.d.Queue.Submit(ctx, w.backgroundTask(cfg, tpl))
	if err != nil {
		w.d.Log.Error("background task not queued; pages stay empty",
			zap.String("site_id", cfg.ID), zap.Error(err))
		return res, nil
	}
	res.TaskID = id
	return res, nil
}

// checkRequest trims req in place and parses its page types.
func checkRequest(req *Request) ([]site.PageType, error) {
	req.TenantID = strings.TrimSpace(req.TenantID)
	req.Name = strings.TrimSpace(req.Name)
	req.Subdomain = strings.TrimSpace(req.Subdomain)
	req.TemplateID = strings.TrimSpace(req.TemplateID)

	switch {
	case req.TenantID == "":
		return nil, &ValidationError{Field: "tenantId", Reason: "required"}
	case req.Name == "":
		return nil, &ValidationError{Field: "name", Reason: "required"}
	case len([]rune(req.Name)) > maxName:
		return nil, &ValidationError{Field: "name", Reason: fmt.Sprintf("longer than %d characters", maxName)}
	case len(req.PageTypes) == 0:
		return nil, &ValidationError{Field: "pageTypes", Reason: "select at least one page"}
	}
	if req.Theme != nil {
		if err := validate.Struct(req.Theme); err != nil {
			return nil, &ValidationError{Field: "theme", Reason: err.Error()}
		}
	}
	types := make([]site.PageType, 0, len(req.PageTypes))
	for _, s := range req.PageTypes {
		pt, err := site.ParsePageType(s)
		if err != nil {
			return nil, &ValidationError{Field: "pageTypes", Reason: err.Error()}
		}
		types = append(types, pt)
	}
	return types, nil
}

// candidate picks the base label: requested → handle → name.
func (w *Workflow) candidate(ctx context.Context, req Request) (string, error) {
	if req.Subdomain != "" {
		if l := routing.Label(req.Subdomain); l != "" {
			return l, nil
		}
		return "", &ValidationError{Field: "subdomain", Reason: "no letters or digits"}
	}
	if w.d.Handles != nil {
		h, err := w.d.Handles.Handle(ctx, req.TenantID)
		if err != nil {
			w.d.Log.Warn("tenant handle lookup failed", zap.String("tenant_id", req.TenantID), zap.Error(err))
		} else if l := routing.Label(h); l != "" {
			return l, nil
		}
	}
	if l := routing.Label(req.Name); l != "" {
		return l, nil
	}
	return "", &ValidationError{Field: "name", Reason: "no letters or digits"}
}

// allocate tries base, then one suffixed label, writing cfg on success.
func (w *Workflow) allocate(ctx context.Context, cfg *site.Config, base string) error {
	suffix := strconv.Itoa(w.suffix())
	retry := base
	if len(retry)+len(suffix) > routing.MaxLabel {
		retry = retry[:routing.MaxLabel-len(suffix)]
	}
	retry += suffix

	for _, label := range []string{base, retry} {
		if reserved(label) {
			continue
		}
		taken, err := w.d.Store.SubdomainExists(ctx, label)
		if err != nil {
			return fmt.Errorf("check subdomain %s: %w", label, err)
		}
		if taken {
			continue
		}
		cfg.Subdomain = label
		err = w.d.Store.Create(ctx, cfg)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, site.ErrSubdomainTaken):
			w.d.Log.Info("subdomain taken concurrently", zap.String("subdomain", label))
			continue
		default:
			return fmt.Errorf("create site: %w", err)
		}
	}
	cfg.Subdomain = ""
	return ErrSubdomainCollision
}

func reserved(label string) bool {
	for _, r := range Reserved {
		if label == r {
			return true
		}
	}
	return false
}

// buildPages creates one empty page per type.  Repeated slugs get -2, -3.
func buildPages(siteID string, types []site.PageType) []site.Page {
	pages := make([]site.Page, 0, len(types))
	seen := make(map[string]int, len(types))
	for i, pt := range types {
		slug := pt.DefaultSlug()
		title := pt.DefaultTitle()
		seen[slug]++
		if n := seen[slug]; n > 1 {
			slug = fmt.Sprintf("%s-%d", slug, n)
			title = fmt.Sprintf("%s %d", title, n)
		}
		pages = append(pages, site.Page{
			ID:     uuid.NewString(),
			SiteID: siteID,
			Type:   pt,
			Slug:   slug,
			Title:  title,
			Blocks: []site.ContentBlock{},
			Active: true,
			Order:  i,
		})
	}
	return pages
}
