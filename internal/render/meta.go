package render

import (
	"sort"
	"strings"

	"github.com/yanizio/vitrine/internal/head"
	"github.com/yanizio/vitrine/internal/property"
	"github.com/yanizio/vitrine/internal/routing"
	"github.com/yanizio/vitrine/internal/site"
	"github.com/yanizio/vitrine/internal/variant"
)

// metadata resolves title and description page → site → default and
// fills the <head> builder.
func (r *Renderer) metadata(cfg *site.Config, page *site.Page, detail *property.View, segments []string) *head.Builder {
	b := head.New()

	title := first(page.Title, cfg.MetaTitle, cfg.Name, r.opts.DefaultTitle)
	desc := first(page.Description, cfg.MetaDescription, r.opts.DefaultDescription)
	if detail != nil {
		title = first(detail.Title, title)
		if detail.Description != "" {
			desc = truncate(detail.Description, 160)
		}
	}
	if cfg.Name != "" && title != cfg.Name {
		title += " | " + cfg.Name
	}
	b.SetTitle(title)
	b.SetDescription(desc)

	canonical := r.siteURL(cfg) + routing.BuildPath("", strings.Join(segments, "/"))
	b.Link("canonical", canonical)
	b.Property("og:type", "website")
	b.Property("og:title", title)
	b.Property("og:description", desc)
	b.Property("og:url", canonical)
	if cfg.Name != "" {
		b.Property("og:site_name", cfg.Name)
	}
	switch {
	case detail != nil && detail.FeaturedImage != "" && detail.FeaturedImage != property.PlaceholderImage:
		b.Property("og:image", detail.FeaturedImage)
	case cfg.LogoURL != "":
		b.Property("og:image", cfg.LogoURL)
	}
	if cfg.Status != site.StatusPublished {
		b.Meta("robots", "noindex")
	}

	agent := map[string]any{
		"@context": "https://schema.org",
		"@type":    "RealEstateAgent",
		"name":     first(cfg.Name, cfg.Subdomain),
		"url":      r.siteURL(cfg),
	}
	if cfg.LogoURL != "" {
		agent["logo"] = cfg.LogoURL
	}
	// Plain maps of strings always marshal.
	_ = b.JSONLD(agent)
	return b
}

// siteURL is the public origin of cfg.
func (r *Renderer) siteURL(cfg *site.Config) string {
	switch {
	case cfg.CustomDomain != "":
		return "https://" + cfg.CustomDomain
	case r.opts.BaseDomain != "":
		return "https://" + cfg.Subdomain + "." + r.opts.BaseDomain
	default:
		return "https://" + cfg.Subdomain
	}
}

// navigation lists the active, linkable pages by Order.  Home links to "/".
func navigation(cfg *site.Config, current *site.Page) []variant.NavLink {
	pages := make([]site.Page, 0, len(cfg.Pages))
	for _, p := range cfg.Pages {
		if p.Active && p.Type != site.PageListingDetail {
			pages = append(pages, p)
		}
	}
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Order < pages[j].Order })

	nav := make([]variant.NavLink, 0, len(pages))
	for _, p := range pages {
		url := routing.BuildPath("", p.Slug)
		if p.Type == site.PageHome {
			url = "/"
		}
		nav = append(nav, variant.NavLink{
			Title:  first(p.Title, p.Type.DefaultTitle()),
			URL:    url,
			Active: p.ID == current.ID,
		})
	}
	return nav
}

// detailPath is the URL prefix of the site's property detail page.
func detailPath(cfg *site.Config) string {
	if p, ok := cfg.FirstOfType(site.PageListingDetail); ok && p.Active {
		return routing.BuildPath("", p.Slug)
	}
	return ""
}

func first(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
