// Package site holds the SiteConfig aggregate, its pages, and the stores that
// persist them.
//
// A Config exclusively owns its Pages: they are created with it, loaded with
// it, and deleted with it.  Subdomains are lowercase and unique across all
// sites; the store enforces this, not the caller.
package site

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yanizio/vitrine/internal/theme"
	"github.com/yanizio/vitrine/internal/variant"
)

var (
	// ErrNotFound is returned by lookups that match no site or page.
	ErrNotFound = errors.New("site not found")
	// ErrSubdomainTaken is returned by Create when another site holds the
	// subdomain (or custom domain).
	ErrSubdomainTaken = errors.New("subdomain already taken")
	// ErrNoPages is returned by Publish for a site without pages.
	ErrNoPages = errors.New("site has no pages")
	// ErrInvalidBlock wraps content block validation failures.
	ErrInvalidBlock = errors.New("invalid content block")
)

// Status is the lifecycle state of a site.
type Status string

const (
	StatusDraft       Status = "DRAFT"
	StatusPublished   Status = "PUBLISHED"
	StatusMaintenance Status = "MAINTENANCE"
	StatusDisabled    Status = "DISABLED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusMaintenance, StatusDisabled:
		return true
	}
	return false
}

// PageType is the closed set of page kinds.
type PageType string

const (
	PageHome          PageType = "HOME"
	PageListing       PageType = "LISTING"
	PageListingDetail PageType = "LISTING_DETAIL"
	PageAbout         PageType = "ABOUT"
	PageContact       PageType = "CONTACT"
	PageFAQ           PageType = "FAQ"
	PageCustom        PageType = "CUSTOM"
)

// PageTypes lists every page type in declaration order.
var PageTypes = []PageType{
	PageHome, PageListing, PageListingDetail, PageAbout, PageContact, PageFAQ, PageCustom,
}

// pageMeta is the fixed per-type data: public key (also the default slug)
// and default title.
type pageMeta struct {
	key   string
	title string
}

func (t PageType) meta() (pageMeta, bool) {
	switch t {
	case PageHome:
		return pageMeta{"home", "Início"}, true
	case PageListing:
		return pageMeta{"imoveis", "Imóveis"}, true
	case PageListingDetail:
		return pageMeta{"imovel", "Detalhes do imóvel"}, true
	case PageAbout:
		return pageMeta{"sobre", "Sobre nós"}, true
	case PageContact:
		return pageMeta{"contato", "Contato"}, true
	case PageFAQ:
		return pageMeta{"faq", "Perguntas frequentes"}, true
	case PageCustom:
		return pageMeta{"pagina", "Página"}, true
	}
	return pageMeta{}, false
}

// Valid reports whether t is a known page type.
func (t PageType) Valid() bool {
	_, ok := t.meta()
	return ok
}

// Key is the public page key ("imoveis").
func (t PageType) Key() string {
	m, _ := t.meta()
	return m.key
}

// DefaultSlug is the slug a freshly provisioned page of type t receives.
func (t PageType) DefaultSlug() string { return t.Key() }

// DefaultTitle is the title a freshly provisioned page of type t receives.
func (t PageType) DefaultTitle() string {
	m, _ := t.meta()
	return m.title
}

// ParsePageType accepts the canonical name ("LISTING") or the public key
// ("imoveis"), case-insensitively.
func ParsePageType(s string) (PageType, error) {
	s = strings.TrimSpace(s)
	for _, t := range PageTypes {
		if strings.EqualFold(s, string(t)) || strings.EqualFold(s, t.Key()) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown page type %q", s)
}

// ContentBlock is one (category, variant, data) entry of a page.
type ContentBlock struct {
	Category  variant.Category `json:"category"`
	VariantID string           `json:"variantId,omitempty"`
	Order     int              `json:"order"`
	Hidden    bool             `json:"hidden,omitempty"`
	Data      variant.Data     `json:"data"`
}

// Page is one page of a site.
type Page struct {
	ID          string         `json:"id"`
	SiteID      string         `json:"siteId"`
	Type        PageType       `json:"type"`
	Slug        string         `json:"slug"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Blocks      []ContentBlock `json:"blocks"`
	Active      bool           `json:"active"`
	Order       int            `json:"order"`
}

// Config is the site-level aggregate the renderer reads.
type Config struct {
	ID              string                      `json:"id"`
	TenantID        string                      `json:"tenantId"`
	Name            string                      `json:"name"`
	Subdomain       string                      `json:"subdomain"`
	CustomDomain    string                      `json:"customDomain,omitempty"`
	Status          Status                      `json:"status"`
	Theme           theme.Tokens                `json:"theme"`
	ChosenVariants  map[variant.Category]string `json:"chosenVariants"`
	Pages           []Page                      `json:"pages"`
	TemplateID      string                      `json:"templateId"`
	LogoURL         string                      `json:"logoUrl,omitempty"`
	MetaTitle       string                      `json:"metaTitle,omitempty"`
	MetaDescription string                      `json:"metaDescription,omitempty"`
	PublishedAt     *time.Time                  `json:"publishedAt,omitempty"`
	CreatedAt       time.Time                   `json:"createdAt"`
	UpdatedAt       time.Time                   `json:"updatedAt"`
}

// PageBySlug returns the page with the given slug.
func (c *Config) PageBySlug(slug string) (*Page, bool) {
	for i := range c.Pages {
		if c.Pages[i].Slug == slug {
			return &c.Pages[i], true
		}
	}
	return nil, false
}

// FirstOfType returns the lowest-ordered page of type t.
func (c *Config) FirstOfType(t PageType) (*Page, bool) {
	var best *Page
	for i := range c.Pages {
		p := &c.Pages[i]
		if p.Type == t && (best == nil || p.Order < best.Order) {
			best = p
		}
	}
	return best, best != nil
}

// Clone returns a deep copy; stores hand out clones so callers can never
// mutate cached state.
func (c *Config) Clone() *Config {
	out := *c
	if c.ChosenVariants != nil {
		out.ChosenVariants = make(map[variant.Category]string, len(c.ChosenVariants))
		for k, v := range c.ChosenVariants {
			out.ChosenVariants[k] = v
		}
	}
	if c.PublishedAt != nil {
		at := *c.PublishedAt
		out.PublishedAt = &at
	}
	out.Pages = make([]Page, len(c.Pages))
	for i, p := range c.Pages {
		out.Pages[i] = p.clone()
	}
	return &out
}

func (p Page) clone() Page {
	blocks := make([]ContentBlock, len(p.Blocks))
	for i, b := range p.Blocks {
		b.Data.Items = append([]variant.FAQItem(nil), b.Data.Items...)
		blocks[i] = b
	}
	p.Blocks = blocks
	return p
}
