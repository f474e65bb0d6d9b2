// Package compose turns a page definition into a render tree.
//
// Workflow
// --------
//  1. Inactive page → ErrNotFound.
//  2. Drop hidden blocks; sort the rest by Order (stable, so list position
//     breaks ties).
//  3. For each block pick the variant id (block → site choice → category
//     default), render it, and isolate failures: an error or panic becomes a
//     placeholder plus a BlockRenderError.  The tree always holds one entry
//     per visible block.
//  4. Render page chrome (header and footer) the same way, then wrap
//     everything in the page-template variant.  A failing page template
//     falls back to a bare document.
package compose

import (
	"errors"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/vitrine/internal/metrics"
	"github.com/yanizio/vitrine/internal/property"
	"github.com/yanizio/vitrine/internal/site"
	"github.com/yanizio/vitrine/internal/theme"
	"github.com/yanizio/vitrine/internal/variant"
)

// ErrNotFound is returned for inactive pages.
var ErrNotFound = errors.New("page not found")

// ChromeIndex is the BlockRenderError index used for header, footer, card,
// and page-template failures.
const ChromeIndex = -1

// BlockRenderError records one block replaced by a placeholder.
type BlockRenderError struct {
	PageID   string
	Index    int
	Category variant.Category
	Err      error
}

func (e *BlockRenderError) Error() string {
	return fmt.Sprintf("page %s block %d (%s): %v", e.PageID, e.Index, e.Category, e.Err)
}

func (e *BlockRenderError) Unwrap() error { return e.Err }

// Block is one rendered entry of the tree.
type Block struct {
	Category    variant.Category
	VariantID   string
	HTML        template.HTML
	Placeholder bool
}

// RenderTree is the composed page.
type RenderTree struct {
	PageID   string
	Blocks   []Block
	Header   template.HTML
	Footer   template.HTML
	Document template.HTML
	Errors   []*BlockRenderError
}

// Context carries request-level data the page definition does not hold.
type Context struct {
	Nav         []variant.NavLink
	Property    *property.View
	DetailPath  string
	Title       string
	Description string
	Head        template.HTML
	Maintenance bool
}

// Composer renders pages with one variant registry.
type Composer struct {
	reg *variant.Registry
	log *zap.Logger
}

// New returns a Composer.  log may be nil.
func New(reg *variant.Registry, log *zap.Logger) *Composer {
	if log == nil {
		log = zap.L()
	}
	return &Composer{reg: reg, log: log}
}

// Compose renders page for cfg with the given projected properties.
func (c *Composer) Compose(page *site.Page, cfg *site.Config, views []property.View, pc Context) (*RenderTree, error) {
	if page == nil || !page.Active {
		return nil, ErrNotFound
	}
	tokens := cfg.Theme.OrDefault()
	tree := &RenderTree{PageID: page.ID}

	base := variant.Input{
		Site: variant.SiteInfo{
			Name:      cfg.Name,
			Subdomain: cfg.Subdomain,
			LogoURL:   cfg.LogoURL,
		},
		Nav:        pc.Nav,
		Properties: views,
		Property:   pc.Property,
		DetailPath: pc.DetailPath,
	}
	base.Card = c.cardFunc(tree, cfg, base, tokens)

	blocks := visible(page.Blocks)
	tree.Blocks = make([]Block, 0, len(blocks))
	for i, b := range blocks {
		id := pick(b.VariantID, cfg.ChosenVariants[b.Category])
		in := base
		in.Data = b.Data
		html, used, err := c.render(b.Category, id, in, tokens)
		if err != nil {
			tree.fail(c.log, i, b.Category, err)
			tree.Blocks = append(tree.Blocks, Block{Category: b.Category, VariantID: id, HTML: placeholder(b.Category), Placeholder: true})
			continue
		}
		tree.Blocks = append(tree.Blocks, Block{Category: b.Category, VariantID: used, HTML: html})
	}

	tree.Header = c.chrome(tree, variant.Header, cfg, base, tokens)
	tree.Footer = c.chrome(tree, variant.Footer, cfg, base, tokens)

	var body strings.Builder
	for _, b := range tree.Blocks {
		body.WriteString(string(b.HTML))
	}

	doc := base
	doc.Title = pc.Title
	doc.Description = pc.Description
	doc.Head = pc.Head
	doc.Header = tree.Header
	doc.Footer = tree.Footer
	doc.Body = template.HTML(body.String())
	doc.Maintenance = pc.Maintenance
	html, _, err := c.render(variant.PageTemplate, cfg.ChosenVariants[variant.PageTemplate], doc, tokens)
	if err != nil {
		tree.fail(c.log, ChromeIndex, variant.PageTemplate, err)
		html = bare(doc)
	}
	tree.Document = html
	return tree, nil
}

// render resolves and runs one variant, turning panics into errors.
func (c *Composer) render(cat variant.Category, id string, in variant.Input, t theme.Tokens) (html template.HTML, used string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("variant panic: %v", r)
		}
	}()
	d, err := c.reg.Get(cat, id)
	if err != nil {
		return "", id, err
	}
	html, err = d.Render(in, t)
	return html, d.ID, err
}

func (c *Composer) chrome(tree *RenderTree, cat variant.Category, cfg *site.Config, in variant.Input, t theme.Tokens) template.HTML {
	html, _, err := c.render(cat, cfg.ChosenVariants[cat], in, t)
	if err != nil {
		tree.fail(c.log, ChromeIndex, cat, err)
		return ""
	}
	return html
}

// cardFunc renders grid cards with the site's card variant.  A failing card
// is dropped and recorded once per page.
func (c *Composer) cardFunc(tree *RenderTree, cfg *site.Config, base variant.Input, t theme.Tokens) func(property.View) template.HTML {
	failed := false
	return func(v property.View) template.HTML {
		in := base
		in.Card = nil
		in.Property = &v
		html, _, err := c.render(variant.Card, cfg.ChosenVariants[variant.Card], in, t)
		if err != nil {
			if !failed {
				failed = true
				tree.fail(c.log, ChromeIndex, variant.Card, err)
			}
			return ""
		}
		return html
	}
}

func (tree *RenderTree) fail(log *zap.Logger, idx int, cat variant.Category, err error) {
	e := &BlockRenderError{PageID: tree.PageID, Index: idx, Category: cat, Err: err}
	tree.Errors = append(tree.Errors, e)
	metrics.BlockErrorsTotal.WithLabelValues(string(cat)).Inc()
	log.Warn("block render failed",
		zap.String("page_id", tree.PageID),
		zap.Int("index", idx),
		zap.String("category", string(cat)),
		zap.Error(err))
}

// visible drops hidden blocks and sorts by Order, keeping list order on ties.
func visible(in []site.ContentBlock) []site.ContentBlock {
	out := make([]site.ContentBlock, 0, len(in))
	for _, b := range in {
		if !b.Hidden {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func pick(ids ...string) string {
	for _, id := range ids {
		if id != "" {
			return id
		}
	}
	return ""
}

func placeholder(cat variant.Category) template.HTML {
	return template.HTML(`<div class="block block--placeholder" data-category="` +
		template.HTMLEscapeString(string(cat)) + `"></div>`)
}

// bare is the document used when the page template itself fails.
func bare(in variant.Input) template.HTML {
	return template.HTML("<!DOCTYPE html>\n<html lang=\"pt-BR\"><head><meta charset=\"utf-8\">" +
		string(in.Head) + "</head><body>" +
		string(in.Header) + "<main>" + string(in.Body) + "</main>" + string(in.Footer) +
		"</body></html>")
}
