// internal/head/builder.go
//
// The Builder collects everything that should appear inside a page’s
// <head> element.  It is scoped to a single render call.  The renderer pushes
// title, description, canonical, and Open Graph tags, then hands HTML() to
// the page-template variant.
//
// Features
// --------
//   - SetTitle / SetDescription – single-value tags (last call wins).
//   - Meta, Property, Link      – arbitrary tags with deduplication.
//   - JSONLD                    – structured data wrapped in
//     <script type="application/ld+json">…</script>.
//   - HTML                      – everything, in a fixed order.
package head

import (
	"encoding/json"
	"html/template"
	"strings"
)

// Builder is not safe for concurrent use; one builder per render.
type Builder struct {
	title       string
	description string

	metas  []string
	links  []string
	jsonLD []string

	seen map[string]struct{}
}

func New() *Builder {
	return &Builder{seen: make(map[string]struct{})}
}

// ------------------------------------------------------------------
// Single-value helpers
// ------------------------------------------------------------------

// SetTitle overrides the page <title>.  The last caller wins.
func (b *Builder) SetTitle(t string) { b.title = strings.TrimSpace(t) }

// SetDescription overrides the description meta tag.
func (b *Builder) SetDescription(d string) { b.description = strings.TrimSpace(d) }

// TitleText returns the plain title.
func (b *Builder) TitleText() string { return b.title }

// DescriptionText returns the plain description.
func (b *Builder) DescriptionText() string { return b.description }

// ------------------------------------------------------------------
// Multi-value helpers with deduplication
// ------------------------------------------------------------------

// Meta adds <meta name=… content=…>.
func (b *Builder) Meta(name, content string) {
	b.add("meta:"+name, &b.metas, `<meta name="`+esc(name)+`" content="`+esc(content)+`">`)
}

// Property adds an Open Graph style <meta property=… content=…>.
func (b *Builder) Property(prop, content string) {
	b.add("prop:"+prop, &b.metas, `<meta property="`+esc(prop)+`" content="`+esc(content)+`">`)
}

// Link adds <link rel=… href=…>.
func (b *Builder) Link(rel, href string) {
	b.add("link:"+rel+":"+href, &b.links, `<link rel="`+esc(rel)+`" href="`+esc(href)+`">`)
}

// JSONLD marshals v as one structured-data block.
func (b *Builder) JSONLD(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	// json.Marshal escapes <, >, & so the payload cannot close the script.
	js := string(raw)
	b.add("jsonld:"+hash(js), &b.jsonLD, js)
	return nil
}

func (b *Builder) add(key string, tgt *[]string, tag string) {
	if _, dup := b.seen[key]; dup {
		return
	}
	b.seen[key] = struct{}{}
	*tgt = append(*tgt, tag)
}

// hash creates a short, stable key for JSON-LD strings.
func hash(s string) string {
	if len(s) > 32 {
		return s[:32]
	}
	return s
}

func esc(s string) string { return template.HTMLEscapeString(s) }

// ------------------------------------------------------------------
// Rendering helpers
// ------------------------------------------------------------------

// Title returns a fully formed <title> tag or an empty string.
func (b *Builder) Title() template.HTML {
	if b.title == "" {
		return ""
	}
	return template.HTML("<title>" + esc(b.title) + "</title>")
}

// Description returns the description meta tag or an empty string.
func (b *Builder) Description() template.HTML {
	if b.description == "" {
		return ""
	}
	return template.HTML(`<meta name="description" content="` + esc(b.description) + `">`)
}

func (b *Builder) Metas() template.HTML { return concat(b.metas) }
func (b *Builder) Links() template.HTML { return concat(b.links) }

// JSON returns all JSON-LD blocks wrapped in <script> tags.
func (b *Builder) JSON() template.HTML {
	if len(b.jsonLD) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, js := range b.jsonLD {
		sb.WriteString(`<script type="application/ld+json">`)
		sb.WriteString(js)
		sb.WriteString(`</script>`)
	}
	return template.HTML(sb.String())
}

// HTML returns title, description, metas, links, and JSON-LD, newline
// separated.
func (b *Builder) HTML() template.HTML {
	parts := []template.HTML{b.Title(), b.Description(), b.Metas(), b.Links(), b.JSON()}
	var sb strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		sb.WriteString(string(p))
		sb.WriteByte('\n')
	}
	return template.HTML(sb.String())
}

// concat joins pre-escaped tags with newlines.
func concat(sl []string) template.HTML {
	return template.HTML(strings.Join(sl, "\n"))
}
