// internal/variant/registry.go
//
// Variant registry and lookup.
//
// Context
// -------
// The registry maps (Category, variant id) to a Descriptor.  It is built once
// at process start from a static table (see builtin.go) and is read-only
// afterwards, so Get needs no locking.
//
// Lookup rules
// ------------
//   - Empty id            → category default.
//   - Unknown id          → category default, a warning, and a fallback metric.
//   - Unknown category    → ErrUnknownCategory.
//
// Unknown variant ids never abort rendering; tenants keep stale ids in their
// configuration when a variant is retired.
package variant

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"sort"

	"go.uber.org/zap"

	"github.com/yanizio/vitrine/internal/metrics"
	"github.com/yanizio/vitrine/internal/theme"
)

// ErrUnknownCategory is returned for a category outside the closed set.
var ErrUnknownCategory = errors.New("unknown variant category")

// RenderFunc is the pure rendering function of one variant.
type RenderFunc func(in Input, t theme.Tokens) (template.HTML, error)

// Descriptor identifies one variant and renders it.
type Descriptor struct {
	Category Category
	ID       string
	render   RenderFunc
}

// NewDescriptor builds a Descriptor around fn.
func NewDescriptor(c Category, id string, fn RenderFunc) Descriptor {
	return Descriptor{Category: c, ID: id, render: fn}
}

// Render executes the variant.
func (d Descriptor) Render(in Input, t theme.Tokens) (template.HTML, error) {
	if d.render == nil {
		return "", fmt.Errorf("variant %s/%s: no render func", d.Category, d.ID)
	}
	return d.render(in, t)
}

// Registry is the read-only variant table.
type Registry struct {
	byCat    map[Category]map[string]Descriptor
	defaults map[Category]string
	log      *zap.Logger
}

// NewRegistry validates the table: every category needs a default that is
// itself registered, and ids are unique within a category.
func NewRegistry(log *zap.Logger, defaults map[Category]string, ds ...Descriptor) (*Registry, error) {
	if log == nil {
		log = zap.L()
	}
	r := &Registry{
		byCat:    make(map[Category]map[string]Descriptor, len(Categories)),
		defaults: make(map[Category]string, len(defaults)),
		log:      log,
	}
	for _, d := range ds {
		if !d.Category.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, d.Category)
		}
		m := r.byCat[d.Category]
		if m == nil {
			m = make(map[string]Descriptor)
			r.byCat[d.Category] = m
		}
		if _, dup := m[d.ID]; dup {
			return nil, fmt.Errorf("variant %s/%s registered twice", d.Category, d.ID)
		}
		m[d.ID] = d
	}
	for _, c := range Categories {
		id, ok := defaults[c]
		if !ok {
			return nil, fmt.Errorf("category %s has no default variant", c)
		}
		if _, ok := r.byCat[c][id]; !ok {
			return nil, fmt.Errorf("default variant %s/%s is not registered", c, id)
		}
		r.defaults[c] = id
	}
	return r, nil
}

// Get returns the descriptor for (c, id) following the lookup rules above.
func (r *Registry) Get(c Category, id string) (Descriptor, error) {
	m, ok := r.byCat[c]
	if !ok || !c.Valid() {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	if id != "" {
		if d, ok := m[id]; ok {
			return d, nil
		}
		r.log.Warn("unknown variant, using default",
			zap.String("category", string(c)),
			zap.String("variant", id),
			zap.String("default", r.defaults[c]))
		metrics.VariantFallbackTotal.WithLabelValues(string(c)).Inc()
	}
	return m[r.defaults[c]], nil
}

// Default returns the default variant id of c.
func (r *Registry) Default(c Category) string { return r.defaults[c] }

// IDs lists the variant ids of c in lexical order.
func (r *Registry) IDs(c Category) []string {
	m := r.byCat[c]
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Has reports whether (c, id) is registered without falling back.
func (r *Registry) Has(c Category, id string) bool {
	_, ok := r.byCat[c][id]
	return ok
}

// templateFunc adapts a named template of set into a RenderFunc.
func templateFunc(set *template.Template, name string) RenderFunc {
	return func(in Input, t theme.Tokens) (template.HTML, error) {
		var buf bytes.Buffer
		if err := set.ExecuteTemplate(&buf, name, view{Input: in, Theme: t.Safe()}); err != nil {
			return "", fmt.Errorf("render %s: %w", name, err)
		}
		return template.HTML(buf.String()), nil
	}
}

// view is the dot of every variant template.
type view struct {
	Input
	Theme theme.Tokens
}
