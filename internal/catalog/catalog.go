// internal/catalog/catalog.go
//
// Site template catalog: YAML definition loader.
//
// Context
//   A provisioning request names a templateId.  The catalog gives that id
//   meaning: which variant each component category uses, and the default
//   block layout of every page type.  The built-in catalog is embedded
//   (templates.yaml); operators can load another file with Load.
//
// Workflow
//   •  Structs mirror the YAML schema: file → TemplateDef → BlockDef.
//   •  Parse decodes, then validates every category, page key, and block
//      payload so a broken catalog fails at start-up and never at render.
//   •  Lookup is exact; Resolve falls back to the default template and
//      reports that it did.
//
//------------------------------------------------------------------------------

package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/yanizio/vitrine/internal/site"
	"github.com/yanizio/vitrine/internal/variant"
)

//go:embed templates.yaml
var builtinYAML []byte

// -----------------------------------------------------------------------------
// YAML schema
// -----------------------------------------------------------------------------

type fileDef struct {
	Default   string                 `yaml:"default"`
	Templates map[string]TemplateDef `yaml:"templates"`
}

// TemplateDef is one template as written in YAML.
type TemplateDef struct {
	Name        string                `yaml:"name"`
	Description string                `yaml:"description"`
	Variants    map[string]string     `yaml:"variants"`
	Pages       map[string][]BlockDef `yaml:"pages"`
}

// BlockDef is one default block.  Only the text fields a template author
// sets are listed; the copy task replaces them with generated text.
type BlockDef struct {
	Category    string `yaml:"category"`
	Variant     string `yaml:"variant"`
	Heading     string `yaml:"heading"`
	Subheading  string `yaml:"subheading"`
	Body        string `yaml:"body"`
	ButtonLabel string `yaml:"button_label"`
	ButtonURL   string `yaml:"button_url"`
	Limit       int    `yaml:"limit"`
	Operation   string `yaml:"operation"`
}

// -----------------------------------------------------------------------------
// Parsed catalog
// -----------------------------------------------------------------------------

// Template is a validated catalog entry.
type Template struct {
	ID          string
	Name        string
	Description string
	Variants    map[variant.Category]string
	Layouts     map[site.PageType][]site.ContentBlock
}

// ChosenVariants returns a copy of t.Variants.
func (t *Template) ChosenVariants() map[variant.Category]string {
	out := make(map[variant.Category]string, len(t.Variants))
	for k, v := range t.Variants {
		out[k] = v
	}
	return out
}

// Layout returns a copy of the default blocks of page type pt.  Unknown or
// unlisted types return nil.
func (t *Template) Layout(pt site.PageType) []site.ContentBlock {
	src := t.Layouts[pt]
	if len(src) == 0 {
		return nil
	}
	return append([]site.ContentBlock(nil), src...)
}

// Catalog is immutable after Parse.
type Catalog struct {
	def  string
	byID map[string]*Template
}

// ErrEmpty is returned for a catalog without templates.
var ErrEmpty = errors.New("catalog has no templates")

// Builtin parses the embedded catalog.
func Builtin() (*Catalog, error) { return Parse(builtinYAML) }

// MustBuiltin panics when the embedded catalog is broken.
func MustBuiltin() *Catalog {
	c, err := Builtin()
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads and parses a catalog file.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(raw []byte) (*Catalog, error) {
	var f fileDef
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(f.Templates) == 0 {
		return nil, ErrEmpty
	}
	if _, ok := f.Templates[f.Default]; !ok {
		return nil, fmt.Errorf("default template %q not defined", f.Default)
	}

	c := &Catalog{def: f.Default, byID: make(map[string]*Template, len(f.Templates))}
	for id, td := range f.Templates {
		t, err := build(id, td)
		if err != nil {
			return nil, err
		}
		c.byID[id] = t
	}
	return c, nil
}

func build(id string, td TemplateDef) (*Template, error) {
	t := &Template{
		ID:          id,
		Name:        td.Name,
		Description: td.Description,
		Variants:    make(map[variant.Category]string, len(td.Variants)),
		Layouts:     make(map[site.PageType][]site.ContentBlock, len(td.Pages)),
	}
	for cat, vid := range td.Variants {
		c, err := variant.ParseCategory(cat)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", id, err)
		}
		t.Variants[c] = vid
	}
	for key, defs := range td.Pages {
		pt, err := site.ParsePageType(key)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", id, err)
		}
		blocks := make([]site.ContentBlock, 0, len(defs))
		for i, d := range defs {
			blocks = append(blocks, site.ContentBlock{
				Category:  variant.Category(d.Category),
				VariantID: d.Variant,
				Order:     i,
				Data: variant.Data{
					Heading:     d.Heading,
					Subheading:  d.Subheading,
					Body:        d.Body,
					ButtonLabel: d.ButtonLabel,
					ButtonURL:   d.ButtonURL,
					Limit:       d.Limit,
					Operation:   d.Operation,
				},
			})
		}
		if err := site.ValidateBlocks(blocks); err != nil {
			return nil, fmt.Errorf("template %s page %s: %w", id, key, err)
		}
		t.Layouts[pt] = blocks
	}
	return t, nil
}

// Lookup returns the template with the exact id.
func (c *Catalog) Lookup(id string) (*Template, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// Resolve returns the template for id, or the default template with
// fallback=true when id is unknown or blank.
func (c *Catalog) Resolve(id string) (t *Template, fallback bool) {
	if t, ok := c.byID[id]; ok {
		return t, false
	}
	return c.byID[c.def], true
}

// Default returns the default template.
func (c *Catalog) Default() *Template { return c.byID[c.def] }

// IDs returns every template id, sorted.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// VariantSet is the registry view CheckVariants needs.
type VariantSet interface {
	Has(c variant.Category, id string) bool
}

// CheckVariants reports every template variant id, chosen or per block, that
// reg does not register.  Unknown ids would otherwise fall back to category
// defaults silently at render time.
func (c *Catalog) CheckVariants(reg VariantSet) error {
	var errs []error
	for _, id := range c.IDs() {
		t := c.byID[id]
		for _, cat := range variant.Categories {
			if vid, ok := t.Variants[cat]; ok && !reg.Has(cat, vid) {
				errs = append(errs, fmt.Errorf("template %s: variant %s/%s not registered", id, cat, vid))
			}
		}
		for _, pt := range site.PageTypes {
			for _, b := range t.Layouts[pt] {
				if b.VariantID != "" && !reg.Has(b.Category, b.VariantID) {
					errs = append(errs, fmt.Errorf("template %s page %s: variant %s/%s not registered",
						id, pt.Key(), b.Category, b.VariantID))
				}
			}
		}
	}
	return errors.Join(errs...)
}
