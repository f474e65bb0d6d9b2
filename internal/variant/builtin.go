// internal/variant/builtin.go
//
// Built-in variant table.
//
// Every variant is a `{{ define "<category>/<id>" }}` block in
// templates/<category>.html.  All files are parsed as one set so shared
// sub-templates ("brand", "price", "specs") work across categories.
package variant

import (
	"embed"
	"fmt"
	"html/template"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// builtinDefaults names the default variant of each category.
var builtinDefaults = map[Category]string{
	Header:       "classic",
	Footer:       "simple",
	Card:         "vertical",
	CTA:          "banner",
	Grid:         "three-columns",
	PageTemplate: "standard",
	Hero:         "image",
	Text:         "prose",
	FAQ:          "accordion",
	Contact:      "card",
	Detail:       "gallery",
}

// builtinIDs lists every shipped variant per category.
var builtinIDs = map[Category][]string{
	Header:       {"classic", "centered", "solid"},
	Footer:       {"simple", "columns"},
	Card:         {"vertical", "horizontal", "minimal"},
	CTA:          {"banner", "split"},
	Grid:         {"three-columns", "two-columns", "list"},
	PageTemplate: {"standard", "wide"},
	Hero:         {"image", "centered"},
	Text:         {"prose", "with-image"},
	FAQ:          {"accordion", "list"},
	Contact:      {"card", "inline"},
	Detail:       {"gallery"},
}

// Builtin returns the registry of shipped variants.
func Builtin(log *zap.Logger) (*Registry, error) {
	set, err := template.New("variants").Funcs(funcMap()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse variant templates: %w", err)
	}
	var ds []Descriptor
	for _, c := range Categories {
		for _, id := range builtinIDs[c] {
			name := string(c) + "/" + id
			if set.Lookup(name) == nil {
				return nil, fmt.Errorf("variant template %q not defined", name)
			}
			ds = append(ds, NewDescriptor(c, id, templateFunc(set, name)))
		}
	}
	return NewRegistry(log, builtinDefaults, ds...)
}

// MustBuiltin is Builtin for process start-up; it panics on a broken table.
func MustBuiltin(log *zap.Logger) *Registry {
	r, err := Builtin(log)
	if err != nil {
		panic(err)
	}
	return r
}
