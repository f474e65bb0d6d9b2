// Package theme holds the token set that describes one tenant's visual
// identity.  A Tokens value combines:
//
//   - Primary, Secondary, Accent, Text – hex colors (#RGB, #RGBA, #RRGGBB or
//     #RRGGBBAA, the forms the hexcolor validator accepts).
//   - HeadingFont, BodyFont            – font family names.
//
// Tokens is a plain value.  Replacing a theme means storing a new value; the
// renderer never sees a half-updated set.  Variants read tokens directly or
// through the CSS custom properties emitted by CSSVars.
package theme

import (
	"html/template"
	"net/url"
	"regexp"
	"strings"
)

// Tokens is the immutable color and font set of one site.
type Tokens struct {
	Primary     string `json:"primary"     validate:"required,hexcolor"`
	Secondary   string `json:"secondary"   validate:"required,hexcolor"`
	Accent      string `json:"accent"      validate:"required,hexcolor"`
	Text        string `json:"text"        validate:"required,hexcolor"`
	HeadingFont string `json:"headingFont" validate:"required,max=64"`
	BodyFont    string `json:"bodyFont"    validate:"required,max=64"`
}

// Default is the palette every new site starts with unless the provisioning
// request carries overrides.
var Default = Tokens{
	Primary:     "#1E3A8A",
	Secondary:   "#F59E0B",
	Accent:      "#10B981",
	Text:        "#111827",
	HeadingFont: "Montserrat",
	BodyFont:    "Open Sans",
}

// Overrides carries optional replacements for individual tokens.  Empty
// fields keep the base value.
type Overrides struct {
	Primary     string `json:"primary,omitempty"     validate:"omitempty,hexcolor"`
	Secondary   string `json:"secondary,omitempty"   validate:"omitempty,hexcolor"`
	Accent      string `json:"accent,omitempty"      validate:"omitempty,hexcolor"`
	Text        string `json:"text,omitempty"        validate:"omitempty,hexcolor"`
	HeadingFont string `json:"headingFont,omitempty" validate:"omitempty,max=64"`
	BodyFont    string `json:"bodyFont,omitempty"    validate:"omitempty,max=64"`
}

// With returns a new Tokens built from t with every non-empty override
// applied.  t itself is left untouched.
func (t Tokens) With(o Overrides) Tokens {
	pick := func(base, over string) string {
		if over = strings.TrimSpace(over); over != "" {
			return over
		}
		return base
	}
	return Tokens{
		Primary:     pick(t.Primary, o.Primary),
		Secondary:   pick(t.Secondary, o.Secondary),
		Accent:      pick(t.Accent, o.Accent),
		Text:        pick(t.Text, o.Text),
		HeadingFont: pick(t.HeadingFont, o.HeadingFont),
		BodyFont:    pick(t.BodyFont, o.BodyFont),
	}
}

// OrDefault fills blank tokens from Default.  Stores call it when a row
// predates a token column.
func (t Tokens) OrDefault() Tokens {
	return Default.With(Overrides(t))
}

var (
	hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	fontName = regexp.MustCompile(`^[A-Za-z0-9 \-]+$`)
)

// color returns c when it is a hex color, otherwise fallback.
func color(c, fallback string) string {
	if hexColor.MatchString(c) {
		return c
	}
	return fallback
}

// font returns f when it is a plain family name, otherwise fallback.
func font(f, fallback string) string {
	if fontName.MatchString(f) {
		return f
	}
	return fallback
}

// Safe returns a copy where every token that would not survive CSS
// contexts is replaced by its Default counterpart.
func (t Tokens) Safe() Tokens {
	return Tokens{
		Primary:     color(t.Primary, Default.Primary),
		Secondary:   color(t.Secondary, Default.Secondary),
		Accent:      color(t.Accent, Default.Accent),
		Text:        color(t.Text, Default.Text),
		HeadingFont: font(t.HeadingFont, Default.HeadingFont),
		BodyFont:    font(t.BodyFont, Default.BodyFont),
	}
}

// CSSVars renders the tokens as a :root rule of custom properties.
func (t Tokens) CSSVars() template.CSS {
	s := t.Safe()
	var b strings.Builder
	b.WriteString(":root{")
	b.WriteString("--color-primary:" + s.Primary + ";")
	b.WriteString("--color-secondary:" + s.Secondary + ";")
	b.WriteString("--color-accent:" + s.Accent + ";")
	b.WriteString("--color-text:" + s.Text + ";")
	b.WriteString("--font-heading:'" + s.HeadingFont + "',sans-serif;")
	b.WriteString("--font-body:'" + s.BodyFont + "',sans-serif;")
	b.WriteString("}")
	return template.CSS(b.String())
}

// FontsURL returns a Google Fonts stylesheet URL loading both families.
func (t Tokens) FontsURL() string {
	s := t.Safe()
	families := []string{s.HeadingFont}
	if s.BodyFont != s.HeadingFont {
		families = append(families, s.BodyFont)
	}
	q := make([]string, 0, len(families))
	for _, f := range families {
		q = append(q, "family="+url.QueryEscape(f)+":wght@400;700")
	}
	return "https://fonts.googleapis.com/css2?" + strings.Join(q, "&") + "&display=swap"
}
