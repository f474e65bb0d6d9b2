// Package variant holds the presentational building blocks of a tenant site.
//
// A Variant is one concrete rendering of a component Category (a "classic"
// header, a "horizontal" property card, …).  Variants are html/template
// executions over an Input and the tenant theme.Tokens.  They never perform
// I/O, so a page can be composed deterministically and tested in isolation.
package variant

import "fmt"

// Category is the closed set of component kinds.  Adding a category is a code
// change: extend the constants, Categories, and the switch in Valid.
type Category string

const (
	Header       Category = "header"
	Footer       Category = "footer"
	Card         Category = "card"
	CTA          Category = "cta"
	Grid         Category = "grid"
	PageTemplate Category = "page-template"
	Hero         Category = "hero"
	Text         Category = "text"
	FAQ          Category = "faq"
	Contact      Category = "contact"
	Detail       Category = "detail"
)

// Categories lists every category in declaration order.
var Categories = []Category{
	Header, Footer, Card, CTA, Grid, PageTemplate, Hero, Text, FAQ, Contact, Detail,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case Header, Footer, Card, CTA, Grid, PageTemplate, Hero, Text, FAQ, Contact, Detail:
		return true
	}
	return false
}

// Placeable reports whether c may appear as a page content block.  Header,
// footer, and the page template are page chrome picked from the site's
// chosen variants; cards are rendered by grids.
func (c Category) Placeable() bool {
	switch c {
	case CTA, Grid, Hero, Text, FAQ, Contact, Detail:
		return true
	case Header, Footer, Card, PageTemplate:
		return false
	}
	return false
}

// ParseCategory returns the Category named s.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}
