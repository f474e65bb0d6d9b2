package variant

import (
	"html/template"

	"github.com/yanizio/vitrine/internal/property"
)

// Data is the typed payload of a content block.  Each category reads the
// fields it needs and ignores the rest; validation tags are enforced when a
// block is written (see site.ValidateBlocks).
type Data struct {
	Heading     string    `json:"heading,omitempty"     validate:"max=200"`
	Subheading  string    `json:"subheading,omitempty"  validate:"max=400"`
	Body        string    `json:"body,omitempty"        validate:"max=20000"`
	ImageURL    string    `json:"imageUrl,omitempty"    validate:"omitempty,uri"`
	ButtonLabel string    `json:"buttonLabel,omitempty" validate:"max=80"`
	ButtonURL   string    `json:"buttonUrl,omitempty"   validate:"omitempty,uri"`
	Limit       int       `json:"limit,omitempty"       validate:"gte=0,lte=48"`
	Operation   string    `json:"operation,omitempty"   validate:"omitempty,oneof=sale rent sale_rent"`
	Items       []FAQItem `json:"items,omitempty"       validate:"omitempty,max=50,dive"`
	Phone       string    `json:"phone,omitempty"       validate:"max=40"`
	Email       string    `json:"email,omitempty"       validate:"omitempty,email"`
	Address     string    `json:"address,omitempty"     validate:"max=300"`
}

// FAQItem is one question of a faq block.
type FAQItem struct {
	Question string `json:"question" validate:"required,max=300"`
	Answer   string `json:"answer"   validate:"required,max=4000"`
}

// SiteInfo is the slice of the site configuration variants may print.
type SiteInfo struct {
	Name      string
	Subdomain string
	LogoURL   string
}

// NavLink is one entry of the site navigation.
type NavLink struct {
	Title  string
	URL    string
	Active bool
}

// Input is everything a variant can see.  The composer fills it per block.
type Input struct {
	Site SiteInfo
	Nav  []NavLink
	Data Data

	// Properties is the projected listing of the tenant; Property is set on
	// detail pages.
	Properties []property.View
	Property   *property.View

	// DetailPath prefixes property links ("/imovel" → "/imovel/<id>").
	DetailPath string

	// Card renders one property with the site's card variant.  Grids call
	// it through the "card" template func.
	Card func(property.View) template.HTML

	// Page-template only.
	Title       string
	Description string
	Head        template.HTML
	Header      template.HTML
	Body        template.HTML
	Footer      template.HTML
	Maintenance bool
}
