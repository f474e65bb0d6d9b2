// internal/property/project.go
//
// Raw → View projection.
//
// Rules
// -----
//  1. Every View field gets a deterministic value.  Missing or malformed
//     numbers become nil (never NaN), missing text gets a fixed default.
//  2. Prices pass through unformatted; variants format them.
//  3. Address parts are trimmed, blanks dropped, and the rest joined, so
//     the result never carries ", ," or dangling separators.
//  4. Images keep position order (stable on ties) and drop blank URLs.
//     FeaturedImage is the first featured image, else the first image,
//     else PlaceholderImage.
//  5. Amenity names are trimmed; blanks and case-insensitive duplicates
//     are dropped, first occurrence wins.
//
// Project never logs.  ProjectAll reports defaulted fields as DefaultError
// values so the caller decides what to log.
package property

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Defaults applied to blank text fields.
const (
	DefaultTitle = "Imóvel sem título"
	DefaultKind  = "outro"
)

// DefaultError reports that a property was projected with field defaults.
// It is informational; projection itself always succeeds.
type DefaultError struct {
	PropertyID string
	Fields     []string
}

func (e *DefaultError) Error() string {
	return fmt.Sprintf("property %s: defaults applied to %s", e.PropertyID, strings.Join(e.Fields, ", "))
}

// Project maps a raw record to its View.
func Project(raw Raw) View {
	v, _ := project(raw)
	return v
}

// ProjectAll projects every record.  The second result lists one
// DefaultError per record that needed field defaults.
func ProjectAll(raws []Raw) ([]View, []*DefaultError) {
	views := make([]View, 0, len(raws))
	var defs []*DefaultError
	for _, r := range raws {
		v, d := project(r)
		views = append(views, v)
		if d != nil {
			defs = append(defs, d)
		}
	}
	return views, defs
}

func project(raw Raw) (View, *DefaultError) {
	var defaulted []string
	mark := func(field string) { defaulted = append(defaulted, field) }

	v := View{
		ID:          raw.ID,
		Title:       text(raw.Title),
		Description: text(raw.Description),
		Kind:        strings.ToLower(text(raw.Kind)),
	}
	if v.Title == "" {
		v.Title = DefaultTitle
		mark("title")
	}
	if v.Kind == "" {
		v.Kind = DefaultKind
		mark("kind")
	}

	v.PriceSale = price(raw.PriceSale, "priceSale", mark)
	v.PriceRent = price(raw.PriceRent, "priceRent", mark)
	v.Area = positive(raw.Area, "area", mark)
	v.Bedrooms = count(raw.Bedrooms, "bedrooms", mark)
	v.Bathrooms = count(raw.Bathrooms, "bathrooms", mark)
	v.ParkingSpaces = count(raw.ParkingSpaces, "parkingSpaces", mark)

	v.Operation = operation(text(raw.Operation), v.PriceSale != nil, v.PriceRent != nil)
	if v.Operation == "" {
		v.Operation = OperationSale
		mark("operation")
	}

	v.FormattedAddress = formatAddress(raw)
	v.Images = images(raw.Photos)
	v.FeaturedImage = featured(v.Images)
	v.Amenities = amenities(raw.Amenities)

	if len(defaulted) == 0 {
		return v, nil
	}
	return v, &DefaultError{PropertyID: raw.ID, Fields: defaulted}
}

// text trims and collapses inner whitespace.
func text(p *string) string {
	if p == nil {
		return ""
	}
	return strings.Join(strings.Fields(*p), " ")
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// price passes finite values through unchanged.
func price(p *float64, field string, mark func(string)) *float64 {
	if p == nil {
		return nil
	}
	if !finite(*p) {
		mark(field)
		return nil
	}
	out := *p
	return &out
}

func positive(p *float64, field string, mark func(string)) *float64 {
	if p == nil {
		return nil
	}
	if !finite(*p) || *p <= 0 {
		mark(field)
		return nil
	}
	out := *p
	return &out
}

func count(p *int, field string, mark func(string)) *int {
	if p == nil {
		return nil
	}
	if *p < 0 {
		mark(field)
		return nil
	}
	out := *p
	return &out
}

// operation maps the free-form column to a View operation, falling back to
// the prices that are present.
func operation(raw string, hasSale, hasRent bool) string {
	switch strings.ToLower(raw) {
	case "sale", "venda":
		return OperationSale
	case "rent", "aluguel", "locacao", "locação":
		return OperationRent
	case "sale_rent", "both", "venda_aluguel", "venda e aluguel":
		return OperationBoth
	}
	switch {
	case hasSale && hasRent:
		return OperationBoth
	case hasSale:
		return OperationSale
	case hasRent:
		return OperationRent
	}
	return ""
}

// formatAddress builds "Street, Number, Complement, Neighborhood, City - State, ZIP".
func formatAddress(raw Raw) string {
	cityState := join(" - ", text(raw.City), strings.ToUpper(text(raw.State)))
	return join(", ",
		text(raw.Street),
		text(raw.Number),
		text(raw.Complement),
		text(raw.Neighborhood),
		cityState,
		text(raw.ZipCode),
	)
}

func join(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.Trim(p, " ,-"); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func images(photos []RawPhoto) []Image {
	sorted := make([]RawPhoto, 0, len(photos))
	for _, p := range photos {
		if strings.TrimSpace(p.URL) != "" {
			sorted = append(sorted, p)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	out := make([]Image, 0, len(sorted))
	for _, p := range sorted {
		out = append(out, Image{URL: strings.TrimSpace(p.URL), IsFeatured: p.Featured})
	}
	return out
}

func featured(imgs []Image) string {
	for _, img := range imgs {
		if img.IsFeatured {
			return img.URL
		}
	}
	if len(imgs) > 0 {
		return imgs[0].URL
	}
	return PlaceholderImage
}

func amenities(in []RawAmenity) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, a := range in {
		name := strings.Join(strings.Fields(a.Name), " ")
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}
