// internal/property/model.go
//
// Raw property records and the canonical View consumed by templates.
//
// Context
// -------
// Property rows are owned by the CRM side of the product.  The site engine
// only reads them, through Lister, and turns every row into a View before
// any variant sees it.  Raw fields mirror the `property` table, so most of
// them are nullable.
//
// Schema reference (migrations/mysql/0002_property.sql)
//
//	property          (id, tenant_id, title, description, price_sale,
//	                   price_rent, kind, operation, street, number,
//	                   complement, neighborhood, city, state, zip_code,
//	                   area, bedrooms, bathrooms, parking_spaces, status,
//	                   created_at)
//	property_photo    (id, property_id, url, featured, position)
//	amenity           (id, name)
//	property_amenity  (property_id, amenity_id)
package property

import "context"

// PlaceholderImage is the featured image of a property without photos.
const PlaceholderImage = "/static/img/imovel-sem-foto.svg"

// StatusActive is the only `status` value the engine lists.
const StatusActive = "ACTIVE"

// Raw mirrors one `property` row plus its nested photo and amenity rows.
type Raw struct {
	ID            string   `db:"id"`
	TenantID      string   `db:"tenant_id"`
	Title         *string  `db:"title"`
	Description   *string  `db:"description"`
	PriceSale     *float64 `db:"price_sale"`
	PriceRent     *float64 `db:"price_rent"`
	Kind          *string  `db:"kind"`
	Operation     *string  `db:"operation"`
	Street        *string  `db:"street"`
	Number        *string  `db:"number"`
	Complement    *string  `db:"complement"`
	Neighborhood  *string  `db:"neighborhood"`
	City          *string  `db:"city"`
	State         *string  `db:"state"`
	ZipCode       *string  `db:"zip_code"`
	Area          *float64 `db:"area"`
	Bedrooms      *int     `db:"bedrooms"`
	Bathrooms     *int     `db:"bathrooms"`
	ParkingSpaces *int     `db:"parking_spaces"`
	Status        string   `db:"status"`

	Photos    []RawPhoto   `db:"-"`
	Amenities []RawAmenity `db:"-"`
}

// RawPhoto mirrors one `property_photo` row.
type RawPhoto struct {
	PropertyID string `db:"property_id"`
	URL        string `db:"url"`
	Featured   bool   `db:"featured"`
	Position   int    `db:"position"`
}

// RawAmenity mirrors one amenity bound to a property.
type RawAmenity struct {
	PropertyID string `db:"property_id"`
	Name       string `db:"name"`
}

// Operation values of a View.
const (
	OperationSale = "sale"
	OperationRent = "rent"
	OperationBoth = "sale_rent"
)

// Image is one ordered photo of a View.
type Image struct {
	URL        string `json:"url"`
	IsFeatured bool   `json:"isFeatured"`
}

// View is the template-ready projection of a property.  Optional numbers are
// nil when unknown; they are never NaN.
type View struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	PriceSale        *float64 `json:"priceSale,omitempty"`
	PriceRent        *float64 `json:"priceRent,omitempty"`
	Kind             string   `json:"kind"`
	Operation        string   `json:"operation"`
	FormattedAddress string   `json:"formattedAddress"`
	Area             *float64 `json:"area,omitempty"`
	Bedrooms         *int     `json:"bedrooms,omitempty"`
	Bathrooms        *int     `json:"bathrooms,omitempty"`
	ParkingSpaces    *int     `json:"parkingSpaces,omitempty"`
	Images           []Image  `json:"images"`
	FeaturedImage    string   `json:"featuredImage"`
	Amenities        []string `json:"amenities"`
}

// Lister is the read-only property collaborator used by the renderer.
type Lister interface {
	ListActive(ctx context.Context, tenantID string, limit int) ([]Raw, error)
}

// Finder is implemented by listers that can fetch one active property
// outside the bounded listing.  The renderer uses it for detail pages.
type Finder interface {
	FindActive(ctx context.Context, tenantID, id string) (*Raw, error)
}
