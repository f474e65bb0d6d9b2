// internal/property/repository.go
//
// Read-only property queries.
//
// Workflow
// --------
//  1. One SELECT fetches at most `limit` active rows for the tenant.
//  2. One IN (...) query fetches every photo of those rows.
//  3. One IN (...) query resolves amenity names.  The id → rows lookup is
//     built per call and dropped when the call returns.
//
// The engine never writes to these tables.
package property

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned by FindActive when no active row matches.
var ErrNotFound = errors.New("property not found")

// Repository implements Lister and Finder over the tenant property tables.
type Repository struct {
	db *sqlx.DB
}

var (
	_ Lister = (*Repository)(nil)
	_ Finder = (*Repository)(nil)
)

// NewRepository wraps a connected pool.
func NewRepository(db *sqlx.DB) *Repository { return &Repository{db: db} }

const selectProperty = `
        SELECT id, tenant_id, title, description, price_sale, price_rent,
               kind, operation, street, number, complement, neighborhood,
               city, state, zip_code, area, bedrooms, bathrooms,
               parking_spaces, status
        FROM   property`

// ListActive returns up to limit active properties of a tenant, newest
// first, with photos and amenities attached.
func (r *Repository) ListActive(ctx context.Context, tenantID string, limit int) ([]Raw, error) {
	if limit <= 0 {
		return []Raw{}, nil
	}
	const q = selectProperty + `
        WHERE  tenant_id = ?
          AND  status    = ?
        ORDER  BY created_at DESC, id
        LIMIT  ?`

	rows := make([]Raw, 0, limit)
	if err := r.db.SelectContext(ctx, &rows, q, tenantID, StatusActive, limit); err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	if err := r.attach(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// FindActive returns one active property of the tenant.
func (r *Repository) FindActive(ctx context.Context, tenantID, id string) (*Raw, error) {
	const q = selectProperty + `
        WHERE  tenant_id = ?
          AND  id        = ?
          AND  status    = ?
        LIMIT  1`

	var raw Raw
	if err := r.db.GetContext(ctx, &raw, q, tenantID, id, StatusActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find property: %w", err)
	}
	rows := []Raw{raw}
	if err := r.attach(ctx, rows); err != nil {
		return nil, err
	}
	return &rows[0], nil
}

// attach loads photos and amenities for rows in two queries.
func (r *Repository) attach(ctx context.Context, rows []Raw) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]string, 0, len(rows))
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		ids = append(ids, row.ID)
		index[row.ID] = i
		rows[i].Photos = []RawPhoto{}
		rows[i].Amenities = []RawAmenity{}
	}

	q, args, err := sqlx.In(`
        SELECT property_id, url, featured, position
        FROM   property_photo
        WHERE  property_id IN (?)
        ORDER  BY property_id, position, id`, ids)
	if err != nil {
		return fmt.Errorf("photo query: %w", err)
	}
	var photos []RawPhoto
	if err := r.db.SelectContext(ctx, &photos, r.db.Rebind(q), args...); err != nil {
		return fmt.Errorf("list photos: %w", err)
	}
	for _, p := range photos {
		if i, ok := index[p.PropertyID]; ok {
			rows[i].Photos = append(rows[i].Photos, p)
		}
	}

	q, args, err = sqlx.In(`
        SELECT pa.property_id, a.name
        FROM   property_amenity pa
        JOIN   amenity a ON a.id = pa.amenity_id
        WHERE  pa.property_id IN (?)
        ORDER  BY pa.property_id, a.name`, ids)
	if err != nil {
		return fmt.Errorf("amenity query: %w", err)
	}
	var ams []RawAmenity
	if err := r.db.SelectContext(ctx, &ams, r.db.Rebind(q), args...); err != nil {
		return fmt.Errorf("list amenities: %w", err)
	}
	for _, a := range ams {
		if i, ok := index[a.PropertyID]; ok {
			rows[i].Amenities = append(rows[i].Amenities, a)
		}
	}
	return nil
}
