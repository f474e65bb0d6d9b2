// internal/site/repository.go
//
// MySQL-backed Store.
//
// Schema reference (migrations/mysql/0001_site.sql)
//
//	site       (id, tenant_id, name, subdomain UNIQUE, custom_domain UNIQUE,
//	            status, theme JSON, chosen_variants JSON, template_id,
//	            logo_url, meta_title, meta_description, published_at,
//	            created_at, updated_at)
//	site_page  (id, site_id → site.id ON DELETE CASCADE, type, slug,
//	            title, description, blocks JSON, active, position,
//	            UNIQUE (site_id, slug))
//
// Notes
// -----
//   - The UNIQUE key on site.subdomain is the uniqueness guarantee; a
//     duplicate-key error (1062) on insert surfaces as ErrSubdomainTaken.
//   - Loads return the site and its pages in two queries.
package site

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/vitrine/internal/theme"
	"github.com/yanizio/vitrine/internal/variant"
)

// mysqlDuplicateKey is ER_DUP_ENTRY.
const mysqlDuplicateKey = 1062

// Repository implements Store on MySQL.
type Repository struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ Store = (*Repository)(nil)

// NewRepository wraps a connected pool.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

type siteRow struct {
	ID              string         `db:"id"`
	TenantID        string         `db:"tenant_id"`
	Name            string         `db:"name"`
	Subdomain       string         `db:"subdomain"`
	CustomDomain    sql.NullString `db:"custom_domain"`
	Status          string         `db:"status"`
	Theme           []byte         `db:"theme"`
	ChosenVariants  []byte         `db:"chosen_variants"`
	TemplateID      string         `db:"template_id"`
	LogoURL         sql.NullString `db:"logo_url"`
	MetaTitle       sql.NullString `db:"meta_title"`
	MetaDescription sql.NullString `db:"meta_description"`
	PublishedAt     sql.NullTime   `db:"published_at"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

type pageRow struct {
	ID          string         `db:"id"`
	SiteID      string         `db:"site_id"`
	Type        string         `db:"type"`
	Slug        string         `db:"slug"`
	Title       string         `db:"title"`
	Description sql.NullString `db:"description"`
	Blocks      []byte         `db:"blocks"`
	Active      bool           `db:"active"`
	Position    int            `db:"position"`
}

const selectSite = `
        SELECT id, tenant_id, name, subdomain, custom_domain, status, theme,
               chosen_variants, template_id, logo_url, meta_title,
               meta_description, published_at, created_at, updated_at
        FROM   site`

// BySubdomain loads the site holding the subdomain label.
func (r *Repository) BySubdomain(ctx context.Context, sub string) (*Config, error) {
	return r.load(ctx, selectSite+`
        WHERE  subdomain = ?
        LIMIT  1`, sub)
}

// ByCustomDomain loads the site bound to a custom host name.
func (r *Repository) ByCustomDomain(ctx context.Context, host string) (*Config, error) {
	return r.load(ctx, selectSite+`
        WHERE  custom_domain = ?
        LIMIT  1`, host)
}

// ByID loads one site by id.
func (r *Repository) ByID(ctx context.Context, id string) (*Config, error) {
	return r.load(ctx, selectSite+`
        WHERE  id = ?
        LIMIT  1`, id)
}

func (r *Repository) load(ctx context.Context, q string, arg any) (*Config, error) {
	var row siteRow
	if err := r.db.GetContext(ctx, &row, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load site: %w", err)
	}
	cfg, err := row.config()
	if err != nil {
		return nil, err
	}

	const pq = `
        SELECT id, site_id, type, slug, title, description, blocks, active, position
        FROM   site_page
        WHERE  site_id = ?
        ORDER  BY position, id`
	var pages []pageRow
	if err := r.db.SelectContext(ctx, &pages, pq, cfg.ID); err != nil {
		return nil, fmt.Errorf("load pages: %w", err)
	}
	cfg.Pages = make([]Page, 0, len(pages))
	for _, pr := range pages {
		p, err := pr.page()
		if err != nil {
			return nil, err
		}
		cfg.Pages = append(cfg.Pages, p)
	}
	return cfg, nil
}

// SubdomainExists reports whether any site, in any status, holds sub.
func (r *Repository) SubdomainExists(ctx context.Context, sub string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM site WHERE subdomain = ?)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, q, sub); err != nil {
		return false, fmt.Errorf("subdomain exists: %w", err)
	}
	return ok, nil
}

// Create inserts the site and its pages in one transaction.
func (r *Repository) Create(ctx context.Context, cfg *Config) error {
	if err := ValidateConfig(cfg); err != nil {
		return err
	}
	now := r.now().UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now

	themeJSON, err := json.Marshal(cfg.Theme)
	if err != nil {
		return fmt.Errorf("encode theme: %w", err)
	}
	variantsJSON, err := json.Marshal(nonNilVariants(cfg.ChosenVariants))
	if err != nil {
		return fmt.Errorf("encode variants: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const qs = `
        INSERT INTO site (id, tenant_id, name, subdomain, custom_domain, status,
                          theme, chosen_variants, template_id, logo_url,
                          meta_title, meta_description, published_at,
                          created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, qs,
		cfg.ID, cfg.TenantID, cfg.Name, cfg.Subdomain, nullString(cfg.CustomDomain),
		string(cfg.Status), themeJSON, variantsJSON, cfg.TemplateID,
		nullString(cfg.LogoURL), nullString(cfg.MetaTitle), nullString(cfg.MetaDescription),
		nullTime(cfg.PublishedAt), cfg.CreatedAt, cfg.UpdatedAt,
	); err != nil {
		if isDuplicate(err) {
			return ErrSubdomainTaken
		}
		return fmt.Errorf("insert site: %w", err)
	}

	const qp = `
        INSERT INTO site_page (id, site_id, type, slug, title, description,
                               blocks, active, position)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for i := range cfg.Pages {
		p := &cfg.Pages[i]
		p.SiteID = cfg.ID
		blocks, err := json.Marshal(nonNilBlocks(p.Blocks))
		if err != nil {
			return fmt.Errorf("encode blocks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, qp,
			p.ID, p.SiteID, string(p.Type), p.Slug, p.Title, nullString(p.Description),
			blocks, p.Active, p.Order,
		); err != nil {
			return fmt.Errorf("insert page %s: %w", p.Slug, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// UpdatePageContent replaces the blocks of one page.
func (r *Repository) UpdatePageContent(ctx context.Context, pageID string, blocks []ContentBlock) error {
	if err := ValidateBlocks(blocks); err != nil {
		return err
	}
	raw, err := json.Marshal(nonNilBlocks(blocks))
	if err != nil {
		return fmt.Errorf("encode blocks: %w", err)
	}
	const q = `UPDATE site_page SET blocks = ? WHERE id = ?`
	return r.execOne(ctx, q, raw, pageID)
}

// UpdateLogo sets the logo URL of a site.
func (r *Repository) UpdateLogo(ctx context.Context, siteID, url string) error {
	const q = `UPDATE site SET logo_url = ?, updated_at = ? WHERE id = ?`
	return r.execOne(ctx, q, url, r.now().UTC(), siteID)
}

// Publish moves a site with at least one page to PUBLISHED.
func (r *Repository) Publish(ctx context.Context, siteID string, at time.Time) error {
	const qc = `SELECT COUNT(*) FROM site_page WHERE site_id = ?`
	var n int
	if err := r.db.GetContext(ctx, &n, qc, siteID); err != nil {
		return fmt.Errorf("count pages: %w", err)
	}
	if n == 0 {
		const qe = `SELECT COUNT(*) FROM site WHERE id = ?`
		if err := r.db.GetContext(ctx, &n, qe, siteID); err != nil {
			return fmt.Errorf("count sites: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrNoPages
	}
	const q = `UPDATE site SET status = ?, published_at = ?, updated_at = ? WHERE id = ?`
	return r.execOne(ctx, q, string(StatusPublished), at.UTC(), r.now().UTC(), siteID)
}

// TenantHandle returns the subdomain of the tenant's oldest site, or "" when
// the tenant has none.
func (r *Repository) TenantHandle(ctx context.Context, tenantID string) (string, error) {
	const q = `
        SELECT subdomain
        FROM   site
        WHERE  tenant_id = ?
        ORDER  BY created_at, id
        LIMIT  1`
	var sub string
	if err := r.db.GetContext(ctx, &sub, q, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("tenant handle: %w", err)
	}
	return sub, nil
}

// Delete removes a site; site_page rows go with it (ON DELETE CASCADE).
func (r *Repository) Delete(ctx context.Context, siteID string) error {
	const q = `DELETE FROM site WHERE id = ?`
	return r.execOne(ctx, q, siteID)
}

func (r *Repository) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

/*──────────────────────────── row mapping ──────────────────────────────────*/

func (row siteRow) config() (*Config, error) {
	cfg := &Config{
		ID:              row.ID,
		TenantID:        row.TenantID,
		Name:            row.Name,
		Subdomain:       row.Subdomain,
		CustomDomain:    row.CustomDomain.String,
		Status:          Status(row.Status),
		TemplateID:      row.TemplateID,
		LogoURL:         row.LogoURL.String,
		MetaTitle:       row.MetaTitle.String,
		MetaDescription: row.MetaDescription.String,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	if row.PublishedAt.Valid {
		at := row.PublishedAt.Time
		cfg.PublishedAt = &at
	}
	cfg.Theme = theme.Default
	if len(row.Theme) > 0 {
		var t theme.Tokens
		if err := json.Unmarshal(row.Theme, &t); err != nil {
			return nil, fmt.Errorf("site %s theme: %w", row.ID, err)
		}
		cfg.Theme = t.OrDefault()
	}
	cfg.ChosenVariants = map[variant.Category]string{}
	if len(row.ChosenVariants) > 0 {
		if err := json.Unmarshal(row.ChosenVariants, &cfg.ChosenVariants); err != nil {
			return nil, fmt.Errorf("site %s variants: %w", row.ID, err)
		}
	}
	return cfg, nil
}

func (row pageRow) page() (Page, error) {
	p := Page{
		ID:          row.ID,
		SiteID:      row.SiteID,
		Type:        PageType(row.Type),
		Slug:        row.Slug,
		Title:       row.Title,
		Description: row.Description.String,
		Active:      row.Active,
		Order:       row.Position,
		Blocks:      []ContentBlock{},
	}
	if len(row.Blocks) > 0 {
		if err := json.Unmarshal(row.Blocks, &p.Blocks); err != nil {
			return Page{}, fmt.Errorf("page %s blocks: %w", row.ID, err)
		}
	}
	return p, nil
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateKey
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nonNilBlocks(b []ContentBlock) []ContentBlock {
	if b == nil {
		return []ContentBlock{}
	}
	return b
}

func nonNilVariants(m map[variant.Category]string) map[variant.Category]string {
	if m == nil {
		return map[variant.Category]string{}
	}
	return m
}
