package site

import (
	"context"
	"time"
)

// Reader is the lookup side used by the tenant resolver.
type Reader interface {
	BySubdomain(ctx context.Context, sub string) (*Config, error)
	ByCustomDomain(ctx context.Context, host string) (*Config, error)
}

// Store is the full persistence contract.  All lookups return ErrNotFound on
// a miss; Create returns ErrSubdomainTaken when the subdomain (or custom
// domain) is held by another site.
type Store interface {
	Reader
	ByID(ctx context.Context, id string) (*Config, error)
	SubdomainExists(ctx context.Context, sub string) (bool, error)
	Create(ctx context.Context, cfg *Config) error
	UpdatePageContent(ctx context.Context, pageID string, blocks []ContentBlock) error
	UpdateLogo(ctx context.Context, siteID, url string) error
	Publish(ctx context.Context, siteID string, at time.Time) error
	Delete(ctx context.Context, siteID string) error
}
