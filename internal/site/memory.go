// internal/site/memory.go
//
// In-memory Store for tests, demos, and `sitectl --memory`.  Uniqueness of
// subdomains and custom domains is checked under the writer lock, which gives
// the same guarantee the MySQL UNIQUE keys give.  Readers never wait on it.
package site

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryStore is a concurrency-safe Store.  Reads take no lock: rows are
// immutable *Config values in sync.Maps and every write stores a fresh copy.
// Writers serialize on wmu, so uniqueness checks and index updates are
// atomic with respect to each other.
type MemoryStore struct {
	wmu    sync.Mutex
	byID   sync.Map // id → *Config
	bySub  sync.Map // subdomain → id
	byHost sync.Map // custom domain → id
	pageOf sync.Map // page id → site id
	n      atomic.Int64
	now    func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (m *MemoryStore) row(id string) (*Config, bool) {
	v, ok := m.byID.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Config), true
}

func (m *MemoryStore) get(index *sync.Map, key string) (*Config, error) {
	id, ok := index.Load(strings.ToLower(key))
	if !ok {
		return nil, ErrNotFound
	}
	c, ok := m.row(id.(string))
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

func (m *MemoryStore) BySubdomain(_ context.Context, sub string) (*Config, error) {
	return m.get(&m.bySub, sub)
}

func (m *MemoryStore) ByCustomDomain(_ context.Context, host string) (*Config, error) {
	return m.get(&m.byHost, host)
}

func (m *MemoryStore) ByID(_ context.Context, id string) (*Config, error) {
	c, ok := m.row(id)
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

func (m *MemoryStore) SubdomainExists(_ context.Context, sub string) (bool, error) {
	_, ok := m.bySub.Load(strings.ToLower(sub))
	return ok, nil
}

func (m *MemoryStore) Create(_ context.Context, cfg *Config) error {
	if err := ValidateConfig(cfg); err != nil {
		return err
	}
	sub := strings.ToLower(cfg.Subdomain)
	host := strings.ToLower(cfg.CustomDomain)

	m.wmu.Lock()
	defer m.wmu.Unlock()
	if _, taken := m.bySub.Load(sub); taken {
		return ErrSubdomainTaken
	}
	if host != "" {
		if _, taken := m.byHost.Load(host); taken {
			return ErrSubdomainTaken
		}
	}
	now := m.now().UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now
	for i := range cfg.Pages {
		cfg.Pages[i].SiteID = cfg.ID
		if cfg.Pages[i].Blocks == nil {
			cfg.Pages[i].Blocks = []ContentBlock{}
		}
	}

	// Row first, indexes after: a reader that finds an index entry always
	// finds the row.
	stored := cfg.Clone()
	m.byID.Store(cfg.ID, stored)
	m.n.Add(1)
	for _, p := range stored.Pages {
		m.pageOf.Store(p.ID, cfg.ID)
	}
	if host != "" {
		m.byHost.Store(host, cfg.ID)
	}
	m.bySub.Store(sub, cfg.ID)
	return nil
}

// update replaces the row of siteID with fn applied to a copy of it.
func (m *MemoryStore) update(siteID string, fn func(c *Config) error) error {
	m.wmu.Lock()
	defer m.wmu.Unlock()
	cur, ok := m.row(siteID)
	if !ok {
		return ErrNotFound
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return err
	}
	next.UpdatedAt = m.now().UTC()
	m.byID.Store(siteID, next)
	return nil
}

func (m *MemoryStore) UpdatePageContent(_ context.Context, pageID string, blocks []ContentBlock) error {
	if err := ValidateBlocks(blocks); err != nil {
		return err
	}
	siteID, ok := m.pageOf.Load(pageID)
	if !ok {
		return ErrNotFound
	}
	return m.update(siteID.(string), func(c *Config) error {
		for i := range c.Pages {
			if c.Pages[i].ID == pageID {
				c.Pages[i].Blocks = Page{Blocks: blocks}.clone().Blocks
				return nil
			}
		}
		return ErrNotFound
	})
}

func (m *MemoryStore) UpdateLogo(_ context.Context, siteID, url string) error {
	return m.update(siteID, func(c *Config) error {
		c.LogoURL = url
		return nil
	})
}

func (m *MemoryStore) Publish(_ context.Context, siteID string, at time.Time) error {
	return m.update(siteID, func(c *Config) error {
		if len(c.Pages) == 0 {
			return ErrNoPages
		}
		at = at.UTC()
		c.Status = StatusPublished
		c.PublishedAt = &at
		return nil
	})
}

func (m *MemoryStore) Delete(_ context.Context, siteID string) error {
	m.wmu.Lock()
	defer m.wmu.Unlock()
	c, ok := m.row(siteID)
	if !ok {
		return ErrNotFound
	}
	m.bySub.Delete(strings.ToLower(c.Subdomain))
	if c.CustomDomain != "" {
		m.byHost.Delete(strings.ToLower(c.CustomDomain))
	}
	for _, p := range c.Pages {
		m.pageOf.Delete(p.ID)
	}
	m.byID.Delete(siteID)
	m.n.Add(-1)
	return nil
}

// Len reports the number of stored sites.
func (m *MemoryStore) Len() int { return int(m.n.Load()) }

// TenantHandle returns the subdomain of the tenant's oldest site, or "".
func (m *MemoryStore) TenantHandle(_ context.Context, tenantID string) (string, error) {
	var oldest *Config
	m.byID.Range(func(_, v any) bool {
		c := v.(*Config)
		if c.TenantID != tenantID {
			return true
		}
		if oldest == nil || c.CreatedAt.Before(oldest.CreatedAt) ||
			(c.CreatedAt.Equal(oldest.CreatedAt) && c.ID < oldest.ID) {
			oldest = c
		}
		return true
	})
	if oldest == nil {
		return "", nil
	}
	return oldest.Subdomain, nil
}
