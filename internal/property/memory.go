package property

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Lister and Finder for tests and the
// database-less CLI mode.  Later additions list first.
type MemoryStore struct {
	mu   sync.RWMutex
	rows []Raw
}

var (
	_ Lister = (*MemoryStore)(nil)
	_ Finder = (*MemoryStore)(nil)
)

// NewMemoryStore returns a store holding rows, oldest first.
func NewMemoryStore(rows ...Raw) *MemoryStore {
	m := &MemoryStore{}
	m.Add(rows...)
	return m
}

// Add appends rows.
func (m *MemoryStore) Add(rows ...Raw) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rows...)
}

// ListActive returns up to limit active rows of tenantID, newest first.
func (m *MemoryStore) ListActive(_ context.Context, tenantID string, limit int) ([]Raw, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Raw{}
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if r := m.rows[i]; r.TenantID == tenantID && r.Status == StatusActive {
			out = append(out, r)
		}
	}
	return out, nil
}

// FindActive returns one active row or ErrNotFound.
func (m *MemoryStore) FindActive(_ context.Context, tenantID, id string) (*Raw, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rows {
		if r.ID == id && r.TenantID == tenantID && r.Status == StatusActive {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}
