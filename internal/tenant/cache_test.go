package tenant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/vitrine/internal/site"
	"github.com/yanizio/vitrine/internal/theme"
)

// countingReader wraps a MemoryStore and counts lookups.
type countingReader struct {
	*site.MemoryStore
	calls atomic.Int64
	delay time.Duration
	err   error
}

func (c *countingReader) BySubdomain(ctx context.Context, sub string) (*site.Config, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.MemoryStore.BySubdomain(ctx, sub)
}

func seed(t *testing.T, m *site.MemoryStore, id, sub, custom string, status site.Status) {
	t.Helper()
	err := m.Create(context.Background(), &site.Config{
		ID: id, TenantID: "t-" + id, Name: sub, Subdomain: sub, CustomDomain: custom,
		Status: status, Theme: theme.Default,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", sub, err)
	}
}

func newResolver(t *testing.T, r site.Reader) *Resolver {
	t.Helper()
	res := New(r, Options{BaseDomain: "vitrine.app", EvictInterval: time.Hour}, zap.NewNop())
	t.Cleanup(res.Close)
	return res
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"ImobExemplo":                             "imobexemplo",
		"https://imobexemplo.vitrine.app:8443/x?y": "imobexemplo.vitrine.app",
		"imobexemplo.vitrine.app.":                "imobexemplo.vitrine.app",
		"  WWW.Imob.com.br:80 ":                   "www.imob.com.br",
		"[::1]:8080":                              "::1",
		"":                                        "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSubdomainOf(t *testing.T) {
	cases := []struct {
		host  string
		label string
		ok    bool
	}{
		{"imobexemplo", "imobexemplo", true},
		{"imobexemplo.vitrine.app", "imobexemplo", true},
		{"imobexemplo.localhost", "imobexemplo", true},
		{"a.b.vitrine.app", "", false},
		{"vitrine.app", "", false},
		{"imob.com.br", "", false},
	}
	for _, c := range cases {
		label, ok := subdomainOf(c.host, "vitrine.app")
		if label != c.label || ok != c.ok {
			t.Errorf("subdomainOf(%q) = %q, %v", c.host, label, ok)
		}
	}
}

func TestResolve_SubdomainAndCustomDomain(t *testing.T) {
	m := site.NewMemoryStore()
	seed(t, m, "s1", "imobexemplo", "www.imobexemplo.com.br", site.StatusPublished)
	res := newResolver(t, m)
	ctx := context.Background()

	for _, host := range []string{"imobexemplo", "IMOBEXEMPLO.vitrine.app:443", "https://www.imobexemplo.com.br/imoveis"} {
		cfg, err := res.Resolve(ctx, host)
		if err != nil || cfg.ID != "s1" {
			t.Fatalf("Resolve(%q) = %+v, %v", host, cfg, err)
		}
	}
}

func TestResolve_NotFoundCasesAreIdentical(t *testing.T) {
	m := site.NewMemoryStore()
	seed(t, m, "s1", "desligado", "", site.StatusDisabled)
	res := newResolver(t, m)
	ctx := context.Background()

	_, errMissing := res.Resolve(ctx, "naoexiste")
	_, errDisabled := res.Resolve(ctx, "desligado")
	_, errForeign := res.Resolve(ctx, "naoexiste.outro.com")
	for _, err := range []error{errMissing, errDisabled, errForeign} {
		if err != ErrNotFound {
			t.Fatalf("err = %v, want the ErrNotFound sentinel", err)
		}
	}
}

func TestResolve_MissIsNotCached(t *testing.T) {
	m := site.NewMemoryStore()
	res := newResolver(t, m)
	ctx := context.Background()

	if _, err := res.Resolve(ctx, "novo"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	seed(t, m, "s1", "novo", "", site.StatusDraft)
	if cfg, err := res.Resolve(ctx, "novo"); err != nil || cfg.ID != "s1" {
		t.Fatalf("Resolve after provisioning = %+v, %v", cfg, err)
	}
}

func TestResolve_SingleflightCollapsesLoads(t *testing.T) {
	m := site.NewMemoryStore()
	seed(t, m, "s1", "imobexemplo", "", site.StatusPublished)
	cr := &countingReader{MemoryStore: m, delay: 20 * time.Millisecond}
	res := newResolver(t, cr)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := res.Resolve(context.Background(), "imobexemplo"); err != nil {
				t.Errorf("Resolve: %v", err)
			}
		}()
	}
	wg.Wait()
	if n := cr.calls.Load(); n != 1 {
		t.Fatalf("store called %d times, want 1", n)
	}
	if res.Len() != 1 {
		t.Fatalf("cache entries = %d", res.Len())
	}
}

func TestResolve_StoreErrorIsNotNotFound(t *testing.T) {
	cr := &countingReader{MemoryStore: site.NewMemoryStore(), err: fmt.Errorf("connection refused")}
	res := newResolver(t, cr)

	_, err := res.Resolve(context.Background(), "imobexemplo")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want a load error", err)
	}
}

func TestResolve_TTLAndInvalidate(t *testing.T) {
	m := site.NewMemoryStore()
	seed(t, m, "s1", "imobexemplo", "", site.StatusPublished)
	cr := &countingReader{MemoryStore: m}
	res := newResolver(t, cr)
	ctx := context.Background()

	clock := time.Now()
	res.now = func() time.Time { return clock }

	_, _ = res.Resolve(ctx, "imobexemplo")
	_, _ = res.Resolve(ctx, "imobexemplo")
	if cr.calls.Load() != 1 {
		t.Fatalf("calls = %d, want cached", cr.calls.Load())
	}

	clock = clock.Add(DefaultTTL + time.Second)
	_, _ = res.Resolve(ctx, "imobexemplo")
	if cr.calls.Load() != 2 {
		t.Fatalf("calls = %d, want reload after TTL", cr.calls.Load())
	}

	res.InvalidateSite("s1")
	if res.Len() != 0 {
		t.Fatalf("entries after InvalidateSite = %d", res.Len())
	}
	_, _ = res.Resolve(ctx, "imobexemplo.vitrine.app")
	res.Invalidate("IMOBEXEMPLO.vitrine.app")
	if res.Len() != 0 {
		t.Fatalf("entries after Invalidate = %d", res.Len())
	}
}

func TestEvict_IdleAndLRU(t *testing.T) {
	m := site.NewMemoryStore()
	for i := 0; i < 4; i++ {
		seed(t, m, fmt.Sprintf("s%d", i), fmt.Sprintf("site%d", i), "", site.StatusPublished)
	}
	res := New(m, Options{MaxEntries: 2, IdleTTL: time.Hour, TTL: 2 * time.Hour, EvictInterval: time.Hour}, zap.NewNop())
	t.Cleanup(res.Close)
	ctx := context.Background()

	clock := time.Now()
	res.now = func() time.Time { return clock }
	for i := 0; i < 4; i++ {
		clock = clock.Add(time.Second)
		if _, err := res.Resolve(ctx, fmt.Sprintf("site%d", i)); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
	}

	res.evict()
	if res.Len() != 2 {
		t.Fatalf("entries after LRU pass = %d, want 2", res.Len())
	}
	if _, ok := res.m.Load("site0"); ok {
		t.Fatal("least recently used entry survived")
	}
	if _, ok := res.m.Load("site3"); !ok {
		t.Fatal("most recent entry evicted")
	}

	clock = clock.Add(90 * time.Minute)
	res.evict()
	if res.Len() != 0 {
		t.Fatalf("entries after idle pass = %d, want 0", res.Len())
	}
}

func TestLookupAlias(t *testing.T) {
	t.Setenv("VITRINE_LOCALHOST_ALIAS", "")
	if got := lookupAlias("localhost", "imobexemplo"); got != "imobexemplo" {
		t.Fatalf("alias = %q", got)
	}
	t.Setenv("VITRINE_LOCALHOST_ALIAS", "Outra")
	if got := lookupAlias("localhost", "imobexemplo"); got != "outra" {
		t.Fatalf("env alias = %q", got)
	}
	if got := lookupAlias("imob.com", "x"); got != "imob.com" {
		t.Fatalf("non-localhost host changed: %q", got)
	}
}

// gatedReader blocks the first BySubdomain until release is closed.
type gatedReader struct {
	*site.MemoryStore
	calls   atomic.Int64
	started chan struct{}
	release chan struct{}
}

func (g *gatedReader) BySubdomain(ctx context.Context, sub string) (*site.Config, error) {
	if g.calls.Add(1) == 1 {
		close(g.started)
		<-g.release
	}
	return g.MemoryStore.BySubdomain(ctx, sub)
}

func TestResolve_InvalidationDuringLoadIsNotLost(t *testing.T) {
	m := site.NewMemoryStore()
	seed(t, m, "s1", "imobexemplo", "", site.StatusDraft)
	g := &gatedReader{MemoryStore: m, started: make(chan struct{}), release: make(chan struct{})}
	res := newResolver(t, g)
	ctx := context.Background()

	done := make(chan *site.Config, 1)
	go func() {
		cfg, err := res.Resolve(ctx, "imobexemplo")
		if err != nil {
			t.Errorf("Resolve: %v", err)
		}
		done <- cfg
	}()

	<-g.started
	res.InvalidateSite("s1")
	close(g.release)
	if cfg := <-done; cfg == nil || cfg.ID != "s1" {
		t.Fatalf("in-flight Resolve = %+v", cfg)
	}
	if res.Len() != 0 {
		t.Fatalf("stale load cached: len = %d", res.Len())
	}

	if _, err := res.Resolve(ctx, "imobexemplo"); err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if n := g.calls.Load(); n != 2 {
		t.Fatalf("store calls = %d, want 2", n)
	}
	if res.Len() != 1 {
		t.Fatalf("fresh load not cached: len = %d", res.Len())
	}
}
