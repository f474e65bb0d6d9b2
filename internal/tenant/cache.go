// Package tenant resolves an inbound host to its site configuration.
//
// Context
// -------
// The Resolver lazily loads site.Config values through a site.Reader, keeps
// them in a sync.Map keyed by normalised host, and evicts them on age, idle
// time, or LRU pressure (see evictor.go).  Loads for one key are collapsed
// with singleflight; a load for one host never blocks another host, and a
// provisioning write to one site never blocks reads of a different one.
//
// Lookup order
// ------------
//  1. Normalize the input (scheme, path, port, trailing dot, case).
//  2. Hosts with a dot try the custom-domain index first.
//  3. Then the subdomain label: the whole input when it has no dot, else
//     the first label below the base domain (or ".localhost").
//  4. DISABLED sites are reported exactly like a miss.
//
// Misses are never cached, so a freshly provisioned site resolves on its
// first request.  Cached configs are shared; callers treat them as
// read-only.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/vitrine/internal/metrics"
	"github.com/yanizio/vitrine/internal/site"
)

// Static defaults.  Override through Options.
const (
	DefaultTTL           = 5 * time.Minute
	DefaultIdleTTL       = 30 * time.Minute
	DefaultMaxEntries    = 1000
	DefaultEvictInterval = time.Minute
	loadTimeout          = 5 * time.Second
)

// ErrNotFound is returned for unknown, unresolvable, and disabled sites.
var ErrNotFound = errors.New("tenant not found")

// Options tunes a Resolver.  Zero fields take the defaults above.
type Options struct {
	BaseDomain     string
	LocalhostAlias string
	TTL            time.Duration
	IdleTTL        time.Duration
	MaxEntries     int
	EvictInterval  time.Duration
}

// entry is one cached config.
type entry struct {
	cfg      *site.Config
	loadedAt int64 // UnixNano
	lastSeen int64 // UnixNano
}

// Resolver maps hosts to site configurations.
type Resolver struct {
	store site.Reader
	opts  Options
	log   *zap.Logger

	sfg singleflight.Group
	m   sync.Map // host → *entry
	n   atomic.Int64

	// gen counts invalidations.  A load that saw an invalidation start
	// after it began does not cache its result.
	putMu sync.Mutex
	gen   uint64

	evictTicker *time.Ticker
	stop        chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

// New constructs a Resolver and starts the background evictor.
func New(store site.Reader, opts Options, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.L()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.EvictInterval <= 0 {
		opts.EvictInterval = DefaultEvictInterval
	}
	opts.BaseDomain = Normalize(opts.BaseDomain)

	r := &Resolver{
		store: store,
		opts:  opts,
		log:   log,
		stop:  make(chan struct{}),
		now:   time.Now,
	}
	r.evictTicker = time.NewTicker(opts.EvictInterval)
	go r.evictLoop()
	return r
}

// Close stops the evictor.  Safe to call more than once.
func (r *Resolver) Close() {
	r.stopOnce.Do(func() {
		r.evictTicker.Stop()
		close(r.stop)
	})
}

// Resolve returns the site for hostOrSubdomain or ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, hostOrSubdomain string) (*site.Config, error) {
	key := lookupAlias(Normalize(hostOrSubdomain), r.opts.LocalhostAlias)
	if key == "" {
		return nil, ErrNotFound
	}

	if cfg, ok := r.cached(key); ok {
		return cfg, nil
	}

	v, err, _ := r.sfg.Do(key, func() (any, error) {
		// Double-check after singleflight barrier.
		if cfg, ok := r.cached(key); ok {
			return cfg, nil
		}
		// Detached from the first caller so its cancellation does not fail
		// the callers sharing this load.
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		gen := r.generation()
		cfg, err := r.load(lctx, key)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				metrics.SiteLoadErrorsTotal.Inc()
				r.log.Error("site load failed", zap.String("host", key), zap.Error(err))
			}
			return nil, err
		}
		if !r.put(key, cfg, gen) {
			r.log.Debug("site changed during load, not cached", zap.String("host", key))
		}
		metrics.SiteLoadTotal.Inc()
		return cfg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*site.Config), nil
}

// cached returns a fresh cached entry and touches it.
func (r *Resolver) cached(key string) (*site.Config, bool) {
	v, ok := r.m.Load(key)
	if !ok {
		return nil, false
	}
	ent := v.(*entry)
	now := r.now().UnixNano()
	if time.Duration(now-ent.loadedAt) > r.opts.TTL {
		return nil, false
	}
	atomic.StoreInt64(&ent.lastSeen, now)
	return ent.cfg, true
}

func (r *Resolver) generation() uint64 {
	r.putMu.Lock()
	defer r.putMu.Unlock()
	return r.gen
}

// put caches cfg unless an invalidation ran since gen was read.
func (r *Resolver) put(key string, cfg *site.Config, gen uint64) bool {
	r.putMu.Lock()
	defer r.putMu.Unlock()
	if r.gen != gen {
		return false
	}
	now := r.now().UnixNano()
	if _, loaded := r.m.Swap(key, &entry{cfg: cfg, loadedAt: now, lastSeen: now}); !loaded {
		r.n.Add(1)
		metrics.ActiveSites.Inc()
	}
	return true
}

// bump marks an invalidation so loads in flight do not cache stale rows.
func (r *Resolver) bump() {
	r.putMu.Lock()
	r.gen++
	r.putMu.Unlock()
}

// load runs the lookup order against the store.
func (r *Resolver) load(ctx context.Context, host string) (*site.Config, error) {
	var cfg *site.Config
	if strings.Contains(host, ".") {
		c, err := r.store.ByCustomDomain(ctx, host)
		switch {
		case err == nil:
			cfg = c
		case !errors.Is(err, site.ErrNotFound):
			return nil, fmt.Errorf("custom domain %s: %w", host, err)
		}
	}
	if cfg == nil {
		label, ok := subdomainOf(host, r.opts.BaseDomain)
		if !ok {
			return nil, ErrNotFound
		}
		c, err := r.store.BySubdomain(ctx, label)
		if err != nil {
			if errors.Is(err, site.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("subdomain %s: %w", label, err)
		}
		cfg = c
	}
	if cfg.Status == site.StatusDisabled {
		return nil, ErrNotFound
	}
	return cfg, nil
}

// Invalidate drops the cached entries for the given hosts or labels.
func (r *Resolver) Invalidate(keys ...string) {
	r.bump()
	for _, k := range keys {
		r.drop(lookupAlias(Normalize(k), r.opts.LocalhostAlias))
	}
}

// InvalidateSite drops every cached entry that points at siteID.
func (r *Resolver) InvalidateSite(siteID string) {
	r.bump()
	r.m.Range(func(key, value any) bool {
		if value.(*entry).cfg.ID == siteID {
			r.drop(key.(string))
		}
		return true
	})
}

func (r *Resolver) drop(key string) {
	if _, ok := r.m.LoadAndDelete(key); ok {
		r.n.Add(-1)
		metrics.ActiveSites.Dec()
	}
}

// Len reports the number of cached entries.
func (r *Resolver) Len() int { return int(r.n.Load()) }
