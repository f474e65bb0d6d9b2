// evictor.go houses the eviction loop for Resolver.  Every EvictInterval it
// scans the map and removes:
//
//   - entries older than TTL or idle longer than IdleTTL
//   - least-recently-used entries when the map exceeds MaxEntries
//
// Each eviction is logged at debug level and updates Prometheus counters.
package tenant

import (
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/vitrine/internal/metrics"
)

func (r *Resolver) evictLoop() {
	for {
		select {
		case <-r.stop:
			return
		case <-r.evictTicker.C:
			r.evict()
		}
	}
}

// evict runs one idle pass and one LRU pass.
func (r *Resolver) evict() {
	now := r.now().UnixNano()

	// ----------------------------------------------------------------
	// Age and idle pass
	// ----------------------------------------------------------------
	r.m.Range(func(key, value any) bool {
		ent := value.(*entry)
		age := time.Duration(now - ent.loadedAt)
		idle := time.Duration(now - atomic.LoadInt64(&ent.lastSeen))
		if age > r.opts.TTL || idle > r.opts.IdleTTL {
			r.drop(key.(string))
			r.log.Debug("site evicted",
				zap.Any("host", key),
				zap.Duration("age", age.Truncate(time.Second)),
				zap.Duration("idle", idle.Truncate(time.Second)))
			metrics.SiteEvictTotal.Inc()
		}
		return true
	})

	// ----------------------------------------------------------------
	// LRU pass
	// ----------------------------------------------------------------
	count := r.Len()
	if count <= r.opts.MaxEntries {
		return
	}
	type kv struct {
		key string
		at  int64
	}
	all := make([]kv, 0, count)
	r.m.Range(func(key, value any) bool {
		all = append(all, kv{key: key.(string), at: atomic.LoadInt64(&value.(*entry).lastSeen)})
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })
	for i := 0; i < len(all)-r.opts.MaxEntries; i++ {
		r.drop(all[i].key)
		r.log.Debug("site evicted (LRU pressure)", zap.String("host", all[i].key))
		metrics.SiteEvictTotal.Inc()
	}
}
