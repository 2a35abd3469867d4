package txpool

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ethforge/txpool-core/common"
)

// newlyAnnounced is the bounded FIFO of recently received hashes used to
// throttle outbound re-announcements to peers. It is guarded by its own
// lock (the hashicorp cache is internally synchronized), independent of the
// pool's structural RWMutex. As long as callers only ever Add (never Get),
// the cache's least-recently-used eviction degenerates to FIFO.
type newlyAnnounced struct {
	cache *lru.Cache[common.Hash, struct{}]
}

func newNewlyAnnounced(capacity int) *newlyAnnounced {
	cache, err := lru.New[common.Hash, struct{}](capacity)
	if err != nil {
		// Only non-positive capacity reaches here; txpoolcfg.Config always
		// supplies a positive default.
		panic(err)
	}
	return &newlyAnnounced{cache: cache}
}

// seen reports whether hash was already recorded, recording it either way.
func (n *newlyAnnounced) seen(hash common.Hash) bool {
	if n.cache.Contains(hash) {
		return true
	}
	n.cache.Add(hash, struct{}{})
	return false
}
