// Package txpoolcfg holds the tunables that govern mempool admission,
// replacement and eviction.
package txpoolcfg

import "time"

// Config bundles every knob the pool reads at construction time.
type Config struct {
	// PendingPoolLimit caps |by_hash|; admission past this triggers
	// eviction of the lowest-priority entry.
	PendingPoolLimit int

	// PriceBump is the percentage a replacement transaction's fee fields
	// must exceed the incumbent's by (e.g. 10 means 10%).
	PriceBump uint64

	// RetentionHours is how long an entry may sit in the pool before
	// evict_old drops it regardless of priority.
	RetentionHours uint64

	// NewlyAnnouncedCapacity bounds the newly_announced FIFO used to
	// throttle outbound announcements.
	NewlyAnnouncedCapacity int

	// AgingInterval is how often the background evict_old scheduler runs.
	AgingInterval time.Duration
}

// DefaultConfig matches the defaults a standalone txpool process would
// launch with absent any CLI overrides.
var DefaultConfig = Config{
	PendingPoolLimit:       10_000,
	PriceBump:              10,
	RetentionHours:         3,
	NewlyAnnouncedCapacity: 4096,
	AgingInterval:          time.Minute,
}
