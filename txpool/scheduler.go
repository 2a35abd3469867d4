package txpool

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs the periodic evict_old task on a ticker, per §4.5.5/§5. The
// cancel flag is read once at each task entry; an iteration already under
// way runs to completion.
type Scheduler struct {
	pool     *Pool
	interval time.Duration
	log      *zap.Logger

	cancelled atomic.Bool
}

func NewScheduler(pool *Pool, interval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		pool:     pool,
		interval: interval,
		log:      log,
	}
}

// Run drives the aging loop until Stop is called. Intended to be launched
// in its own goroutine.
func (s *Scheduler) Run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for range ticker.C {
		if s.cancelled.Load() {
			return
		}
		s.log.Debug("running scheduled eviction of aged transactions")
		s.pool.EvictOld()
	}
}

// Stop requests the loop to exit after its current (or next) tick. It does
// not interrupt an eviction pass already in progress.
func (s *Scheduler) Stop() {
	s.cancelled.Store(true)
}
