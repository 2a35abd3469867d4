// Package metrics exposes prometheus instrumentation for pool admission,
// eviction and replacement activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Added = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "txpool",
		Name:      "added_total",
		Help:      "Transactions accepted into the pool.",
	})

	Rejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "txpool",
		Name:      "rejected_total",
		Help:      "Transactions rejected on admission, by reason.",
	}, []string{"reason"})

	Replaced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "txpool",
		Name:      "replaced_total",
		Help:      "Existing entries replaced by a higher-fee same-(sender,nonce) transaction.",
	})

	EvictedCapacity = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "txpool",
		Name:      "evicted_capacity_total",
		Help:      "Entries dropped to enforce the pending pool size limit.",
	})

	EvictedAged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "txpool",
		Name:      "evicted_aged_total",
		Help:      "Entries dropped by the retention-window aging sweep.",
	})

	DroppedDuringSelect = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "txpool",
		Name:      "dropped_during_select_total",
		Help:      "Entries a Select caller chose to drop while iterating (e.g. now-invalid transactions).",
	})

	PoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "txpool",
		Name:      "size",
		Help:      "Current number of transactions held in the pool.",
	})

	StaticRangeSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "txpool",
		Name:      "static_range_size",
		Help:      "Current number of transactions in the static (fee-cap-guaranteed) range.",
	})

	DynamicRangeSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "txpool",
		Name:      "dynamic_range_size",
		Help:      "Current number of transactions in the base-fee-dependent dynamic range.",
	})

	BaseFee = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "txpool",
		Name:      "base_fee_wei",
		Help:      "Base fee currently used to rank the dynamic range.",
	})

	CompressedSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "txpool",
		Name:      "remote_tx_compressed_size_bytes",
		Help:      "FastLZ-estimated compressed size of RLP-encoded remote transactions admitted for parsing.",
		Buckets:   prometheus.ExponentialBuckets(32, 2, 12),
	})
)
