package txpool

import (
	"time"

	btree2 "github.com/tidwall/btree"

	"github.com/ethforge/txpool-core/types"
)

// TransactionInfo is a mempool entry: the transaction itself plus the
// book-keeping fields ordering and aging depend on.
type TransactionInfo struct {
	Tx            types.Transaction
	ReceivedLocal bool
	AddedAt       time.Time
	Sequence      uint64

	inStaticRange bool
}

// effectivePriority returns the effective priority fee per gas at the given
// base fee, per §4.5.1. Fee fields are assumed to fit in an int64 (~9.2e18
// wei, far above any realistic gas price) so the possibly-negative
// legacy/access-list case can use ordinary signed arithmetic instead of a
// bignum subtraction.
func effectivePriority(tx types.Transaction, baseFee uint64) int64 {
	if tx.Type() == types.FeeMarketTxType {
		tip := int64(tx.Tip().Uint64())
		capped := int64(tx.FeeCap().Uint64()) - int64(baseFee)
		if tip < capped {
			return tip
		}
		return capped
	}
	return int64(tx.GasPrice().Uint64()) - int64(baseFee)
}

// isStaticEligible reports whether a transaction belongs in the static
// range at the given base fee: true for a FeeMarket transaction not
// currently clipped by its fee cap; legacy/access-list are always dynamic.
func isStaticEligible(tx types.Transaction, baseFee uint64) bool {
	if tx.Type() != types.FeeMarketTxType {
		return false
	}
	tip := int64(tx.Tip().Uint64())
	capped := int64(tx.FeeCap().Uint64()) - int64(baseFee)
	return tip <= capped
}

// orderedRange is a priority-ordered set of *TransactionInfo, ranked by
// (received_local DESC, key DESC, sequence DESC). keyFn computes the
// priority key live at comparison time so base-fee movement never requires
// an explicit resort of entries that remain in the same range (see
// effectivePriority: a uniform shift in base fee preserves relative order).
type orderedRange struct {
	tree  *btree2.BTreeG[*TransactionInfo]
	keyFn func(*TransactionInfo) int64
}

func newOrderedRange(keyFn func(*TransactionInfo) int64) *orderedRange {
	r := &orderedRange{keyFn: keyFn}
	r.tree = btree2.NewBTreeGOptions(r.less, btree2.Options{Degree: 32, NoLocks: true})
	return r
}

func (r *orderedRange) less(a, b *TransactionInfo) bool {
	if a.ReceivedLocal != b.ReceivedLocal {
		return a.ReceivedLocal // local sorts first (DESC on a bool: true < false in our ordering)
	}
	ka, kb := r.keyFn(a), r.keyFn(b)
	if ka != kb {
		return ka > kb
	}
	return a.Sequence > b.Sequence
}

func (r *orderedRange) insert(ti *TransactionInfo) { r.tree.Set(ti) }
func (r *orderedRange) remove(ti *TransactionInfo) { r.tree.Delete(ti) }
func (r *orderedRange) len() int                   { return r.tree.Len() }

// head returns the highest-priority entry, or nil if empty.
func (r *orderedRange) head() *TransactionInfo {
	v, ok := r.tree.Min()
	if !ok {
		return nil
	}
	return v
}

// tail returns the lowest-priority entry, or nil if empty.
func (r *orderedRange) tail() *TransactionInfo {
	v, ok := r.tree.Max()
	if !ok {
		return nil
	}
	return v
}

// ascend calls f for every entry from highest to lowest priority, stopping
// early if f returns false.
func (r *orderedRange) ascend(f func(*TransactionInfo) bool) {
	r.tree.Scan(f)
}
