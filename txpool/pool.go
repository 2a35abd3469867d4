// Package txpool implements the pending-transaction mempool: admission,
// per-sender nonce tracking, dual-range prioritization under a dynamic base
// fee, replacement, eviction, selection and listener dispatch.
package txpool

import (
	"container/heap"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/ethforge/txpool-core/common"
	"github.com/ethforge/txpool-core/common/fixedgas"
	"github.com/ethforge/txpool-core/txpool/metrics"
	"github.com/ethforge/txpool-core/txpool/txpoolcfg"
	"github.com/ethforge/txpool-core/types"
)

// Pool is the concurrency-safe mempool described in §4.5/§5: a single
// writer-preferring RWMutex guards the structural state; listener dispatch
// happens after the lock is released.
type Pool struct {
	cfg     txpoolcfg.Config
	chainID uint256.Int

	mu       sync.RWMutex
	byHash   map[common.Hash]*TransactionInfo
	bySender map[common.Address]*perSenderState
	static   *orderedRange
	dynamic  *orderedRange
	baseFee  uint64
	sequence uint64

	announced *newlyAnnounced
	added     *listenerSet
	dropped   *listenerSet

	closed atomic.Bool

	parseMu  sync.Mutex
	parseCtx *types.TxParseContext
}

// New constructs an empty pool. baseFee is the initial chain base fee (0 if
// the chain has no fee-market activation at the current head); chainID is
// the node's configured chain id, which every admitted transaction's own
// chain_id (if present) must match.
func New(cfg txpoolcfg.Config, baseFee uint64, chainID uint256.Int) *Pool {
	p := &Pool{
		cfg:       cfg,
		chainID:   chainID,
		byHash:    make(map[common.Hash]*TransactionInfo),
		bySender:  make(map[common.Address]*perSenderState),
		baseFee:   baseFee,
		announced: newNewlyAnnounced(cfg.NewlyAnnouncedCapacity),
		added:     newListenerSet(),
		dropped:   newListenerSet(),
		parseCtx:  types.NewTxParseContext(chainID),
	}
	p.static = newOrderedRange(func(ti *TransactionInfo) int64 { return int64(ti.Tx.Tip().Uint64()) })
	p.dynamic = newOrderedRange(func(ti *TransactionInfo) int64 {
		return effectivePriority(ti.Tx, p.currentBaseFee())
	})
	return p
}

func (p *Pool) currentBaseFee() uint64 { return p.baseFee }

// AddRemote admits a transaction received from the network.
func (p *Pool) AddRemote(tx types.Transaction) (Outcome, error) {
	return p.add(tx, false)
}

// AddLocal admits a transaction submitted by the local node's own user,
// which is preferred in ordering and never evicted ahead of a remote entry.
func (p *Pool) AddLocal(tx types.Transaction) (Outcome, error) {
	return p.add(tx, true)
}

// AddRemoteRLP admits a wire-encoded transaction received from the network,
// the hot path a sentry/fetch layer actually drives. It parses a TxSlot
// first — a flyweight extraction of just the fields needed to reject a
// known-duplicate or gas-starved transaction without paying for a full
// Transaction allocation — and only decodes the full envelope once the
// cheap checks pass.
func (p *Pool) AddRemoteRLP(raw []byte) (Outcome, error) {
	if p.closed.Load() {
		return Closed, ErrPoolClosed
	}

	var slot types.TxSlot
	sender := make([]byte, 20)
	p.parseMu.Lock()
	_, err := p.parseCtx.ParseTransaction(raw, 0, &slot, sender)
	p.parseMu.Unlock()
	if err != nil {
		metrics.Rejected.WithLabelValues("malformed_rlp").Inc()
		return Malformed, err
	}
	metrics.CompressedSize.Observe(float64(slot.FastLzSize))

	p.mu.RLock()
	_, known := p.byHash[common.Hash(slot.IDHash)]
	p.mu.RUnlock()
	if known {
		metrics.Rejected.WithLabelValues("already_known").Inc()
		return AlreadyKnown, ErrAlreadyKnown
	}

	if slot.Gas < intrinsicGasFromSlot(&slot) {
		metrics.Rejected.WithLabelValues("intrinsic_gas").Inc()
		return IntrinsicGasTooLow, ErrIntrinsicGasExceedsLimit
	}

	tx, err := types.Decode(raw)
	if err != nil {
		metrics.Rejected.WithLabelValues("malformed_rlp").Inc()
		return Malformed, err
	}
	return p.add(tx, false)
}

// intrinsicGasFromSlot recomputes the intrinsic-gas formula (spec §7,
// EIP-2028/EIP-2930) directly off a TxSlot's already-counted payload and
// access-list bytes, so AddRemoteRLP can reject a gas-starved transaction
// before paying for a full Transaction decode.
func intrinsicGasFromSlot(slot *types.TxSlot) uint64 {
	gas := fixedgas.TxGas
	if slot.Creation {
		gas = fixedgas.TxGasContractCreation
	}
	zeroLen := uint64(slot.DataLen - slot.DataNonZeroLen)
	gas += uint64(slot.DataNonZeroLen) * fixedgas.TxDataNonZeroGasEIP2028
	gas += zeroLen * fixedgas.TxDataZeroGas
	gas += uint64(slot.AlAddrCount) * fixedgas.TxAccessListAddressGas
	gas += uint64(slot.AlStorCount) * fixedgas.TxAccessListStorageKeyGas
	return gas
}

func (p *Pool) add(tx types.Transaction, local bool) (Outcome, error) {
	if p.closed.Load() {
		return Closed, ErrPoolClosed
	}
	hash := tx.Hash()

	p.mu.Lock()
	if _, known := p.byHash[hash]; known {
		p.mu.Unlock()
		metrics.Rejected.WithLabelValues("already_known").Inc()
		return AlreadyKnown, ErrAlreadyKnown
	}

	sender, err := tx.Sender(&p.chainID)
	if err != nil {
		p.mu.Unlock()
		metrics.Rejected.WithLabelValues("bad_signature").Inc()
		return Malformed, err
	}

	if tx.IntrinsicGas() > tx.GetGasLimit() {
		p.mu.Unlock()
		metrics.Rejected.WithLabelValues("intrinsic_gas").Inc()
		return IntrinsicGasTooLow, ErrIntrinsicGasExceedsLimit
	}

	senderState, ok := p.bySender[sender]
	if !ok {
		senderState = newPerSenderState()
		p.bySender[sender] = senderState
	}

	var evictedOld *TransactionInfo
	if old, exists := senderState.get(tx.GetNonce()); exists {
		if !admitsReplacement(old.Tx, tx, p.cfg.PriceBump) {
			p.mu.Unlock()
			metrics.Rejected.WithLabelValues("underpriced_replacement").Inc()
			return UnderpricedReplacement, ErrUnderpricedReplacement
		}
		p.removeLocked(old)
		evictedOld = old
	}

	p.sequence++
	ti := &TransactionInfo{
		Tx:            tx,
		ReceivedLocal: local,
		AddedAt:       time.Now(),
		Sequence:      p.sequence,
	}
	ti.inStaticRange = isStaticEligible(tx, p.baseFee)

	p.byHash[hash] = ti
	senderState.set(tx.GetNonce(), ti)
	p.rangeFor(ti).insert(ti)

	var evictedByCapacity *TransactionInfo
	if len(p.byHash) > p.cfg.PendingPoolLimit {
		evictedByCapacity = p.evictLowestPriorityLocked()
	}
	p.reportSizesLocked()
	p.mu.Unlock()

	if evictedOld != nil {
		metrics.Replaced.Inc()
		p.dropped.notify(evictedOld.Tx)
	}

	// ti itself was the global lowest-priority entry and got evicted right
	// back out under capacity pressure (§4.5.4: "equivalent to rejecting
	// low-priority admissions under pressure"). It never meaningfully
	// entered the pool, so no on_added fires and the caller is told it was
	// rejected, not admitted.
	if evictedByCapacity == ti {
		metrics.Rejected.WithLabelValues("capacity_underpriced").Inc()
		return Underpriced, ErrUnderpriced
	}

	if evictedByCapacity != nil {
		metrics.EvictedCapacity.Inc()
		p.dropped.notify(evictedByCapacity.Tx)
	}
	metrics.Added.Inc()
	p.added.notify(tx)
	return Added, nil
}

// reportSizesLocked refreshes the pool-size gauges. Must be called with mu
// held (read or write).
func (p *Pool) reportSizesLocked() {
	metrics.PoolSize.Set(float64(len(p.byHash)))
	metrics.StaticRangeSize.Set(float64(p.static.len()))
	metrics.DynamicRangeSize.Set(float64(p.dynamic.len()))
}

func (p *Pool) rangeFor(ti *TransactionInfo) *orderedRange {
	if ti.inStaticRange {
		return p.static
	}
	return p.dynamic
}

// admitsReplacement implements §4.5.3: a same-(sender,nonce) admission must
// clear the price-bump threshold over the incumbent, with a FeeMarket
// transaction judged against a synthesized max_priority=max_fee=gas_price
// when the incumbent is Legacy/AccessList.
func admitsReplacement(old, newTx types.Transaction, bumpPct uint64) bool {
	bump := func(v uint64) uint64 { return v + (v*bumpPct)/100 }

	if newTx.Type() != types.FeeMarketTxType {
		return newTx.GasPrice().Uint64() >= bump(old.GasPrice().Uint64())
	}

	oldTip, oldCap := old.Tip().Uint64(), old.FeeCap().Uint64()
	if old.Type() != types.FeeMarketTxType {
		oldTip, oldCap = old.GasPrice().Uint64(), old.GasPrice().Uint64()
	}
	return newTx.Tip().Uint64() >= bump(oldTip) && newTx.FeeCap().Uint64() >= bump(oldCap)
}

// evictLowestPriorityLocked drops the lower-priority tail of whichever
// range has the smaller effective priority at the current base fee (the
// static tail on a tie), per §4.5.4; when one tail is local and the other
// remote, the remote one is dropped. Must be called with mu held.
func (p *Pool) evictLowestPriorityLocked() *TransactionInfo {
	staticTail := p.static.tail()
	dynamicTail := p.dynamic.tail()

	var victim *TransactionInfo
	switch {
	case staticTail == nil:
		victim = dynamicTail
	case dynamicTail == nil:
		victim = staticTail
	case staticTail.ReceivedLocal != dynamicTail.ReceivedLocal:
		if staticTail.ReceivedLocal {
			victim = dynamicTail
		} else {
			victim = staticTail
		}
	default:
		sp := effectivePriority(staticTail.Tx, p.baseFee)
		dp := effectivePriority(dynamicTail.Tx, p.baseFee)
		if sp <= dp {
			victim = staticTail
		} else {
			victim = dynamicTail
		}
	}
	if victim == nil {
		return nil
	}
	p.removeLocked(victim)
	return victim
}

// RemoveByHash removes a transaction from all indices. If forBlockInclusion
// is set, on_dropped is not fired (the transaction left the pool because it
// was mined, not because it was rejected).
func (p *Pool) RemoveByHash(hash common.Hash, forBlockInclusion bool) bool {
	p.mu.Lock()
	ti, ok := p.byHash[hash]
	if !ok {
		p.mu.Unlock()
		return false
	}
	p.removeLocked(ti)
	p.reportSizesLocked()
	p.mu.Unlock()

	if !forBlockInclusion {
		p.dropped.notify(ti.Tx)
	}
	return true
}

// removeLocked deletes ti from by_hash, its sender's state and its current
// range. Must be called with mu held.
func (p *Pool) removeLocked(ti *TransactionInfo) {
	hash := ti.Tx.Hash()
	delete(p.byHash, hash)
	p.rangeFor(ti).remove(ti)

	sender, err := ti.Tx.Sender(&p.chainID)
	if err != nil {
		return
	}
	if senderState, ok := p.bySender[sender]; ok {
		senderState.delete(ti.Tx.GetNonce())
		if senderState.empty() {
			delete(p.bySender, sender)
		}
	}
}

// Select iterates transactions in priority order, grouping by sender so
// each sender's nonces are offered strictly ascending, per §4.5: each
// sender contributes only its lowest not-yet-decided nonce to the
// candidate heap at any moment, the same shape as go-ethereum's
// TransactionsByPriceAndNonce (Shift advances a sender to its next nonce
// on Keep; Pop discards the rest of that sender's queue on
// DropAndContinue, since a later nonce can never execute before one that
// was just rejected). Drops are batched and applied after iteration ends.
func (p *Pool) Select(f func(*TransactionInfo) Decision) {
	p.mu.Lock()

	pending := make(map[common.Address][]*TransactionInfo, len(p.bySender))
	for sender, senderState := range p.bySender {
		nonces := make([]uint64, 0, len(senderState.byNonce))
		for n := range senderState.byNonce {
			nonces = append(nonces, n)
		}
		sort.Slice(nonces, func(i, j int) bool { return nonces[i] < nonces[j] })
		entries := make([]*TransactionInfo, len(nonces))
		for i, n := range nonces {
			entries[i] = senderState.byNonce[n]
		}
		pending[sender] = entries
	}

	h := &priorityHeap{baseFee: p.baseFee}
	for sender, entries := range pending {
		if len(entries) == 0 {
			continue
		}
		h.items = append(h.items, entries[0])
		pending[sender] = entries[1:]
	}
	heap.Init(h)

	var toDrop []*TransactionInfo
loop:
	for h.Len() > 0 {
		ti := h.items[0]
		sender, err := ti.Tx.Sender(&p.chainID)
		if err != nil {
			heap.Pop(h)
			continue
		}

		switch f(ti) {
		case Keep:
			heap.Pop(h)
			if rest := pending[sender]; len(rest) > 0 {
				heap.Push(h, rest[0])
				pending[sender] = rest[1:]
			}
		case DropAndContinue:
			toDrop = append(toDrop, ti)
			heap.Pop(h)
		default: // Stop
			break loop
		}
	}

	for _, ti := range toDrop {
		p.removeLocked(ti)
	}
	p.reportSizesLocked()
	p.mu.Unlock()

	if len(toDrop) > 0 {
		metrics.DroppedDuringSelect.Add(float64(len(toDrop)))
	}
	for _, ti := range toDrop {
		p.dropped.notify(ti.Tx)
	}
}

// UpdateBaseFee re-partitions entries between the static and dynamic
// ranges per §4.5.2, a no-op if the value is unchanged.
func (p *Pool) UpdateBaseFee(newBaseFee uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer func() { metrics.BaseFee.Set(float64(newBaseFee)) }()
	defer p.reportSizesLocked()

	if newBaseFee == p.baseFee {
		return
	}

	if newBaseFee > p.baseFee {
		var toMove []*TransactionInfo
		p.static.ascend(func(ti *TransactionInfo) bool {
			if !isStaticEligible(ti.Tx, newBaseFee) {
				toMove = append(toMove, ti)
			}
			return true
		})
		for _, ti := range toMove {
			p.static.remove(ti)
			ti.inStaticRange = false
		}
		p.baseFee = newBaseFee
		for _, ti := range toMove {
			p.dynamic.insert(ti)
		}
		return
	}

	var toMove []*TransactionInfo
	p.dynamic.ascend(func(ti *TransactionInfo) bool {
		if ti.Tx.Type() == types.FeeMarketTxType && isStaticEligible(ti.Tx, newBaseFee) {
			toMove = append(toMove, ti)
		}
		return true
	})
	for _, ti := range toMove {
		p.dynamic.remove(ti)
		ti.inStaticRange = true
	}
	p.baseFee = newBaseFee
	for _, ti := range toMove {
		p.static.insert(ti)
	}
}

// NextNonce returns one past the highest contiguous nonce held for sender,
// or (0, false) if the pool holds no transaction from them.
func (p *Pool) NextNonce(sender common.Address) (uint64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	senderState, ok := p.bySender[sender]
	if !ok {
		return 0, false
	}
	return senderState.nextNonce()
}

// Contains reports whether hash is currently in the pool.
func (p *Pool) Contains(hash common.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byHash[hash]
	return ok
}

// Get returns the entry for hash, if present.
func (p *Pool) Get(hash common.Hash) (*TransactionInfo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ti, ok := p.byHash[hash]
	return ti, ok
}

// Size returns the number of transactions currently held.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byHash)
}

// EvictOld drops every entry whose AddedAt precedes the retention window,
// per §4.5.5. It is the body a scheduled background task invokes.
func (p *Pool) EvictOld() {
	cutoff := time.Now().Add(-time.Duration(p.cfg.RetentionHours) * time.Hour)

	p.mu.Lock()
	var stale []*TransactionInfo
	for _, ti := range p.byHash {
		if ti.AddedAt.Before(cutoff) {
			stale = append(stale, ti)
		}
	}
	for _, ti := range stale {
		p.removeLocked(ti)
	}
	p.reportSizesLocked()
	p.mu.Unlock()

	metrics.EvictedAged.Add(float64(len(stale)))
	for _, ti := range stale {
		p.dropped.notify(ti.Tx)
	}
}

// NoteAnnouncement records that hash has just been seen, returning true if
// it had already been recorded (and should therefore not be re-announced).
func (p *Pool) NoteAnnouncement(hash common.Hash) bool {
	return p.announced.seen(hash)
}

func (p *Pool) SubscribeAdded(l Listener) uuid.UUID   { return p.added.subscribe(l) }
func (p *Pool) UnsubscribeAdded(id uuid.UUID)         { p.added.unsubscribe(id) }
func (p *Pool) SubscribeDropped(l Listener) uuid.UUID { return p.dropped.subscribe(l) }
func (p *Pool) UnsubscribeDropped(id uuid.UUID)       { p.dropped.unsubscribe(id) }

// Close stops the pool from admitting further transactions. Already-held
// transactions remain queryable and selectable; it does not stop a
// Scheduler driving EvictOld against this pool, which callers should stop
// separately.
func (p *Pool) Close() {
	p.closed.Store(true)
}
