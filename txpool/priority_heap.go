package txpool

import "container/heap"

// priorityHeap orders the current "head" candidate of each sender by
// selection priority at a fixed base fee: received-local first, then
// higher effective priority fee, then earlier sequence (first-received)
// on ties — mirroring the merge rule of §4.5.1/§4.5's select().
//
// Mirrors the classic price-heap used to drive nonce-honouring block
// assembly: Len/Less/Swap/Push/Pop satisfy container/heap.Interface so
// Select can repeatedly pop the best candidate and push back the next
// nonce from the same sender.
type priorityHeap struct {
	items   []*TransactionInfo
	baseFee uint64
}

func (h *priorityHeap) Len() int { return len(h.items) }

func (h *priorityHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.ReceivedLocal != b.ReceivedLocal {
		return a.ReceivedLocal
	}
	pa := effectivePriority(a.Tx, h.baseFee)
	pb := effectivePriority(b.Tx, h.baseFee)
	if pa != pb {
		return pa > pb
	}
	return a.Sequence < b.Sequence
}

func (h *priorityHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *priorityHeap) Push(x any) { h.items = append(h.items, x.(*TransactionInfo)) }

func (h *priorityHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return item
}

var _ heap.Interface = (*priorityHeap)(nil)
