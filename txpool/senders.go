package txpool

// perSenderState maps nonce -> *TransactionInfo for one sender, tracking
// just enough to answer next_nonce() without a full scan on the hot path.
type perSenderState struct {
	byNonce map[uint64]*TransactionInfo
}

func newPerSenderState() *perSenderState {
	return &perSenderState{byNonce: make(map[uint64]*TransactionInfo)}
}

func (s *perSenderState) get(nonce uint64) (*TransactionInfo, bool) {
	ti, ok := s.byNonce[nonce]
	return ti, ok
}

func (s *perSenderState) set(nonce uint64, ti *TransactionInfo) {
	s.byNonce[nonce] = ti
}

func (s *perSenderState) delete(nonce uint64) {
	delete(s.byNonce, nonce)
}

func (s *perSenderState) empty() bool {
	return len(s.byNonce) == 0
}

// minNonce returns the lowest nonce held by this sender, or (0, false) if
// the sender holds no entries at all. This is the nonce Select must offer
// first, regardless of where priority ordering happens to surface it.
func (s *perSenderState) minNonce() (uint64, bool) {
	if len(s.byNonce) == 0 {
		return 0, false
	}
	min := ^uint64(0)
	for n := range s.byNonce {
		if n < min {
			min = n
		}
	}
	return min, true
}

// nextNonce returns one past the highest contiguous nonce held by this
// sender, or (0, false) if the sender holds no entries at all.
func (s *perSenderState) nextNonce() (uint64, bool) {
	min, ok := s.minNonce()
	if !ok {
		return 0, false
	}
	n := min
	for {
		if _, ok := s.byNonce[n+1]; !ok {
			return n + 1, true
		}
		n++
	}
}
