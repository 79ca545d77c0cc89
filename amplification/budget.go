package amplification

import "sync"

// amplificationFactor is the multiplier RFC 9000 Section 8.1 allows a
// server to send before the client's address is validated.
const amplificationFactor = 3

// Budget tracks the outbound-byte cap imposed by the anti-amplification
// limit: a server may send at most 3 times the number of bytes it has
// received from a client whose address is not yet validated. Once the
// address is validated (handshake completion, or a received Handshake-level
// packet per RFC 9000 Section 8.1), the limit no longer applies.
type Budget struct {
	mu        sync.Mutex
	validated uint64 // cumulative validated inbound bytes
	spent     uint64 // cumulative outbound bytes sent under the limit
	unlocked  bool   // true once the peer's address has been validated
}

// NewBudget returns a zeroed Budget.
func NewBudget() *Budget {
	return &Budget{}
}

// AddValidatedBytes records n additional validated inbound bytes, raising
// the outbound limit by 3n. Every inbound datagram byte counts here,
// including bytes from datagrams that later fail packet-level validation
// (see amplification.Filter).
func (b *Budget) AddValidatedBytes(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.validated += uint64(n)
}

// Limit returns the current outbound byte cap: 3x the validated inbound
// bytes seen so far.
func (b *Budget) Limit() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint64(amplificationFactor) * b.validated
}

// Remaining returns how many more outbound bytes may be sent before hitting
// the limit, or an arbitrarily large value once the address is validated.
func (b *Budget) Remaining() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.unlocked {
		return ^uint64(0)
	}
	limit := uint64(amplificationFactor) * b.validated
	if b.spent >= limit {
		return 0
	}
	return limit - b.spent
}

// CanSend reports whether n more outbound bytes may be sent without
// exceeding the limit.
func (b *Budget) CanSend(n int) bool {
	return uint64(n) <= b.Remaining()
}

// Spend records n outbound bytes sent against the budget. Callers must have
// already checked CanSend; Spend does not clamp or reject.
func (b *Budget) Spend(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.spent += uint64(n)
}

// ValidateAddress lifts the anti-amplification limit entirely, once the
// client's address has been confirmed (handshake completion, or receipt of
// a Handshake-level packet).
func (b *Budget) ValidateAddress() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unlocked = true
}
