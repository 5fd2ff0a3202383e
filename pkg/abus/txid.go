package abus

import "sync"

// TransactionIDGenerator hands out wrapping 16-bit transaction ids for
// requests whose destination has no configured password.
//
// spec.md's design notes call this out explicitly as a protocol quirk, not
// a bug: controllers that are assigned a password use it directly as the
// transaction id of every exchange (PlcClient._create_request in the
// original); only password-less destinations draw from this generator.
// Keep both code paths next to each other so the quirk stays visible.
type TransactionIDGenerator struct {
	mu   sync.Mutex
	next uint16
}

// NewTransactionIDGenerator creates a generator starting at the given value.
func NewTransactionIDGenerator(start uint16) *TransactionIDGenerator {
	return &TransactionIDGenerator{next: start}
}

// Next returns the next transaction id and advances the counter, wrapping
// at 0xFFFF.
func (g *TransactionIDGenerator) Next() uint16 {
	g.mu.Lock()
	defer g.mu.Unlock()
	v := g.next
	g.next++
	return v
}

// TransactionIDFor implements the password-or-generator rule in one place:
// callers should never inline this decision elsewhere.
func TransactionIDFor(password *int, gen *TransactionIDGenerator) uint16 {
	if password != nil {
		return uint16(*password)
	}
	return gen.Next()
}
