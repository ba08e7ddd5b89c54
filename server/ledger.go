package server

import (
	"sync"

	"github.com/get402/get402-go/address"
)

type account struct {
	app    address.Address
	client address.Address
}

// Ledger tracks credit balances per (app, client) pair. It is the sole
// arbiter of balance ordering: concurrent charges race here under one lock
// and each either fully applies or leaves the balance untouched.
type Ledger struct {
	mu       sync.Mutex
	balances map[account]uint64
}

func NewLedger() *Ledger {
	return &Ledger{balances: map[account]uint64{}}
}

// Balance returns the current balance. Unknown accounts have balance zero.
func (l *Ledger) Balance(app, client address.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account{app, client}]
}

// Credit adds credits to an account, creating it if needed, and returns the
// new balance.
func (l *Ledger) Credit(app, client address.Address, credits uint64) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc := account{app, client}
	l.balances[acc] += credits
	return l.balances[acc]
}

// Charge deducts credits. When the balance cannot cover the charge nothing
// is deducted and the shortfall is returned.
func (l *Ledger) Charge(app, client address.Address, credits uint64) (balance uint64, shortfall uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc := account{app, client}
	bal := l.balances[acc]
	if bal < credits {
		return bal, credits - bal
	}
	l.balances[acc] = bal - credits
	return bal - credits, 0
}
