// Package ledger holds per-vehicle account balances for one simulation run.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// DefaultStartingBalance is credited to every account when a ledger is created.
const DefaultStartingBalance = 100.0

// ErrInvalidLedger is returned for a bad starting balance or duplicate ids.
var ErrInvalidLedger = errors.New("invalid ledger")

type account struct {
	mu      sync.Mutex
	balance float64
}

// Ledger is the authoritative store of balances. The set of accounts is
// fixed at construction; each account carries its own lock so charges for
// different vehicles never contend.
type Ledger struct {
	accounts map[int]*account
}

// New opens one account per id, each holding startingBalance.
func New(ids []int, startingBalance float64) (*Ledger, error) {
	if math.IsNaN(startingBalance) || math.IsInf(startingBalance, 0) || startingBalance < 0 {
		return nil, fmt.Errorf("starting balance must be a finite value >= 0, got %v: %w", startingBalance, ErrInvalidLedger)
	}
	l := &Ledger{accounts: make(map[int]*account, len(ids))}
	for _, id := range ids {
		if _, dup := l.accounts[id]; dup {
			return nil, fmt.Errorf("duplicate account id %d: %w", id, ErrInvalidLedger)
		}
		l.accounts[id] = &account{balance: startingBalance}
	}
	return l, nil
}

// AttemptCharge debits amount from the account if the balance covers it.
// On failure the balance is left untouched. Unknown ids and negative or
// non-finite amounts always fail.
func (l *Ledger) AttemptCharge(id int, amount float64) bool {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return false
	}
	a, ok := l.accounts[id]
	if !ok {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.balance < amount {
		return false
	}
	a.balance -= amount
	return true
}

// Balance returns the current balance for id.
func (l *Ledger) Balance(id int) (float64, bool) {
	a, ok := l.accounts[id]
	if !ok {
		return 0, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance, true
}

// Balances returns a snapshot of every balance.
func (l *Ledger) Balances() map[int]float64 {
	out := make(map[int]float64, len(l.accounts))
	for id := range l.accounts {
		out[id], _ = l.Balance(id)
	}
	return out
}
