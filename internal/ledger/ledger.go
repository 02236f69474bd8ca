// Package ledger holds the running balance and the ordered transaction list.
//
// A Ledger is not safe for concurrent use. Callers serialize access the same
// way they serialize user input.
package ledger

import (
	"fmt"
	"time"

	"money/internal/core"
)

type Ledger struct {
	balance      core.Money
	transactions []core.Transaction // newest first
	lastID       int64
	revision     uint64
}

func New() *Ledger {
	return &Ledger{}
}

// Restore rebuilds a ledger from persisted transactions, given newest first.
// The balance is always derived from the transactions.
func Restore(txs []core.Transaction) (*Ledger, error) {
	l := New()
	seen := make(map[int64]struct{}, len(txs))
	for i, t := range txs {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("transaction %d (id %d): %w", i, t.ID, err)
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("transaction %d: duplicate id %d: %w", i, t.ID, core.ErrValidation)
		}
		seen[t.ID] = struct{}{}
		if t.ID > l.lastID {
			l.lastID = t.ID
		}
	}
	l.transactions = append([]core.Transaction(nil), txs...)
	l.balance = core.Summarize(l.transactions).Balance
	return l, nil
}

// Add validates and records a transaction at time at.
//
// Checks run in order: kind, amount, description, then for expenses the
// balance. An expense equal to the balance is allowed.
func (l *Ledger) Add(kind core.Kind, amount core.Money, description string, at time.Time) (core.Transaction, error) {
	if !kind.Valid() {
		return core.Transaction{}, core.ErrInvalidKind
	}
	if err := amount.Validate(); err != nil {
		return core.Transaction{}, err
	}
	desc, err := core.ValidateDescription(description)
	if err != nil {
		return core.Transaction{}, err
	}
	if kind == core.Expense && amount.Cents > l.balance.Cents {
		return core.Transaction{}, core.ErrInsufficientFunds
	}

	id := at.UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	t := core.Transaction{
		ID:          id,
		Kind:        kind,
		Amount:      amount,
		Description: desc,
		CreatedAt:   at,
	}
	l.lastID = id
	l.balance = l.balance.Add(t.Signed())
	l.transactions = append([]core.Transaction{t}, l.transactions...)
	l.revision++
	return t, nil
}

// Remove deletes the transaction with the given id and reverses its effect
// on the balance.
func (l *Ledger) Remove(id int64) (core.Transaction, error) {
	for i, t := range l.transactions {
		if t.ID != id {
			continue
		}
		l.transactions = append(l.transactions[:i:i], l.transactions[i+1:]...)
		l.balance = l.balance.Sub(t.Signed())
		l.revision++
		return t, nil
	}
	return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
}

func (l *Ledger) Find(id int64) (core.Transaction, bool) {
	for _, t := range l.transactions {
		if t.ID == id {
			return t, true
		}
	}
	return core.Transaction{}, false
}

func (l *Ledger) Stats() core.Stats {
	s := core.Summarize(l.transactions)
	s.Balance = l.balance
	return s
}

// Filtered returns the transactions matching f, newest first.
func (l *Ledger) Filtered(f core.Filter) []core.Transaction {
	out := make([]core.Transaction, 0, len(l.transactions))
	for _, t := range l.transactions {
		if f.Matches(t.Kind) {
			out = append(out, t)
		}
	}
	return out
}

// Transactions returns a copy of every transaction, newest first.
func (l *Ledger) Transactions() []core.Transaction {
	return append([]core.Transaction(nil), l.transactions...)
}

func (l *Ledger) Balance() core.Money { return l.balance }
func (l *Ledger) Len() int            { return len(l.transactions) }

// Revision changes on every successful mutation.
func (l *Ledger) Revision() uint64 { return l.revision }
