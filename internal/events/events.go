// Package events describes ledger change notifications and the publisher
// port they are sent through. Events are fire-and-forget: nothing reads
// them back into a ledger.
package events

import (
	"context"
	"encoding/json"
	"time"

	"money/internal/core"
)

type Type string

const (
	TransactionAdded   Type = "transaction.added"
	TransactionRemoved Type = "transaction.removed"
	ThemeChanged       Type = "theme.changed"
)

// Event is a committed change. Transaction fields are empty for theme
// changes and Theme is empty for transaction events.
type Event struct {
	Type          Type        `json:"type"`
	TransactionID int64       `json:"transaction_id,omitempty"`
	Kind          core.Kind   `json:"kind,omitempty"`
	Amount        *core.Money `json:"amount,omitempty"`
	Description   string      `json:"description,omitempty"`
	Balance       core.Money  `json:"balance"`
	Theme         core.Theme  `json:"theme,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
}

func NewTransactionAdded(t core.Transaction, balance core.Money, at time.Time) Event {
	return newTransactionEvent(TransactionAdded, t, balance, at)
}

func NewTransactionRemoved(t core.Transaction, balance core.Money, at time.Time) Event {
	return newTransactionEvent(TransactionRemoved, t, balance, at)
}

func newTransactionEvent(typ Type, t core.Transaction, balance core.Money, at time.Time) Event {
	amount := t.Amount
	return Event{
		Type:          typ,
		TransactionID: t.ID,
		Kind:          t.Kind,
		Amount:        &amount,
		Description:   t.Description,
		Balance:       balance,
		Timestamp:     at.UTC(),
	}
}

func NewThemeChanged(theme core.Theme, balance core.Money, at time.Time) Event {
	return Event{
		Type:      ThemeChanged,
		Theme:     theme,
		Balance:   balance,
		Timestamp: at.UTC(),
	}
}

// Key groups events for partitioned transports.
func (e Event) Key() string {
	if e.Type == ThemeChanged {
		return "theme"
	}
	return "ledger"
}

// ToJSON converts the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON creates an event from JSON bytes
func FromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
