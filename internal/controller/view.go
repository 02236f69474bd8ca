package controller

import (
	"time"

	"money/internal/core"
)

// View is a snapshot of everything a presentation layer draws.
type View struct {
	State        State
	ModalKind    core.Kind
	Form         Form
	Filter       core.Filter
	Theme        core.Theme
	Currency     string
	Balance      core.Money
	Transactions []core.Transaction
	Stats        core.Stats
	Revision     uint64
	Notification Notification
	Notifying    bool
	// Remaining is how long the active notification stays visible.
	Remaining time.Duration
}

func (c *Controller) View() View {
	n, ok := c.Notification()
	return View{
		State:        c.state,
		ModalKind:    c.modalKind,
		Form:         c.form,
		Filter:       c.filter,
		Theme:        c.theme,
		Currency:     c.currency,
		Balance:      c.ledger.Balance(),
		Transactions: c.ledger.Transactions(),
		Stats:        c.ledger.Stats(),
		Revision:     c.revision,
		Notification: n,
		Notifying:    ok,
		Remaining:    n.Remaining(c.now()),
	}
}
