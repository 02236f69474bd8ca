// Package controller binds user input to ledger mutations, persistence and
// notifications. One Controller serves one session; callers serialize
// access to it.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"money/internal/core"
	"money/internal/events"
	"money/internal/ledger"
	"money/internal/log"
)

type State int

const (
	Idle State = iota
	ModalOpen
)

func (s State) String() string {
	if s == ModalOpen {
		return "modal_open"
	}
	return "idle"
}

// Form holds the raw modal inputs.
type Form struct {
	Amount      string
	Description string
}

type Confirmer interface {
	Confirm(message string) bool
}

type ConfirmFunc func(message string) bool

func (f ConfirmFunc) Confirm(message string) bool { return f(message) }

// Repository persists ledger and theme changes.
type Repository interface {
	Commit(ctx context.Context, l *ledger.Ledger, e events.Event) error
	CommitTheme(ctx context.Context, theme core.Theme, e events.Event) error
	Save(ctx context.Context, l *ledger.Ledger) error
	Load(ctx context.Context) (*ledger.Ledger, bool, error)
	LoadTheme(ctx context.Context) (core.Theme, error)
}

const (
	msgSaved         = "Data saved successfully"
	msgSaveFailed    = "Failed to save data"
	msgLoaded        = "Data loaded successfully"
	msgNoData        = "No saved data found"
	msgLoadFailed    = "Failed to load data"
	msgDeleted       = "Transaction deleted"
	msgNotFound      = "Transaction not found"
	msgThemeChanged  = "Theme changed"
	msgNoModal       = "No transaction form is open"
	msgStartFallback = "Failed to load data, starting with an empty ledger"
)

type Controller struct {
	repo   Repository
	ledger *ledger.Ledger

	state     State
	modalKind core.Kind
	form      Form
	filter    core.Filter
	theme     core.Theme
	revision  uint64
	// dirty is set while the store may lack changes held in memory.
	dirty bool

	notification Notification

	now      func() time.Time
	ttl      time.Duration
	currency string
	logger   *log.Logger
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithNotificationTTL(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.ttl = d
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l.WithComponent(log.ComponentController) }
}

func WithCurrency(symbol string) Option {
	return func(c *Controller) {
		if symbol != "" {
			c.currency = symbol
		}
	}
}

// New returns an idle controller with an empty ledger. Call Start to load
// persisted state.
func New(repo Repository, opts ...Option) *Controller {
	c := &Controller{
		repo:     repo,
		ledger:   ledger.New(),
		state:    Idle,
		filter:   core.FilterAll,
		theme:    core.ThemeLight,
		now:      time.Now,
		ttl:      DefaultNotificationTTL,
		currency: "$",
		logger:   log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start loads the theme and the ledger. A failed load keeps an empty ledger
// and reports a warning.
func (c *Controller) Start(ctx context.Context) Notification {
	theme, err := c.repo.LoadTheme(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to load theme, using light", log.FieldError, err)
	}
	c.theme = theme
	if c.theme == "" {
		c.theme = core.ThemeLight
	}

	l, found, err := c.repo.Load(ctx)
	switch {
	case err != nil:
		c.logger.WarnContext(ctx, "Failed to load ledger, starting empty", log.FieldError, err)
		c.replaceLedger(ledger.New())
		return c.notify(msgStartFallback, LevelWarning)
	case !found:
		c.replaceLedger(ledger.New())
		return c.notify(msgNoData, LevelInfo)
	default:
		c.replaceLedger(l)
		return c.notify(msgLoaded, LevelSuccess)
	}
}

// OpenModal shows the form for kind with empty inputs.
func (c *Controller) OpenModal(kind core.Kind) Notification {
	if !kind.Valid() {
		return c.notify(validationMessage(core.ErrInvalidKind), LevelError)
	}
	c.state = ModalOpen
	c.modalKind = kind
	c.form = Form{}
	return Notification{}
}

// Cancel closes the modal and discards the form.
func (c *Controller) Cancel() Notification {
	c.state = Idle
	c.modalKind = ""
	c.form = Form{}
	return Notification{}
}

// Submit records the form as a transaction of the open modal's kind. On a
// validation failure the modal stays open with the inputs kept.
func (c *Controller) Submit(ctx context.Context, form Form) Notification {
	if c.state != ModalOpen {
		return c.notify(msgNoModal, LevelError)
	}
	c.form = form

	amount, err := core.ParseAmount(form.Amount)
	if err != nil {
		return c.notify(validationMessage(err), LevelError)
	}
	now := c.now()
	tx, err := c.ledger.Add(c.modalKind, amount, form.Description, now)
	if err != nil {
		return c.notify(validationMessage(err), LevelError)
	}
	c.revision++
	c.Cancel()

	if err := c.repo.Commit(ctx, c.ledger, events.NewTransactionAdded(tx, c.ledger.Balance(), now)); err != nil {
		c.logger.ErrorContext(ctx, "Failed to persist new transaction", log.FieldTxID, tx.ID, log.FieldError, err)
		c.dirty = true
		return c.notify(msgSaveFailed, LevelError)
	}
	c.dirty = false
	return c.notify(fmt.Sprintf("%s of %s added successfully", tx.Kind.Label(), tx.Amount.Format(c.currency)), LevelSuccess)
}

// Delete asks confirmer before removing the transaction with id. A declined
// or missing confirmation is a no-op.
func (c *Controller) Delete(ctx context.Context, id int64, confirmer Confirmer) Notification {
	tx, ok := c.ledger.Find(id)
	if !ok {
		return c.notify(msgNotFound, LevelError)
	}
	if confirmer == nil || !confirmer.Confirm(tx.DeletePrompt(c.currency)) {
		return Notification{}
	}
	if _, err := c.ledger.Remove(id); err != nil {
		return c.notify(msgNotFound, LevelError)
	}
	c.revision++

	if err := c.repo.Commit(ctx, c.ledger, events.NewTransactionRemoved(tx, c.ledger.Balance(), c.now())); err != nil {
		c.logger.ErrorContext(ctx, "Failed to persist removal", log.FieldTxID, id, log.FieldError, err)
		c.dirty = true
		return c.notify(msgSaveFailed, LevelError)
	}
	c.dirty = false
	return c.notify(msgDeleted, LevelSuccess)
}

// SetFilter changes which transactions the list shows.
func (c *Controller) SetFilter(f core.Filter) Notification {
	c.filter = f
	return Notification{}
}

// ToggleTheme flips the theme and saves it to its own slot.
func (c *Controller) ToggleTheme(ctx context.Context) Notification {
	c.theme = c.theme.Toggle()
	if err := c.repo.CommitTheme(ctx, c.theme, events.NewThemeChanged(c.theme, c.ledger.Balance(), c.now())); err != nil {
		c.logger.ErrorContext(ctx, "Failed to persist theme", log.FieldTheme, string(c.theme), log.FieldError, err)
		return c.notify(msgThemeChanged+", but it could not be saved", LevelWarning)
	}
	return c.notify(msgThemeChanged, LevelInfo)
}

// Save writes the ledger on demand.
func (c *Controller) Save(ctx context.Context) Notification {
	if err := c.repo.Save(ctx, c.ledger); err != nil {
		c.logger.ErrorContext(ctx, "Manual save failed", log.FieldError, err)
		c.dirty = true
		return c.notify(msgSaveFailed, LevelError)
	}
	c.dirty = false
	return c.notify(msgSaved, LevelSuccess)
}

// Load replaces the ledger with the stored one. On failure the in-memory
// ledger is kept.
func (c *Controller) Load(ctx context.Context) Notification {
	l, found, err := c.repo.Load(ctx)
	switch {
	case err != nil:
		c.logger.ErrorContext(ctx, "Manual load failed", log.FieldError, err)
		return c.notify(msgLoadFailed, LevelError)
	case !found:
		return c.notify(msgNoData, LevelInfo)
	}
	c.replaceLedger(l)
	return c.notify(msgLoaded, LevelSuccess)
}

// Close saves the ledger one last time if the store may be missing changes.
// A slot that failed to load is left as it is unless the session changed the
// ledger or saved it explicitly.
func (c *Controller) Close(ctx context.Context) error {
	if !c.dirty {
		return nil
	}
	if err := c.repo.Save(ctx, c.ledger); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	c.dirty = false
	return nil
}

// Notification returns the current notification if it has not expired.
func (c *Controller) Notification() (Notification, bool) {
	if c.notification.ActiveAt(c.now()) {
		return c.notification, true
	}
	return Notification{}, false
}

// Remaining is how long n stays visible from the controller clock's now.
func (c *Controller) Remaining(n Notification) time.Duration {
	return n.Remaining(c.now())
}

func (c *Controller) Stats() core.Stats   { return c.ledger.Stats() }
func (c *Controller) State() State        { return c.state }
func (c *Controller) Filter() core.Filter { return c.filter }
func (c *Controller) Theme() core.Theme   { return c.theme }
func (c *Controller) Currency() string    { return c.currency }

// Revision changes whenever the visible transaction list may have changed.
func (c *Controller) Revision() uint64 { return c.revision }

func (c *Controller) replaceLedger(l *ledger.Ledger) {
	c.ledger = l
	c.dirty = false
	c.revision++
}

func (c *Controller) notify(msg string, level Level) Notification {
	c.notification = Notification{
		Message:   msg,
		Level:     level,
		ExpiresAt: c.now().Add(c.ttl),
	}
	return c.notification
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Please enter a valid amount"
	case errors.Is(err, core.ErrEmptyDescription):
		return "Please enter a description"
	case errors.Is(err, core.ErrDescriptionTooLong):
		return fmt.Sprintf("Description must be at most %d characters", core.MaxDescriptionLength)
	case errors.Is(err, core.ErrInsufficientFunds):
		return "Insufficient balance"
	case errors.Is(err, core.ErrInvalidKind):
		return "Invalid transaction type"
	default:
		return err.Error()
	}
}
