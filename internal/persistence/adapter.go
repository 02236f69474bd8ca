// Package persistence serializes the ledger and the theme preference into
// two independent key-value slots.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"money/internal/core"
	"money/internal/ledger"
	"money/internal/log"
	"money/internal/storage"
)

const (
	DefaultLedgerKey = "moneyManagerData"
	DefaultThemeKey  = "theme"

	dateLayout = "2006-01-02T15:04:05.000Z07:00"
)

// StorageError reports a failed read or write of a slot, or a slot whose
// content could not be decoded.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == core.ErrStorage }

type snapshot struct {
	Balance      core.Money `json:"balance"`
	Transactions []record   `json:"transactions"`
	Timestamp    int64      `json:"timestamp"`
}

type record struct {
	ID          int64      `json:"id"`
	Type        string     `json:"type"`
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
	Date        string     `json:"date"`
}

type Adapter struct {
	store     storage.Store
	ledgerKey string
	themeKey  string
	now       func() time.Time
	logger    *log.Logger
}

type Option func(*Adapter)

// WithKeys overrides the slot names. Empty values keep the defaults.
func WithKeys(ledgerKey, themeKey string) Option {
	return func(a *Adapter) {
		if ledgerKey != "" {
			a.ledgerKey = ledgerKey
		}
		if themeKey != "" {
			a.themeKey = themeKey
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(a *Adapter) { a.logger = l.WithComponent(log.ComponentPersistence) }
}

func New(store storage.Store, opts ...Option) *Adapter {
	a := &Adapter{
		store:     store,
		ledgerKey: DefaultLedgerKey,
		themeKey:  DefaultThemeKey,
		now:       time.Now,
		logger:    log.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) LedgerKey() string { return a.ledgerKey }
func (a *Adapter) ThemeKey() string  { return a.themeKey }

// Save writes the whole ledger to the ledger slot.
func (a *Adapter) Save(ctx context.Context, l *ledger.Ledger) error {
	data, err := Encode(l, a.now())
	if err != nil {
		return &StorageError{Op: "encode", Key: a.ledgerKey, Err: err}
	}
	if err := a.store.Set(ctx, a.ledgerKey, string(data)); err != nil {
		return &StorageError{Op: "save", Key: a.ledgerKey, Err: err}
	}
	a.logger.DebugContext(ctx, "Ledger saved",
		log.FieldStoreKey, a.ledgerKey,
		"transactions", l.Len(),
		log.FieldBalanceCents, l.Balance().Cents)
	return nil
}

// Load reads the ledger slot. found is false, with a nil error, when the
// slot has never been written.
func (a *Adapter) Load(ctx context.Context) (*ledger.Ledger, bool, error) {
	raw, found, err := a.store.Get(ctx, a.ledgerKey)
	if err != nil {
		return nil, false, &StorageError{Op: "load", Key: a.ledgerKey, Err: err}
	}
	if !found {
		return nil, false, nil
	}

	l, stored, err := Decode([]byte(raw))
	if err != nil {
		return nil, false, &StorageError{Op: "decode", Key: a.ledgerKey, Err: err}
	}
	if stored != l.Balance() {
		a.logger.WarnContext(ctx, "Stored balance differs from transactions, using derived balance",
			"stored_cents", stored.Cents,
			"derived_cents", l.Balance().Cents)
	}
	return l, true, nil
}

func (a *Adapter) SaveTheme(ctx context.Context, t core.Theme) error {
	if err := a.store.Set(ctx, a.themeKey, string(t)); err != nil {
		return &StorageError{Op: "save", Key: a.themeKey, Err: err}
	}
	return nil
}

// LoadTheme returns light when the slot is empty or holds an unknown value.
func (a *Adapter) LoadTheme(ctx context.Context) (core.Theme, error) {
	raw, found, err := a.store.Get(ctx, a.themeKey)
	if err != nil {
		return core.ThemeLight, &StorageError{Op: "load", Key: a.themeKey, Err: err}
	}
	if !found {
		return core.ThemeLight, nil
	}
	return core.ParseTheme(raw), nil
}

// Encode renders l in the slot format, stamped with at.
func Encode(l *ledger.Ledger, at time.Time) ([]byte, error) {
	txs := l.Transactions()
	snap := snapshot{
		Balance:      l.Balance(),
		Transactions: make([]record, 0, len(txs)),
		Timestamp:    at.UnixMilli(),
	}
	for _, t := range txs {
		snap.Transactions = append(snap.Transactions, record{
			ID:          t.ID,
			Type:        string(t.Kind),
			Amount:      t.Amount,
			Description: t.Description,
			Date:        t.CreatedAt.UTC().Format(dateLayout),
		})
	}
	return json.Marshal(snap)
}

// Decode parses the slot format and rebuilds the ledger. It also returns the
// balance as stored so callers can detect drift.
func Decode(data []byte) (*ledger.Ledger, core.Money, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, core.Money{}, fmt.Errorf("parse ledger: %w", err)
	}

	txs := make([]core.Transaction, 0, len(snap.Transactions))
	for i, r := range snap.Transactions {
		kind, err := core.ParseKind(r.Type)
		if err != nil {
			return nil, core.Money{}, fmt.Errorf("transaction %d: %w", i, err)
		}
		at, err := time.Parse(time.RFC3339Nano, r.Date)
		if err != nil {
			return nil, core.Money{}, fmt.Errorf("transaction %d: bad date %q: %w", i, r.Date, errors.Join(core.ErrValidation, err))
		}
		txs = append(txs, core.Transaction{
			ID:          r.ID,
			Kind:        kind,
			Amount:      r.Amount,
			Description: r.Description,
			CreatedAt:   at,
		})
	}

	l, err := ledger.Restore(txs)
	if err != nil {
		return nil, core.Money{}, err
	}
	return l, snap.Balance, nil
}
