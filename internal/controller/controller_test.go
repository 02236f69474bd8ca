package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"money/internal/core"
	"money/internal/events"
	"money/internal/ledger"
	"money/internal/persistence"
	"money/internal/storage/memory"
)

// flakyStore wraps a memory store and fails on demand.
type flakyStore struct {
	*memory.Store
	failGet, failSet bool
}

func (s *flakyStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.failGet {
		return "", false, errors.New("read failed")
	}
	return s.Store.Get(ctx, key)
}

func (s *flakyStore) Set(ctx context.Context, key, value string) error {
	if s.failSet {
		return errors.New("quota exceeded")
	}
	return s.Store.Set(ctx, key, value)
}

type fakeRepo struct {
	*persistence.Adapter
	events []events.Event
}

func (r *fakeRepo) Commit(ctx context.Context, l *ledger.Ledger, e events.Event) error {
	if err := r.Adapter.Save(ctx, l); err != nil {
		return err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *fakeRepo) CommitTheme(ctx context.Context, th core.Theme, e events.Event) error {
	if err := r.Adapter.SaveTheme(ctx, th); err != nil {
		return err
	}
	r.events = append(r.events, e)
	return nil
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	store *flakyStore
	repo  *fakeRepo
	clock *clock
	c     *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := &flakyStore{Store: memory.New()}
	clk := &clock{t: time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)}
	repo := &fakeRepo{Adapter: persistence.New(store, persistence.WithClock(clk.Now))}
	c := New(repo, WithClock(clk.Now))
	return &fixture{store: store, repo: repo, clock: clk, c: c}
}

func (f *fixture) add(t *testing.T, kind core.Kind, amount, desc string) Notification {
	t.Helper()
	f.c.OpenModal(kind)
	f.clock.Advance(time.Second)
	return f.c.Submit(context.Background(), Form{Amount: amount, Description: desc})
}

func expect(t *testing.T, n Notification, msg string, level Level) {
	t.Helper()
	if n.Message != msg || n.Level != level {
		t.Fatalf("notification = %q (%s), want %q (%s)", n.Message, n.Level, msg, level)
	}
}

func TestScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	expect(t, f.c.Start(ctx), "No saved data found", LevelInfo)

	expect(t, f.add(t, core.Income, "100", "Salary"), "Income of $100.00 added successfully", LevelSuccess)
	expect(t, f.add(t, core.Expense, "30", "Groceries"), "Expense of $30.00 added successfully", LevelSuccess)

	v := f.c.View()
	if v.Balance.Cents != 7000 || len(v.Transactions) != 2 || v.Transactions[0].Description != "Groceries" {
		t.Fatalf("view = %+v", v)
	}

	// overdraft is rejected and the modal stays open with the input
	n := f.add(t, core.Expense, "80", "TV")
	expect(t, n, "Insufficient balance", LevelError)
	if f.c.State() != ModalOpen || f.c.View().Form.Description != "TV" {
		t.Fatalf("state = %v form = %+v", f.c.State(), f.c.View().Form)
	}
	f.c.Cancel()

	groceries := v.Transactions[0]
	var asked string
	expect(t, f.c.Delete(ctx, groceries.ID, ConfirmFunc(func(m string) bool { asked = m; return true })), "Transaction deleted", LevelSuccess)
	if asked != "Delete expense of $30.00?" {
		t.Fatalf("confirm prompt = %q", asked)
	}
	if f.c.Stats().Balance.Cents != 10000 {
		t.Fatalf("balance = %d, want 10000", f.c.Stats().Balance.Cents)
	}

	// persisted state reloads identically
	c2 := New(f.repo, WithClock(f.clock.Now))
	expect(t, c2.Start(ctx), "Data loaded successfully", LevelSuccess)
	if c2.Stats().Balance.Cents != 10000 || c2.Stats().Count != 1 {
		t.Fatalf("reloaded stats = %+v", c2.Stats())
	}

	if len(f.repo.events) != 3 {
		t.Fatalf("events = %d, want 3", len(f.repo.events))
	}
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		desc   string
		want   string
	}{
		{"empty amount", "", "x", "Please enter a valid amount"},
		{"zero amount", "0", "x", "Please enter a valid amount"},
		{"negative amount", "-5", "x", "Please enter a valid amount"},
		{"garbage amount", "abc", "x", "Please enter a valid amount"},
		{"amount before description", "0", "", "Please enter a valid amount"},
		{"empty description", "5", "   ", "Please enter a description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.c.OpenModal(core.Income)
			before := f.c.Revision()
			n := f.c.Submit(context.Background(), Form{Amount: tt.amount, Description: tt.desc})
			expect(t, n, tt.want, LevelError)
			if f.c.State() != ModalOpen {
				t.Fatal("modal should stay open")
			}
			if f.c.View().Form != (Form{Amount: tt.amount, Description: tt.desc}) {
				t.Fatalf("form not retained: %+v", f.c.View().Form)
			}
			if f.c.Revision() != before || f.c.Stats().Count != 0 {
				t.Fatal("ledger changed on validation failure")
			}
			if _, found, _ := f.store.Store.Get(context.Background(), persistence.DefaultLedgerKey); found {
				t.Fatal("nothing should be persisted")
			}
		})
	}
}

func TestExpenseEqualToBalance(t *testing.T) {
	f := newFixture(t)
	f.add(t, core.Income, "50", "Gift")
	expect(t, f.add(t, core.Expense, "50.00", "All of it"), "Expense of $50.00 added successfully", LevelSuccess)
	if !f.c.Stats().Balance.IsZero() {
		t.Fatalf("balance = %d", f.c.Stats().Balance.Cents)
	}
}

func TestSubmitWhileIdle(t *testing.T) {
	f := newFixture(t)
	n := f.c.Submit(context.Background(), Form{Amount: "10", Description: "x"})
	expect(t, n, "No transaction form is open", LevelError)
	if f.c.Stats().Count != 0 {
		t.Fatal("ledger mutated")
	}
}

func TestModalTransitions(t *testing.T) {
	f := newFixture(t)
	if f.c.State() != Idle {
		t.Fatal("controller should start idle")
	}
	f.c.OpenModal(core.Expense)
	if f.c.State() != ModalOpen || f.c.View().ModalKind != core.Expense {
		t.Fatal("expected expense modal")
	}
	f.c.Submit(context.Background(), Form{Amount: "1", Description: ""})
	f.c.OpenModal(core.Income)
	if v := f.c.View(); v.ModalKind != core.Income || v.Form != (Form{}) {
		t.Fatalf("reopening should switch kind and clear form: %+v", v)
	}
	f.c.Cancel()
	if v := f.c.View(); v.State != Idle || v.Form != (Form{}) {
		t.Fatalf("cancel should discard the form: %+v", v)
	}
	expect(t, f.c.OpenModal(core.Kind("gift")), "Invalid transaction type", LevelError)
	if f.c.State() != Idle {
		t.Fatal("invalid kind must not open the modal")
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, core.Income, "10", "Tip")
	id := f.c.View().Transactions[0].ID

	if n := f.c.Delete(ctx, id, ConfirmFunc(func(string) bool { return false })); !n.Empty() {
		t.Fatalf("declined delete should be a no-op, got %q", n.Message)
	}
	if n := f.c.Delete(ctx, id, nil); !n.Empty() {
		t.Fatalf("missing confirmer should be a no-op, got %q", n.Message)
	}
	if f.c.Stats().Count != 1 {
		t.Fatal("transaction removed without confirmation")
	}

	expect(t, f.c.Delete(ctx, 12345, ConfirmFunc(func(string) bool { return true })), "Transaction not found", LevelError)
}

func TestFilterOnlyChangesFilter(t *testing.T) {
	f := newFixture(t)
	f.add(t, core.Income, "10", "Tip")
	before := f.c.View()
	f.c.SetFilter(core.FilterExpense)
	after := f.c.View()
	if after.Filter != core.FilterExpense {
		t.Fatalf("filter = %s", after.Filter)
	}
	if after.Balance != before.Balance || len(after.Transactions) != len(before.Transactions) || after.Revision != before.Revision {
		t.Fatal("SetFilter must not touch the ledger")
	}
}

func TestToggleTheme(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.c.Start(ctx)

	expect(t, f.c.ToggleTheme(ctx), "Theme changed", LevelInfo)
	if f.c.Theme() != core.ThemeDark {
		t.Fatalf("theme = %s", f.c.Theme())
	}
	if raw, _, _ := f.store.Store.Get(ctx, persistence.DefaultThemeKey); raw != "dark" {
		t.Fatalf("theme slot = %q", raw)
	}
	if _, found, _ := f.store.Store.Get(ctx, persistence.DefaultLedgerKey); found {
		t.Fatal("theme toggle must not write the ledger slot")
	}

	c2 := New(f.repo, WithClock(f.clock.Now))
	c2.Start(ctx)
	if c2.Theme() != core.ThemeDark {
		t.Fatal("theme not restored on start")
	}

	f.store.failSet = true
	n := f.c.ToggleTheme(ctx)
	if n.Level != LevelWarning || f.c.Theme() != core.ThemeLight {
		t.Fatalf("failed save should still flip theme: %q %s", n.Message, f.c.Theme())
	}
}

func TestSaveFailureKeepsLedger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.failSet = true

	expect(t, f.add(t, core.Income, "25", "Refund"), "Failed to save data", LevelError)
	if f.c.Stats().Balance.Cents != 2500 || f.c.State() != Idle {
		t.Fatalf("in-memory ledger must keep the change: %+v state=%v", f.c.Stats(), f.c.State())
	}
	expect(t, f.c.Save(ctx), "Failed to save data", LevelError)
	if err := f.c.Close(ctx); err == nil {
		t.Fatal("Close should report the failed final save")
	}

	f.store.failSet = false
	expect(t, f.c.Save(ctx), "Data saved successfully", LevelSuccess)
	if err := f.c.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	expect(t, f.c.Load(ctx), "No saved data found", LevelInfo)

	f.add(t, core.Income, "40", "Gift")
	expect(t, f.c.Save(ctx), "Data saved successfully", LevelSuccess)

	f.add(t, core.Income, "5", "Later")

	// corrupt the slot: load must fail and keep the in-memory ledger
	_ = f.store.Store.Set(ctx, persistence.DefaultLedgerKey, "{broken")
	expect(t, f.c.Load(ctx), "Failed to load data", LevelError)
	if f.c.Stats().Count != 2 {
		t.Fatalf("ledger replaced after failed load: %+v", f.c.Stats())
	}

	f.store.failGet = true
	expect(t, f.c.Load(ctx), "Failed to load data", LevelError)
	f.store.failGet = false

	_ = f.c.Save(ctx)
	rev := f.c.Revision()
	expect(t, f.c.Load(ctx), "Data loaded successfully", LevelSuccess)
	if f.c.Revision() == rev {
		t.Fatal("loading must change the revision")
	}
}

func TestStartFallsBackOnCorruptData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_ = f.store.Store.Set(ctx, persistence.DefaultLedgerKey, `{"transactions":[{"id":1,"type":"income","amount":0}]}`)

	expect(t, f.c.Start(ctx), "Failed to load data, starting with an empty ledger", LevelWarning)
	if f.c.Stats().Count != 0 {
		t.Fatal("expected empty ledger")
	}
}

func TestCloseKeepsUnloadableSlot(t *testing.T) {
	ctx := context.Background()
	const corrupt = `{"transactions":[{"id":1,"type":"income","amount":0}]}`

	t.Run("read only session", func(t *testing.T) {
		f := newFixture(t)
		_ = f.store.Store.Set(ctx, persistence.DefaultLedgerKey, corrupt)
		f.c.Start(ctx)
		f.c.SetFilter(core.FilterIncome)
		f.c.View()
		if err := f.c.Close(ctx); err != nil {
			t.Fatalf("Close: %v", err)
		}
		got, _, _ := f.store.Store.Get(ctx, persistence.DefaultLedgerKey)
		if got != corrupt {
			t.Fatalf("slot = %q, want %q", got, corrupt)
		}
	})

	t.Run("mutation replaces slot", func(t *testing.T) {
		f := newFixture(t)
		_ = f.store.Store.Set(ctx, persistence.DefaultLedgerKey, corrupt)
		f.c.Start(ctx)
		expect(t, f.add(t, core.Income, "10", "Fresh"), "Income of $10.00 added successfully", LevelSuccess)
		if err := f.c.Close(ctx); err != nil {
			t.Fatalf("Close: %v", err)
		}
		got, _, _ := f.store.Store.Get(ctx, persistence.DefaultLedgerKey)
		if got == corrupt {
			t.Fatal("slot should hold the new ledger")
		}
	})

	t.Run("explicit save replaces slot", func(t *testing.T) {
		f := newFixture(t)
		_ = f.store.Store.Set(ctx, persistence.DefaultLedgerKey, corrupt)
		f.c.Start(ctx)
		expect(t, f.c.Save(ctx), "Data saved successfully", LevelSuccess)
		got, _, _ := f.store.Store.Get(ctx, persistence.DefaultLedgerKey)
		if got == corrupt {
			t.Fatal("slot should hold the saved ledger")
		}
	})

	t.Run("failed commit is retried on close", func(t *testing.T) {
		f := newFixture(t)
		_ = f.store.Store.Set(ctx, persistence.DefaultLedgerKey, corrupt)
		f.c.Start(ctx)
		f.store.failSet = true
		f.add(t, core.Income, "10", "Fresh")
		f.store.failSet = false
		if err := f.c.Close(ctx); err != nil {
			t.Fatalf("Close: %v", err)
		}
		got, _, _ := f.store.Store.Get(ctx, persistence.DefaultLedgerKey)
		if got == corrupt {
			t.Fatal("final save should have written the pending change")
		}
	})
}

func TestNotificationExpires(t *testing.T) {
	f := newFixture(t)
	f.c.ToggleTheme(context.Background())

	n, ok := f.c.Notification()
	if !ok || n.Message != "Theme changed" {
		t.Fatalf("Notification() = %+v, %v", n, ok)
	}
	if n.Remaining(f.clock.Now()) != DefaultNotificationTTL {
		t.Fatalf("remaining = %v", n.Remaining(f.clock.Now()))
	}

	f.clock.Advance(DefaultNotificationTTL - time.Millisecond)
	if _, ok := f.c.Notification(); !ok {
		t.Fatal("notification should still be visible")
	}
	f.clock.Advance(time.Millisecond)
	if _, ok := f.c.Notification(); ok {
		t.Fatal("notification should have expired")
	}
	if f.c.View().Notifying {
		t.Fatal("view should not carry an expired notification")
	}
}

func TestNotificationReplaced(t *testing.T) {
	f := newFixture(t)
	f.c.ToggleTheme(context.Background())
	f.c.Submit(context.Background(), Form{})
	n, _ := f.c.Notification()
	if n.Message != "No transaction form is open" {
		t.Fatalf("newest notification should win, got %q", n.Message)
	}
}

func TestOptions(t *testing.T) {
	f := newFixture(t)
	c := New(f.repo, WithCurrency("€"), WithNotificationTTL(time.Second), WithClock(f.clock.Now))
	c.OpenModal(core.Income)
	n := c.Submit(context.Background(), Form{Amount: "12,5", Description: "Refund"})
	expect(t, n, "Income of €12.50 added successfully", LevelSuccess)
	if !n.ExpiresAt.Equal(f.clock.Now().Add(time.Second)) {
		t.Fatalf("ExpiresAt = %v", n.ExpiresAt)
	}
	if c.Currency() != "€" {
		t.Fatalf("Currency() = %q", c.Currency())
	}
}
