package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	FilterAll     Filter = "all"
	FilterIncome  Filter = "income"
	FilterExpense Filter = "expense"
)

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// MaxDescriptionLength is the longest description accepted, in characters.
const MaxDescriptionLength = 200

type (
	// Kind classifies a transaction as income or expense.
	Kind string

	// Filter restricts which transactions a view shows.
	Filter string

	// Theme is the persisted display preference.
	Theme string

	Transaction struct {
		ID          int64
		Kind        Kind
		Amount      Money
		Description string
		CreatedAt   time.Time
	}
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage error")

	ErrInvalidAmount      = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrEmptyDescription   = fmt.Errorf("%w: empty description", ErrValidation)
	ErrDescriptionTooLong = fmt.Errorf("%w: description too long (max %d characters)", ErrValidation, MaxDescriptionLength)
	ErrInvalidKind        = fmt.Errorf("%w: invalid transaction type", ErrValidation)
	ErrInvalidFilter      = fmt.Errorf("%w: invalid filter", ErrValidation)
	ErrInsufficientFunds  = fmt.Errorf("%w: insufficient balance", ErrValidation)
)

// ParseKind accepts "income" or "expense", case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", ErrInvalidKind
	}
	return k, nil
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

// Sign returns the prefix used when displaying an amount of this kind.
func (k Kind) Sign() string {
	if k == Expense {
		return "-"
	}
	return "+"
}

// Label returns the capitalized kind name, e.g. "Income".
func (k Kind) Label() string {
	switch k {
	case Income:
		return "Income"
	case Expense:
		return "Expense"
	default:
		return string(k)
	}
}

// ParseFilter accepts "all", "income" or "expense". An empty string means all.
func ParseFilter(s string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FilterAll, nil
	}
	switch f {
	case FilterAll, FilterIncome, FilterExpense:
		return f, nil
	default:
		return "", ErrInvalidFilter
	}
}

// Matches reports whether a transaction of kind k passes the filter.
func (f Filter) Matches(k Kind) bool {
	if f == FilterAll || f == "" {
		return true
	}
	return string(f) == string(k)
}

// Filters lists the filter values in display order.
func Filters() []Filter {
	return []Filter{FilterAll, FilterIncome, FilterExpense}
}

// ParseTheme maps a stored value to a theme. Anything but "dark" is light.
func ParseTheme(s string) Theme {
	if Theme(strings.TrimSpace(s)) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// ValidateDescription strips control characters, trims s and checks it is
// non-empty and short enough.
func ValidateDescription(s string) (string, error) {
	s = strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s))
	if s == "" {
		return "", ErrEmptyDescription
	}
	if utf8.RuneCountInString(s) > MaxDescriptionLength {
		return "", ErrDescriptionTooLong
	}
	return s, nil
}

// Validate checks a recorded transaction. MaxDescriptionLength bounds new
// input only; stored descriptions of any length are accepted.
func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	return nil
}

// Signed returns the amount with the sign of its effect on the balance.
func (t Transaction) Signed() Money {
	if t.Kind == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// DeletePrompt is the confirmation question asked before removing t,
// e.g. "Delete expense of $30.00?".
func (t Transaction) DeletePrompt(symbol string) string {
	return fmt.Sprintf("Delete %s of %s?", t.Kind, t.Amount.Format(symbol))
}
