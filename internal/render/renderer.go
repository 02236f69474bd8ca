// Package render turns ledger state into HTML fragments for the web UI and
// styled text for the terminal. Renderers are pure: currency symbol and
// time zone are fixed when they are built.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"time"

	"money/internal/controller"
	"money/internal/core"
	appweb "money/web"
)

// DateLayout is the transaction date format, MM/DD/YYYY HH:MM.
const DateLayout = "01/02/2006 15:04"

type BalanceClass string

const (
	Positive BalanceClass = "positive"
	Negative BalanceClass = "negative"
	Neutral  BalanceClass = "neutral"
)

// ClassOf returns the display class for a balance.
func ClassOf(b core.Money) BalanceClass {
	switch {
	case b.IsPositive():
		return Positive
	case b.IsNegative():
		return Negative
	default:
		return Neutral
	}
}

type BalanceView struct {
	Text  string
	Class BalanceClass
}

// Row is one formatted transaction line. Amount is unsigned; the template
// prefixes the sign.
type Row struct {
	ID          int64
	Kind        core.Kind
	Description string
	Date        string
	Amount      string
	Prompt      string
}

// Signed returns the amount with its sign, e.g. "-$30.00".
func (r Row) Signed() string {
	return r.Kind.Sign() + r.Amount
}

type balanceData struct {
	BalanceView
	OOB bool
}

type filterButton struct {
	Value  core.Filter
	Label  string
	Active bool
}

type sectionData struct {
	Filters []filterButton
	List    template.HTML
	OOB     bool
}

type modalData struct {
	Open        bool
	Kind        core.Kind
	Label       string
	Amount      string
	Description string
	MaxLength   int
}

type notificationData struct {
	Message    string
	Level      controller.Level
	DurationMs int64
}

type pageData struct {
	Theme        core.Theme
	Balance      balanceData
	Section      sectionData
	Modal        modalData
	Notification notificationData
}

type Renderer struct {
	tmpl     *template.Template
	currency string
	loc      *time.Location
}

// New parses the embedded templates.
func New(currency string, loc *time.Location) (*Renderer, error) {
	return NewFromFS(appweb.TemplatesFS, currency, loc)
}

// NewFromFS parses templates/*.html from fsys.
func NewFromFS(fsys fs.FS, currency string, loc *time.Location) (*Renderer, error) {
	t, err := template.ParseFS(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if currency == "" {
		currency = "$"
	}
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{tmpl: t, currency: currency, loc: loc}, nil
}

func (r *Renderer) Currency() string         { return r.currency }
func (r *Renderer) Location() *time.Location { return r.loc }

// RenderBalance formats b with two decimals, e.g. "$70.00" or "-$5.00".
func (r *Renderer) RenderBalance(b core.Money) BalanceView {
	return BalanceView{Text: b.Format(r.currency), Class: ClassOf(b)}
}

// Rows filters txs and formats what remains, keeping order.
func (r *Renderer) Rows(txs []core.Transaction, f core.Filter) []Row {
	rows := make([]Row, 0, len(txs))
	for _, t := range txs {
		if !f.Matches(t.Kind) {
			continue
		}
		rows = append(rows, Row{
			ID:          t.ID,
			Kind:        t.Kind,
			Description: t.Description,
			Date:        t.CreatedAt.In(r.loc).Format(DateLayout),
			Amount:      t.Amount.Format(r.currency),
			Prompt:      t.DeletePrompt(r.currency),
		})
	}
	return rows
}

// RenderTransactionList renders the rows matching f, or the empty-state
// placeholder when none match.
func (r *Renderer) RenderTransactionList(txs []core.Transaction, f core.Filter) (template.HTML, error) {
	b, err := r.execute("transaction-list", r.Rows(txs, f))
	if err != nil {
		return "", err
	}
	return template.HTML(b), nil
}

// RenderPage renders the full document. list is the pre-rendered
// transaction list for v.Filter.
func (r *Renderer) RenderPage(v controller.View, list template.HTML) ([]byte, error) {
	return r.execute("page", pageData{
		Theme:        v.Theme,
		Balance:      balanceData{BalanceView: r.RenderBalance(v.Balance)},
		Section:      r.section(v.Filter, list, false),
		Modal:        r.modal(v),
		Notification: notification(v),
	})
}

// RenderSection renders the transactions section with its filter buttons.
// With oob set the fragment replaces the section out of band.
func (r *Renderer) RenderSection(v controller.View, list template.HTML, oob bool) ([]byte, error) {
	return r.execute("transactions", r.section(v.Filter, list, oob))
}

// RenderBalanceFragment renders the balance card.
func (r *Renderer) RenderBalanceFragment(v controller.View, oob bool) ([]byte, error) {
	return r.execute("balance", balanceData{BalanceView: r.RenderBalance(v.Balance), OOB: oob})
}

// RenderModal renders the modal contents: the form when open, nothing
// when idle.
func (r *Renderer) RenderModal(v controller.View) ([]byte, error) {
	return r.execute("modal", r.modal(v))
}

// RenderNotification renders the notification element for the active
// notification in v, or an empty hidden element.
func (r *Renderer) RenderNotification(v controller.View) ([]byte, error) {
	return r.execute("notification", notification(v))
}

// RenderRefresh renders the fragments that change after a ledger
// mutation: the balance and the transactions section, both out of band.
func (r *Renderer) RenderRefresh(v controller.View, list template.HTML) ([]byte, error) {
	var buf bytes.Buffer
	b, err := r.RenderBalanceFragment(v, true)
	if err != nil {
		return nil, err
	}
	buf.Write(b)
	s, err := r.RenderSection(v, list, true)
	if err != nil {
		return nil, err
	}
	buf.Write(s)
	return buf.Bytes(), nil
}

func (r *Renderer) section(active core.Filter, list template.HTML, oob bool) sectionData {
	filters := core.Filters()
	buttons := make([]filterButton, 0, len(filters))
	for _, f := range filters {
		buttons = append(buttons, filterButton{Value: f, Label: filterLabel(f), Active: f == active})
	}
	return sectionData{Filters: buttons, List: list, OOB: oob}
}

func (r *Renderer) modal(v controller.View) modalData {
	if v.State != controller.ModalOpen {
		return modalData{}
	}
	return modalData{
		Open:        true,
		Kind:        v.ModalKind,
		Label:       v.ModalKind.Label(),
		Amount:      v.Form.Amount,
		Description: v.Form.Description,
		MaxLength:   core.MaxDescriptionLength,
	}
}

func notification(v controller.View) notificationData {
	if !v.Notifying {
		return notificationData{}
	}
	return notificationData{
		Message:    v.Notification.Message,
		Level:      v.Notification.Level,
		DurationMs: v.Remaining.Milliseconds(),
	}
}

func filterLabel(f core.Filter) string {
	switch f {
	case core.FilterIncome:
		return "Income"
	case core.FilterExpense:
		return "Expenses"
	default:
		return "All"
	}
}

func (r *Renderer) execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
