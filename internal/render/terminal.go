package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"money/internal/controller"
	"money/internal/core"
)

var (
	positiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true) // green
	negativeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)  // red
	neutralStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // gray
	headerStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	idStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(15)
	dateStyle     = lipgloss.NewStyle().Width(17)
	amountStyle   = lipgloss.NewStyle().Width(14).Align(lipgloss.Right)
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // blue
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
)

// Terminal renders the same content as Renderer as styled text.
type Terminal struct {
	currency string
	loc      *time.Location
}

func NewTerminal(currency string, loc *time.Location) *Terminal {
	if currency == "" {
		currency = "$"
	}
	if loc == nil {
		loc = time.Local
	}
	return &Terminal{currency: currency, loc: loc}
}

func classStyle(c BalanceClass) lipgloss.Style {
	switch c {
	case Positive:
		return positiveStyle
	case Negative:
		return negativeStyle
	default:
		return neutralStyle
	}
}

// Balance renders "Current Balance: $70.00" colored by the balance class.
func (t *Terminal) Balance(b core.Money) string {
	return "Current Balance: " + classStyle(ClassOf(b)).Render(b.Format(t.currency))
}

// TransactionList renders one line per transaction matching f, newest
// first, or the empty-state text.
func (t *Terminal) TransactionList(txs []core.Transaction, f core.Filter) string {
	var sb strings.Builder
	n := 0
	for _, tx := range txs {
		if !f.Matches(tx.Kind) {
			continue
		}
		n++
		style := positiveStyle
		if tx.Kind == core.Expense {
			style = negativeStyle
		}
		amount := amountStyle.Render(tx.Kind.Sign() + tx.Amount.Format(t.currency))
		sb.WriteString(idStyle.Render(fmt.Sprint(tx.ID)))
		sb.WriteString(dateStyle.Render(tx.CreatedAt.In(t.loc).Format(DateLayout)))
		sb.WriteString(style.Render(amount))
		sb.WriteString("  ")
		sb.WriteString(tx.Description)
		sb.WriteString("\n")
	}
	if n == 0 {
		return "No transactions found\n" + mutedStyle.Render("Start by adding your first transaction") + "\n"
	}
	return headerStyle.Render(fmt.Sprintf("Transactions (%s)", f)) + "\n" + sb.String()
}

// Stats renders the balance and per-kind totals.
func (t *Terminal) Stats(s core.Stats) string {
	var sb strings.Builder
	sb.WriteString(t.Balance(s.Balance))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Total income:   %s\n", positiveStyle.Render(s.TotalIncome.Format(t.currency)))
	fmt.Fprintf(&sb, "Total expenses: %s\n", negativeStyle.Render(s.TotalExpenses.Format(t.currency)))
	fmt.Fprintf(&sb, "Transactions:   %d\n", s.Count)
	return sb.String()
}

// Notification renders n colored by its level. Empty notifications render
// as an empty string.
func (t *Terminal) Notification(n controller.Notification) string {
	if n.Empty() {
		return ""
	}
	var style lipgloss.Style
	switch n.Level {
	case controller.LevelSuccess:
		style = positiveStyle
	case controller.LevelError:
		style = negativeStyle
	case controller.LevelWarning:
		style = warningStyle
	default:
		style = infoStyle
	}
	return style.Render(n.Message)
}
