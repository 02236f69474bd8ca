package core

// Stats summarizes a ledger.
type Stats struct {
	Balance       Money
	TotalIncome   Money
	TotalExpenses Money
	Count         int
}

// Summarize totals txs by kind. Balance is income minus expenses.
func Summarize(txs []Transaction) Stats {
	var s Stats
	for _, t := range txs {
		switch t.Kind {
		case Income:
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		case Expense:
			s.TotalExpenses = s.TotalExpenses.Add(t.Amount)
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpenses)
	s.Count = len(txs)
	return s
}
