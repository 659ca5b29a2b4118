// Package ledger computes dashboard balances from a user's full expense
// history. Totals are always derived from the unfiltered list; display
// filters only narrow which expenses are shown.
package ledger

import (
	"github.com/shopspring/decimal"

	"expensemate/internal/domain"
)

// Summarize classifies every expense by the user's relationship to it and
// accumulates the owe/owed and category buckets.
func Summarize(userID string, expenses []domain.Expense) domain.LedgerSummary {
	sum := domain.LedgerSummary{
		PersonalSpend:   decimal.Zero,
		TotalOwedToUser: decimal.Zero,
		TotalOwedByUser: decimal.Zero,
		SplitwiseOwed:   decimal.Zero,
		SplitwiseOwe:    decimal.Zero,
		TiffinPending:   decimal.Zero,
		DeliveryPending: decimal.Zero,
		TotalPending:    decimal.Zero,
		TotalCleared:    decimal.Zero,
	}

	for i := range expenses {
		e := &expenses[i]
		isPayer := e.PayerID == userID

		switch {
		case isPayer && len(e.Splits) == 0:
			sum.PersonalSpend = sum.PersonalSpend.Add(e.Amount)
			if e.Status == domain.ExpenseStatusPending {
				sum.TotalPending = sum.TotalPending.Add(e.Amount)
			}
		case isPayer:
			residual := e.Amount.Sub(e.SplitTotal())
			sum.PersonalSpend = sum.PersonalSpend.Add(residual)
			for _, s := range e.Splits {
				if s.HasPaid {
					continue
				}
				sum.TotalOwedToUser = sum.TotalOwedToUser.Add(s.AmountOwed)
				if !e.Category.IsFood() {
					sum.SplitwiseOwed = sum.SplitwiseOwed.Add(s.AmountOwed)
				}
			}
		default:
			for _, s := range e.Splits {
				if s.UserID != userID {
					continue
				}
				sum.PersonalSpend = sum.PersonalSpend.Add(s.AmountOwed)
				if !s.HasPaid {
					sum.TotalOwedByUser = sum.TotalOwedByUser.Add(s.AmountOwed)
					sum.TotalPending = sum.TotalPending.Add(s.AmountOwed)
					if !e.Category.IsFood() {
						sum.SplitwiseOwe = sum.SplitwiseOwe.Add(s.AmountOwed)
					}
				}
			}
		}

		// Food buckets use expense-level status and only count the user's
		// own expenses.
		if isPayer && e.Category.IsFood() {
			switch e.Status {
			case domain.ExpenseStatusPending:
				switch e.Category {
				case domain.CategoryTiffin:
					sum.TiffinPending = sum.TiffinPending.Add(e.Amount)
				case domain.CategoryDelivery:
					sum.DeliveryPending = sum.DeliveryPending.Add(e.Amount)
				}
			case domain.ExpenseStatusCleared:
				sum.TotalCleared = sum.TotalCleared.Add(e.Amount)
			}
		}
	}

	return sum
}
