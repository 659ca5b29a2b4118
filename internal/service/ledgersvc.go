package service

import (
	"context"
	"time"

	"expensemate/internal/domain"
	"expensemate/internal/ledger"
)

// Dashboard is the one-call payload for the home screen: totals over the
// whole history plus the filtered display list.
type Dashboard struct {
	Summary  domain.LedgerSummary `json:"summary"`
	Expenses []domain.Expense     `json:"expenses"`
}

type LedgerService struct {
	Expenses ExpensesStore
	Now      func() time.Time
}

// Summary aggregates the user's full expense history. Display filters never
// reach this path.
func (s *LedgerService) Summary(ctx context.Context, userID string) (domain.LedgerSummary, error) {
	expenses, err := s.Expenses.ListExpensesForUser(ctx, userID)
	if err != nil {
		return domain.LedgerSummary{}, err
	}
	return ledger.Summarize(userID, expenses), nil
}

// Dashboard computes totals from the unfiltered history and then applies
// the display filter to the expense list only.
func (s *LedgerService) Dashboard(ctx context.Context, userID string, opts ledger.FilterOptions) (Dashboard, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	if err := opts.Validate(); err != nil {
		return Dashboard{}, err
	}

	expenses, err := s.Expenses.ListExpensesForUser(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		Summary:  ledger.Summarize(userID, expenses),
		Expenses: ledger.Filter(expenses, opts, now()),
	}, nil
}
