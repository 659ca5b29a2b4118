package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"expensemate/internal/domain"
	"expensemate/internal/split"
)

type ExpensesStore interface {
	CreateExpense(ctx context.Context, e domain.Expense) (string, error)
	ListExpensesForUser(ctx context.Context, userID string) ([]domain.Expense, error)
	GetExpenseForUser(ctx context.Context, userID, expenseID string) (domain.Expense, error)
	MarkSplitPaid(ctx context.Context, splitID, debtorID string, when time.Time) (string, bool, error)
	MarkExpenseCleared(ctx context.Context, expenseID, payerID string, when time.Time) error
	ReconcileExpense(ctx context.Context, expenseID string, when time.Time) (domain.ExpenseStatus, error)
	UpdateExpense(ctx context.Context, expenseID, ownerID string, amount decimal.Decimal, category domain.Category, note string, when time.Time) error
	DeleteExpense(ctx context.Context, expenseID, ownerID string) error
}

// ConnectionChecker gates splitting: debts may only be created between
// accepted connections.
type ConnectionChecker interface {
	AreConnected(ctx context.Context, userID, otherID string) (bool, error)
}

type ExpenseService struct {
	Expenses    ExpensesStore
	Connections ConnectionChecker
	Now         func() time.Time
}

type CreateExpenseParams struct {
	Amount       decimal.Decimal
	Category     domain.Category
	Note         string
	SplitType    domain.SplitType
	Participants []split.Participant
}

func (s *ExpenseService) CreateExpense(ctx context.Context, creatorID string, p CreateExpenseParams) (domain.Expense, error) {
	if s.Now == nil {
		s.Now = time.Now
	}

	fields := map[string]string{}
	if !p.Amount.IsPositive() {
		fields["amount"] = "must be greater than zero"
	}
	if !domain.ValidCategory(p.Category) {
		fields["category"] = "must be tiffin, delivery or miscellaneous"
	}
	if !domain.ValidSplitType(p.SplitType) {
		fields["split_type"] = "must be none, equal, exact or percentage"
	}
	p.Note = strings.TrimSpace(p.Note)
	if len(p.Note) > 500 {
		fields["note"] = "must be at most 500 characters"
	}
	if p.SplitType == domain.SplitTypeNone && len(p.Participants) > 0 {
		fields["participants"] = "unexpected for an unsplit expense"
	}
	if len(fields) > 0 {
		return domain.Expense{}, domain.NewValidationError(fields)
	}

	e := domain.Expense{
		OwnerID:   creatorID,
		PayerID:   creatorID,
		Amount:    p.Amount.Round(2),
		Category:  p.Category,
		Note:      p.Note,
		Status:    domain.ExpenseStatusPending,
		SplitType: p.SplitType,
		CreatedAt: s.Now(),
	}

	if p.SplitType != domain.SplitTypeNone {
		shares, err := split.Calculate(split.Input{
			Total:        e.Amount,
			PayerID:      creatorID,
			Strategy:     p.SplitType,
			Participants: p.Participants,
		})
		if err != nil {
			return domain.Expense{}, err
		}

		// Debts may only be created against accepted connections.
		if s.Connections != nil {
			for _, sh := range shares {
				ok, err := s.Connections.AreConnected(ctx, creatorID, sh.UserID)
				if err != nil {
					return domain.Expense{}, err
				}
				if !ok {
					return domain.Expense{}, domain.ErrForbidden
				}
			}
		}

		e.Splits = make([]domain.ExpenseSplit, 0, len(shares))
		for _, sh := range shares {
			e.Splits = append(e.Splits, domain.ExpenseSplit{
				UserID:     sh.UserID,
				AmountOwed: sh.AmountOwed,
			})
		}
	}

	id, err := s.Expenses.CreateExpense(ctx, e)
	if err != nil {
		return domain.Expense{}, err
	}

	return s.Expenses.GetExpenseForUser(ctx, creatorID, id)
}

func (s *ExpenseService) ListExpenses(ctx context.Context, userID string) ([]domain.Expense, error) {
	return s.Expenses.ListExpensesForUser(ctx, userID)
}

func (s *ExpenseService) GetExpense(ctx context.Context, userID, expenseID string) (domain.Expense, error) {
	return s.Expenses.GetExpenseForUser(ctx, userID, expenseID)
}

// MarkSplitPaid settles the caller's own split. When the payment was the
// last outstanding one the expense clears in the same store transaction;
// cleared reports whether this call caused that flip.
func (s *ExpenseService) MarkSplitPaid(ctx context.Context, debtorID, splitID string) (domain.Expense, bool, error) {
	if s.Now == nil {
		s.Now = time.Now
	}

	expenseID, cleared, err := s.Expenses.MarkSplitPaid(ctx, splitID, debtorID, s.Now())
	if err != nil {
		return domain.Expense{}, false, err
	}

	e, err := s.Expenses.GetExpenseForUser(ctx, debtorID, expenseID)
	if err != nil {
		return domain.Expense{}, false, err
	}
	return e, cleared, nil
}

// ClearExpense is the payer's shortcut: the expense and any remaining
// splits settle at once.
func (s *ExpenseService) ClearExpense(ctx context.Context, payerID, expenseID string) (domain.Expense, error) {
	if s.Now == nil {
		s.Now = time.Now
	}

	if err := s.Expenses.MarkExpenseCleared(ctx, expenseID, payerID, s.Now()); err != nil {
		return domain.Expense{}, err
	}
	return s.Expenses.GetExpenseForUser(ctx, payerID, expenseID)
}

// Reconcile recomputes the stored status from the split rows. Only the
// payer may trigger it.
func (s *ExpenseService) Reconcile(ctx context.Context, userID, expenseID string) (domain.Expense, error) {
	if s.Now == nil {
		s.Now = time.Now
	}

	e, err := s.Expenses.GetExpenseForUser(ctx, userID, expenseID)
	if err != nil {
		return domain.Expense{}, err
	}
	if e.PayerID != userID {
		return domain.Expense{}, domain.ErrNotExpensePayer
	}

	if _, err := s.Expenses.ReconcileExpense(ctx, expenseID, s.Now()); err != nil {
		return domain.Expense{}, err
	}
	return s.Expenses.GetExpenseForUser(ctx, userID, expenseID)
}

type UpdateExpenseParams struct {
	Amount   decimal.Decimal
	Category domain.Category
	Note     string
}

func (s *ExpenseService) UpdateExpense(ctx context.Context, ownerID, expenseID string, p UpdateExpenseParams) (domain.Expense, error) {
	if s.Now == nil {
		s.Now = time.Now
	}

	fields := map[string]string{}
	if !p.Amount.IsPositive() {
		fields["amount"] = "must be greater than zero"
	}
	if !domain.ValidCategory(p.Category) {
		fields["category"] = "must be tiffin, delivery or miscellaneous"
	}
	p.Note = strings.TrimSpace(p.Note)
	if len(p.Note) > 500 {
		fields["note"] = "must be at most 500 characters"
	}
	if len(fields) > 0 {
		return domain.Expense{}, domain.NewValidationError(fields)
	}

	if err := s.Expenses.UpdateExpense(ctx, expenseID, ownerID, p.Amount.Round(2), p.Category, p.Note, s.Now()); err != nil {
		return domain.Expense{}, err
	}
	return s.Expenses.GetExpenseForUser(ctx, ownerID, expenseID)
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, ownerID, expenseID string) error {
	return s.Expenses.DeleteExpense(ctx, expenseID, ownerID)
}
