package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expensemate/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type ExpensesStore struct {
	pool *pgxpool.Pool
}

func NewExpensesStore(pool *pgxpool.Pool) *ExpensesStore {
	return &ExpensesStore{pool: pool}
}

// CreateExpense inserts the expense and its split rows in one transaction.
// IDs are generated application-side so the split rows can reference the
// expense before anything is committed.
func (s *ExpensesStore) CreateExpense(ctx context.Context, e domain.Expense) (string, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	expenseID := uuid.NewString()

	const insertExpense = `
		INSERT INTO expenses (id, owner_id, payer_id, amount, category, note, status, split_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	`
	if _, err := tx.Exec(ctx, insertExpense,
		expenseID,
		e.OwnerID,
		e.PayerID,
		e.Amount,
		e.Category,
		e.Note,
		e.Status,
		e.SplitType,
		e.CreatedAt,
	); err != nil {
		var pgerr *pgconn.PgError
		if errors.As(err, &pgerr) && pgerr.Code == "23503" {
			return "", domain.ErrValidation
		}
		return "", fmt.Errorf("insert expense: %w", err)
	}

	const insertSplit = `
		INSERT INTO expense_splits (id, expense_id, user_id, amount_owed, has_paid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, false, $5, $5)
	`
	for _, sp := range e.Splits {
		if _, err := tx.Exec(ctx, insertSplit, uuid.NewString(), expenseID, sp.UserID, sp.AmountOwed, e.CreatedAt); err != nil {
			var pgerr *pgconn.PgError
			if errors.As(err, &pgerr) && pgerr.Code == "23503" {
				return "", domain.ErrValidation
			}
			return "", fmt.Errorf("insert expense split: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit tx: %w", err)
	}
	return expenseID, nil
}

// ListExpensesForUser returns every expense the user paid for, created, or
// owes a split on, newest first, with split rows embedded.
func (s *ExpensesStore) ListExpensesForUser(ctx context.Context, userID string) ([]domain.Expense, error) {
	const q = `
		SELECT DISTINCT e.id, e.owner_id, e.payer_id, e.amount, e.category, e.note, e.status, e.split_type, e.created_at, e.updated_at
		FROM expenses e
		LEFT JOIN expense_splits es ON es.expense_id = e.id
		WHERE e.payer_id = $1 OR e.owner_id = $1 OR es.user_id = $1
		ORDER BY e.created_at DESC
	`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []domain.Expense
	ids := make([]string, 0, 16)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	splits, err := s.listSplits(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Splits = splits[out[i].ID]
	}
	return out, nil
}

// GetExpenseForUser loads one expense the user is allowed to see: their own
// or one they carry a split on.
func (s *ExpensesStore) GetExpenseForUser(ctx context.Context, userID, expenseID string) (domain.Expense, error) {
	const q = `
		SELECT e.id, e.owner_id, e.payer_id, e.amount, e.category, e.note, e.status, e.split_type, e.created_at, e.updated_at
		FROM expenses e
		WHERE e.id = $1
		  AND (e.payer_id = $2 OR e.owner_id = $2
		    OR EXISTS (SELECT 1 FROM expense_splits es WHERE es.expense_id = e.id AND es.user_id = $2))
	`

	row := s.pool.QueryRow(ctx, q, expenseID, userID)
	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Expense{}, domain.ErrNotFound
		}
		return domain.Expense{}, err
	}

	splits, err := s.listSplits(ctx, []string{e.ID})
	if err != nil {
		return domain.Expense{}, err
	}
	e.Splits = splits[e.ID]
	return e, nil
}

// MarkSplitPaid settles one debtor's share. When the last unpaid sibling is
// settled in the same transaction the whole expense flips to cleared, and
// only the call that performs the flip reports cleared=true. Re-marking an
// already paid split succeeds without side effects.
func (s *ExpensesStore) MarkSplitPaid(ctx context.Context, splitID, debtorID string, when time.Time) (expenseID string, cleared bool, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const markPaid = `
		UPDATE expense_splits
		SET has_paid = true, updated_at = $3
		WHERE id = $1 AND user_id = $2
		RETURNING expense_id
	`
	var expenseIDUUID pgtype.UUID
	if err := tx.QueryRow(ctx, markPaid, splitID, debtorID, when).Scan(&expenseIDUUID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, domain.ErrNotFound
		}
		return "", false, fmt.Errorf("mark split paid: %w", err)
	}
	expenseID = uuidOrEmpty(expenseIDUUID)

	const countUnpaid = `
		SELECT COUNT(*) FROM expense_splits
		WHERE expense_id = $1 AND has_paid = false
	`
	var unpaid int
	if err := tx.QueryRow(ctx, countUnpaid, expenseID).Scan(&unpaid); err != nil {
		return "", false, fmt.Errorf("count unpaid splits: %w", err)
	}

	if unpaid == 0 {
		// The status guard keeps the flip exactly-once under concurrent
		// settle calls.
		const clearExpense = `
			UPDATE expenses
			SET status = 'cleared', updated_at = $2
			WHERE id = $1 AND status = 'pending'
		`
		tag, err := tx.Exec(ctx, clearExpense, expenseID, when)
		if err != nil {
			return "", false, fmt.Errorf("clear expense: %w", err)
		}
		cleared = tag.RowsAffected() > 0
	}

	if err := tx.Commit(ctx); err != nil {
		return "", false, fmt.Errorf("commit tx: %w", err)
	}
	return expenseID, cleared, nil
}

// MarkExpenseCleared is the payer's expense-level settle. Any remaining
// split rows are marked paid in the same transaction so debts never outlive
// a cleared expense.
func (s *ExpensesStore) MarkExpenseCleared(ctx context.Context, expenseID, payerID string, when time.Time) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var actualPayer pgtype.UUID
	if err := tx.QueryRow(ctx, `SELECT payer_id FROM expenses WHERE id = $1`, expenseID).Scan(&actualPayer); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get expense payer: %w", err)
	}
	if uuidOrEmpty(actualPayer) != payerID {
		return domain.ErrNotExpensePayer
	}

	const clearSplits = `
		UPDATE expense_splits
		SET has_paid = true, updated_at = $2
		WHERE expense_id = $1 AND has_paid = false
	`
	if _, err := tx.Exec(ctx, clearSplits, expenseID, when); err != nil {
		return fmt.Errorf("clear expense splits: %w", err)
	}

	const clearExpense = `
		UPDATE expenses
		SET status = 'cleared', updated_at = $2
		WHERE id = $1 AND status = 'pending'
	`
	if _, err := tx.Exec(ctx, clearExpense, expenseID, when); err != nil {
		return fmt.Errorf("clear expense: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ReconcileExpense recomputes the expense status from its split rows and
// repairs the row if the two disagree.
func (s *ExpensesStore) ReconcileExpense(ctx context.Context, expenseID string, when time.Time) (domain.ExpenseStatus, error) {
	const q = `
		UPDATE expenses e
		SET status = CASE
			WHEN EXISTS (SELECT 1 FROM expense_splits es WHERE es.expense_id = e.id AND es.has_paid = false)
				THEN 'pending'
			WHEN EXISTS (SELECT 1 FROM expense_splits es WHERE es.expense_id = e.id)
				THEN 'cleared'
			ELSE e.status END,
		    updated_at = $2
		WHERE e.id = $1
		RETURNING e.status
	`
	var status domain.ExpenseStatus
	if err := s.pool.QueryRow(ctx, q, expenseID, when).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("reconcile expense: %w", err)
	}
	return status, nil
}

// UpdateExpense edits an unsplit expense in place. Split expenses are
// frozen because the stored split rows were derived from the old amount.
func (s *ExpensesStore) UpdateExpense(ctx context.Context, expenseID, ownerID string, amount decimal.Decimal, category domain.Category, note string, when time.Time) error {
	const q = `
		UPDATE expenses
		SET amount = $3, category = $4, note = $5, updated_at = $6
		WHERE id = $1 AND owner_id = $2 AND split_type = 'none'
	`
	tag, err := s.pool.Exec(ctx, q, expenseID, ownerID, amount, category, note, when)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.explainWriteMiss(ctx, expenseID, ownerID)
	}
	return nil
}

func (s *ExpensesStore) DeleteExpense(ctx context.Context, expenseID, ownerID string) error {
	const q = `
		DELETE FROM expenses
		WHERE id = $1 AND owner_id = $2
	`
	tag, err := s.pool.Exec(ctx, q, expenseID, ownerID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.explainWriteMiss(ctx, expenseID, ownerID)
	}
	return nil
}

// explainWriteMiss distinguishes the reasons a guarded write touched no
// rows: missing expense, foreign owner, or an expense frozen by its splits.
func (s *ExpensesStore) explainWriteMiss(ctx context.Context, expenseID, ownerID string) error {
	var ownerUUID pgtype.UUID
	var splitType domain.SplitType
	err := s.pool.QueryRow(ctx, `SELECT owner_id, split_type FROM expenses WHERE id = $1`, expenseID).Scan(&ownerUUID, &splitType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("inspect expense: %w", err)
	}
	if uuidOrEmpty(ownerUUID) != ownerID {
		return domain.ErrForbidden
	}
	if splitType != domain.SplitTypeNone {
		return domain.ErrExpenseSplit
	}
	return domain.ErrNotFound
}

func scanExpense(row pgx.Row) (domain.Expense, error) {
	var (
		e         domain.Expense
		idUUID    pgtype.UUID
		ownerUUID pgtype.UUID
		payerUUID pgtype.UUID
		noteText  pgtype.Text
	)
	err := row.Scan(
		&idUUID,
		&ownerUUID,
		&payerUUID,
		&e.Amount,
		&e.Category,
		&noteText,
		&e.Status,
		&e.SplitType,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Expense{}, err
		}
		return domain.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	e.ID = uuidOrEmpty(idUUID)
	e.OwnerID = uuidOrEmpty(ownerUUID)
	e.PayerID = uuidOrEmpty(payerUUID)
	e.Note = textOrEmpty(noteText)
	return e, nil
}

// listSplits loads the split rows for a batch of expenses, keyed by
// expense id, with the debtor's profile joined in.
func (s *ExpensesStore) listSplits(ctx context.Context, expenseIDs []string) (map[string][]domain.ExpenseSplit, error) {
	const q = `
		SELECT es.id, es.expense_id, es.user_id, es.amount_owed, es.has_paid, es.created_at, es.updated_at,
		       u.username, u.display_name
		FROM expense_splits es
		JOIN users u ON u.id = es.user_id
		WHERE es.expense_id = ANY($1)
		ORDER BY es.created_at ASC, u.username ASC
	`

	rows, err := s.pool.Query(ctx, q, expenseIDs)
	if err != nil {
		return nil, fmt.Errorf("list expense splits: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.ExpenseSplit, len(expenseIDs))
	for rows.Next() {
		var (
			sp          domain.ExpenseSplit
			idUUID      pgtype.UUID
			expenseUUID pgtype.UUID
			userUUID    pgtype.UUID
			username    string
			displayName string
		)
		if err := rows.Scan(&idUUID, &expenseUUID, &userUUID, &sp.AmountOwed, &sp.HasPaid, &sp.CreatedAt, &sp.UpdatedAt, &username, &displayName); err != nil {
			return nil, fmt.Errorf("scan expense split: %w", err)
		}
		sp.ID = uuidOrEmpty(idUUID)
		sp.ExpenseID = uuidOrEmpty(expenseUUID)
		sp.UserID = uuidOrEmpty(userUUID)
		sp.Debtor = domain.UserSummary{ID: sp.UserID, Username: username, DisplayName: displayName}
		out[sp.ExpenseID] = append(out[sp.ExpenseID], sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expense splits: %w", err)
	}
	return out, nil
}
