package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"expensemate/internal/domain"
	"expensemate/internal/service"
)

type stubExpensesAPI struct {
	t *testing.T

	createFunc    func(context.Context, domain.Expense) (string, error)
	listFunc      func(context.Context, string) ([]domain.Expense, error)
	getFunc       func(context.Context, string, string) (domain.Expense, error)
	paySplitFunc  func(context.Context, string, string, time.Time) (string, bool, error)
	clearFunc     func(context.Context, string, string, time.Time) error
	reconcileFunc func(context.Context, string, time.Time) (domain.ExpenseStatus, error)
	updateFunc    func(context.Context, string, string, decimal.Decimal, domain.Category, string, time.Time) error
	deleteFunc    func(context.Context, string, string) error
}

func (s *stubExpensesAPI) CreateExpense(ctx context.Context, e domain.Expense) (string, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, e)
	}
	s.t.Fatalf("CreateExpense called unexpectedly")
	return "", context.Canceled
}

func (s *stubExpensesAPI) ListExpensesForUser(ctx context.Context, userID string) ([]domain.Expense, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, userID)
	}
	s.t.Fatalf("ListExpensesForUser called unexpectedly")
	return nil, context.Canceled
}

func (s *stubExpensesAPI) GetExpenseForUser(ctx context.Context, userID, expenseID string) (domain.Expense, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, userID, expenseID)
	}
	s.t.Fatalf("GetExpenseForUser called unexpectedly")
	return domain.Expense{}, context.Canceled
}

func (s *stubExpensesAPI) MarkSplitPaid(ctx context.Context, splitID, debtorID string, when time.Time) (string, bool, error) {
	if s.paySplitFunc != nil {
		return s.paySplitFunc(ctx, splitID, debtorID, when)
	}
	s.t.Fatalf("MarkSplitPaid called unexpectedly")
	return "", false, context.Canceled
}

func (s *stubExpensesAPI) MarkExpenseCleared(ctx context.Context, expenseID, payerID string, when time.Time) error {
	if s.clearFunc != nil {
		return s.clearFunc(ctx, expenseID, payerID, when)
	}
	s.t.Fatalf("MarkExpenseCleared called unexpectedly")
	return context.Canceled
}

func (s *stubExpensesAPI) ReconcileExpense(ctx context.Context, expenseID string, when time.Time) (domain.ExpenseStatus, error) {
	if s.reconcileFunc != nil {
		return s.reconcileFunc(ctx, expenseID, when)
	}
	s.t.Fatalf("ReconcileExpense called unexpectedly")
	return "", context.Canceled
}

func (s *stubExpensesAPI) UpdateExpense(ctx context.Context, expenseID, ownerID string, amount decimal.Decimal, category domain.Category, note string, when time.Time) error {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, expenseID, ownerID, amount, category, note, when)
	}
	s.t.Fatalf("UpdateExpense called unexpectedly")
	return context.Canceled
}

func (s *stubExpensesAPI) DeleteExpense(ctx context.Context, expenseID, ownerID string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, expenseID, ownerID)
	}
	s.t.Fatalf("DeleteExpense called unexpectedly")
	return context.Canceled
}

type stubChecker struct {
	connected bool
}

func (s *stubChecker) AreConnected(ctx context.Context, userID, otherID string) (bool, error) {
	return s.connected, nil
}

func TestExpensesCreateEqualSplit(t *testing.T) {
	created := domain.Expense{}
	store := &stubExpensesAPI{
		t: t,
		createFunc: func(_ context.Context, e domain.Expense) (string, error) {
			created = e
			return "exp-1", nil
		},
		getFunc: func(_ context.Context, userID, expenseID string) (domain.Expense, error) {
			if userID != "user-1" || expenseID != "exp-1" {
				t.Fatalf("unexpected get ids: %s %s", userID, expenseID)
			}
			created.ID = expenseID
			return created, nil
		},
	}
	api := &api{expenseSvc: &service.ExpenseService{
		Expenses:    store,
		Connections: &stubChecker{connected: true},
		Now:         func() time.Time { return time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC) },
	}}

	body := `{"amount":"300","category":"delivery","split_type":"equal","participants":[{"user_id":"user-2"},{"user_id":"user-3"}]}`
	req := authedRequest(http.MethodPost, "/v1/expenses", body, "user-1")
	rr := httptest.NewRecorder()
	api.handleExpensesCreate(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d body: %s", rr.Code, rr.Body.String())
	}
	if len(created.Splits) != 2 {
		t.Fatalf("expected 2 split rows, got %d", len(created.Splits))
	}
	for _, s := range created.Splits {
		if !s.AmountOwed.Equal(decimal.NewFromInt(100)) {
			t.Fatalf("unexpected share: %s", s.AmountOwed)
		}
	}

	var got domain.Expense
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != "exp-1" || got.Status != domain.ExpenseStatusPending {
		t.Fatalf("unexpected expense: %#v", got)
	}
}

func TestExpensesCreateRejectsStrangers(t *testing.T) {
	api := &api{expenseSvc: &service.ExpenseService{
		Expenses:    &stubExpensesAPI{t: t},
		Connections: &stubChecker{connected: false},
	}}

	body := `{"amount":"300","category":"delivery","split_type":"equal","participants":[{"user_id":"user-2"}]}`
	req := authedRequest(http.MethodPost, "/v1/expenses", body, "user-1")
	rr := httptest.NewRecorder()
	api.handleExpensesCreate(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if code := decodeErrorCode(t, rr); code != "forbidden" {
		t.Fatalf("unexpected error code: %s", code)
	}
}

func TestExpensesCreatePercentageMismatch(t *testing.T) {
	api := &api{expenseSvc: &service.ExpenseService{
		Expenses:    &stubExpensesAPI{t: t},
		Connections: &stubChecker{connected: true},
	}}

	body := `{"amount":"300","category":"miscellaneous","split_type":"percentage","participants":[{"user_id":"user-2","value":"40"}]}`
	req := authedRequest(http.MethodPost, "/v1/expenses", body, "user-1")
	rr := httptest.NewRecorder()
	api.handleExpensesCreate(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if code := decodeErrorCode(t, rr); code != "percentage_mismatch" {
		t.Fatalf("unexpected error code: %s", code)
	}
}

func TestSplitPayReportsCascade(t *testing.T) {
	cleared := domain.Expense{
		ID:      "exp-1",
		PayerID: "user-2",
		Status:  domain.ExpenseStatusCleared,
		Splits: []domain.ExpenseSplit{
			{ID: "split-1", ExpenseID: "exp-1", UserID: "user-1", HasPaid: true},
		},
	}
	store := &stubExpensesAPI{
		t: t,
		paySplitFunc: func(_ context.Context, splitID, debtorID string, _ time.Time) (string, bool, error) {
			if splitID != "split-1" || debtorID != "user-1" {
				t.Fatalf("unexpected ids: %s %s", splitID, debtorID)
			}
			return "exp-1", true, nil
		},
		getFunc: func(_ context.Context, userID, expenseID string) (domain.Expense, error) {
			return cleared, nil
		},
	}
	api := &api{expenseSvc: &service.ExpenseService{Expenses: store}}

	req := authedRequest(http.MethodPost, "/v1/expenses/splits/split-1/pay", "", "user-1")
	req.SetPathValue("id", "split-1")
	rr := httptest.NewRecorder()
	api.handleSplitPay(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	var got splitPaidResponse
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !got.Cleared {
		t.Fatal("expected the cascade to be reported")
	}
	if got.Expense.Status != domain.ExpenseStatusCleared {
		t.Fatalf("unexpected status: %s", got.Expense.Status)
	}
}

func TestExpensesClearNotPayer(t *testing.T) {
	store := &stubExpensesAPI{
		t: t,
		clearFunc: func(_ context.Context, expenseID, payerID string, _ time.Time) error {
			return domain.ErrNotExpensePayer
		},
	}
	api := &api{expenseSvc: &service.ExpenseService{Expenses: store}}

	req := authedRequest(http.MethodPost, "/v1/expenses/exp-1/clear", "", "user-1")
	req.SetPathValue("id", "exp-1")
	rr := httptest.NewRecorder()
	api.handleExpensesClear(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if code := decodeErrorCode(t, rr); code != "not_expense_payer" {
		t.Fatalf("unexpected error code: %s", code)
	}
}

func TestExpensesDashboardInvalidRange(t *testing.T) {
	api := &api{
		expenseSvc: &service.ExpenseService{Expenses: &stubExpensesAPI{t: t}},
		ledgerSvc:  &service.LedgerService{Expenses: &stubExpensesAPI{t: t}},
	}

	req := authedRequest(http.MethodGet, "/v1/expenses/dashboard?range=yesterday", "", "user-1")
	rr := httptest.NewRecorder()
	api.handleExpensesDashboard(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}

func TestExpensesSummaryServesTotalsOnly(t *testing.T) {
	pending := domain.Expense{
		ID: "exp-1", OwnerID: "user-1", PayerID: "user-1",
		Amount: decimal.NewFromInt(90), Category: domain.CategoryTiffin,
		Status: domain.ExpenseStatusPending, SplitType: domain.SplitTypeNone,
	}
	store := &stubExpensesAPI{
		t: t,
		listFunc: func(_ context.Context, userID string) ([]domain.Expense, error) {
			if userID != "user-1" {
				t.Fatalf("unexpected user id: %s", userID)
			}
			return []domain.Expense{pending}, nil
		},
	}
	api := &api{
		expenseSvc: &service.ExpenseService{Expenses: store},
		ledgerSvc:  &service.LedgerService{Expenses: store},
	}

	req := authedRequest(http.MethodGet, "/v1/expenses/summary", "", "user-1")
	rr := httptest.NewRecorder()
	api.handleExpensesSummary(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body: %s", rr.Code, rr.Body.String())
	}

	var got domain.LedgerSummary
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !got.TiffinPending.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("unexpected tiffin pending: %s", got.TiffinPending)
	}
	if !got.PersonalSpend.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("unexpected personal spend: %s", got.PersonalSpend)
	}
}

func TestExpensesDashboardSummaryIgnoresFilter(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	old := domain.Expense{
		ID: "exp-old", OwnerID: "user-1", PayerID: "user-1",
		Amount: decimal.NewFromInt(80), Category: domain.CategoryTiffin,
		Status: domain.ExpenseStatusPending, SplitType: domain.SplitTypeNone,
		CreatedAt: now.AddDate(0, -3, 0),
	}
	store := &stubExpensesAPI{
		t: t,
		listFunc: func(_ context.Context, userID string) ([]domain.Expense, error) {
			return []domain.Expense{old}, nil
		},
	}
	api := &api{
		expenseSvc: &service.ExpenseService{Expenses: store},
		ledgerSvc:  &service.LedgerService{Expenses: store, Now: func() time.Time { return now }},
	}

	req := authedRequest(http.MethodGet, "/v1/expenses/dashboard?range=this-month", "", "user-1")
	rr := httptest.NewRecorder()
	api.handleExpensesDashboard(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	var got service.Dashboard
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Expenses) != 0 {
		t.Fatalf("expected the old expense filtered out, got %d rows", len(got.Expenses))
	}
	if !got.Summary.TiffinPending.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("summary must cover the full history, got %s", got.Summary.TiffinPending)
	}
}
