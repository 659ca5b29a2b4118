package httpapi

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"expensemate/internal/domain"
	"expensemate/internal/ledger"
	"expensemate/internal/service"
	"expensemate/internal/split"
)

type splitParticipantInput struct {
	UserID string          `json:"user_id"`
	Value  decimal.Decimal `json:"value"`
}

type createExpenseRequest struct {
	Amount       decimal.Decimal         `json:"amount"`
	Category     string                  `json:"category"`
	Note         string                  `json:"note"`
	SplitType    string                  `json:"split_type"`
	Participants []splitParticipantInput `json:"participants"`
}

func (a *api) handleExpensesCreate(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req createExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	splitType := domain.SplitType(strings.TrimSpace(req.SplitType))
	if splitType == "" {
		splitType = domain.SplitTypeNone
	}

	participants := make([]split.Participant, 0, len(req.Participants))
	for _, p := range req.Participants {
		participants = append(participants, split.Participant{
			UserID: strings.TrimSpace(p.UserID),
			Value:  p.Value,
		})
	}

	e, err := a.expenseSvc.CreateExpense(r.Context(), u.ID, service.CreateExpenseParams{
		Amount:       req.Amount,
		Category:     domain.Category(strings.TrimSpace(req.Category)),
		Note:         req.Note,
		SplitType:    splitType,
		Participants: participants,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, e)
}

func (a *api) handleExpensesList(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	expenses, err := a.expenseSvc.ListExpenses(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	if expenses == nil {
		expenses = []domain.Expense{}
	}

	WriteJSON(w, http.StatusOK, expenses)
}

func (a *api) handleExpensesDashboard(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	if a.ledgerSvc == nil {
		WriteError(w, http.StatusServiceUnavailable, "ledger_unavailable", "ledger unavailable")
		return
	}

	opts := ledger.FilterOptions{
		Range:  ledger.TimeRange(strings.TrimSpace(r.URL.Query().Get("range"))),
		Status: ledger.StatusFilter(strings.TrimSpace(r.URL.Query().Get("status"))),
	}

	dash, err := a.ledgerSvc.Dashboard(r.Context(), u.ID, opts)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	if dash.Expenses == nil {
		dash.Expenses = []domain.Expense{}
	}

	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, dash)
}

// handleExpensesSummary serves the totals alone, for clients that only need
// the balance figures and not the expense list.
func (a *api) handleExpensesSummary(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	if a.ledgerSvc == nil {
		WriteError(w, http.StatusServiceUnavailable, "ledger_unavailable", "ledger unavailable")
		return
	}

	summary, err := a.ledgerSvc.Summary(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, summary)
}

func (a *api) handleExpensesGet(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"id": "required"}))
		return
	}

	e, err := a.expenseSvc.GetExpense(r.Context(), u.ID, id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, e)
}

type updateExpenseRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Note     string          `json:"note"`
}

func (a *api) handleExpensesUpdate(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"id": "required"}))
		return
	}

	var req updateExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	e, err := a.expenseSvc.UpdateExpense(r.Context(), u.ID, id, service.UpdateExpenseParams{
		Amount:   req.Amount,
		Category: domain.Category(strings.TrimSpace(req.Category)),
		Note:     req.Note,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, e)
}

func (a *api) handleExpensesDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"id": "required"}))
		return
	}

	if err := a.expenseSvc.DeleteExpense(r.Context(), u.ID, id); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleExpensesClear(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"id": "required"}))
		return
	}

	e, err := a.expenseSvc.ClearExpense(r.Context(), u.ID, id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, e)
}

func (a *api) handleExpensesReconcile(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"id": "required"}))
		return
	}

	e, err := a.expenseSvc.Reconcile(r.Context(), u.ID, id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, e)
}

type splitPaidResponse struct {
	Expense domain.Expense `json:"expense"`
	Cleared bool           `json:"cleared"`
}

func (a *api) handleSplitPay(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"id": "required"}))
		return
	}

	e, cleared, err := a.expenseSvc.MarkSplitPaid(r.Context(), u.ID, id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, splitPaidResponse{Expense: e, Cleared: cleared})
}
