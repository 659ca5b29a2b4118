package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"expensemate/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: message}})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteDomainError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		WriteJSON(w, http.StatusBadRequest, errorEnvelope{Error: apiError{
			Code:    "validation_error",
			Message: "invalid request",
			Fields:  ve.Fields,
		}})
		return
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		WriteError(w, http.StatusBadRequest, "validation_error", "invalid request")
	case errors.Is(err, domain.ErrUsernameTaken):
		WriteError(w, http.StatusConflict, "username_taken", "username already taken")
	case errors.Is(err, domain.ErrEmailTaken):
		WriteError(w, http.StatusConflict, "email_taken", "email already taken")
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid login or password")
	case errors.Is(err, domain.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", "forbidden")
	case errors.Is(err, domain.ErrUserDisabled):
		WriteError(w, http.StatusForbidden, "user_disabled", "user is disabled")
	case errors.Is(err, domain.ErrNotExpensePayer):
		WriteError(w, http.StatusForbidden, "not_expense_payer", "only the expense payer may do this")
	case errors.Is(err, domain.ErrConnectionExists):
		WriteError(w, http.StatusConflict, "connection_exists", "connection or request already exists")
	case errors.Is(err, domain.ErrExternalAccountExists):
		WriteError(w, http.StatusConflict, "external_account_exists", "external account already linked")
	case errors.Is(err, domain.ErrExpenseSplit):
		WriteError(w, http.StatusConflict, "expense_has_splits", "expense has split rows")
	case errors.Is(err, domain.ErrNoParticipants):
		WriteError(w, http.StatusBadRequest, "no_participants_selected", "at least one participant is required")
	case errors.Is(err, domain.ErrAmountMismatch):
		WriteError(w, http.StatusBadRequest, "amount_mismatch", "split amounts must add up to the total")
	case errors.Is(err, domain.ErrPercentageMismatch):
		WriteError(w, http.StatusBadRequest, "percentage_mismatch", "split percentages must add up to 100")
	case errors.Is(err, domain.ErrInvalidSplitValue):
		WriteError(w, http.StatusBadRequest, "invalid_split_value", "split values must not be negative")
	case errors.Is(err, domain.ErrResetTokenInvalid):
		WriteError(w, http.StatusBadRequest, "reset_token_invalid", "reset token is invalid")
	case errors.Is(err, domain.ErrResetTokenExpired):
		WriteError(w, http.StatusBadRequest, "reset_token_expired", "reset token has expired")
	case errors.Is(err, domain.ErrMaintenanceMode):
		WriteError(w, http.StatusServiceUnavailable, "maintenance_mode", "service is down for maintenance")
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "not found")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
