package httpapi

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"

	"expensemate/internal/domain"
	"expensemate/internal/email"
	"expensemate/internal/service"
)

type broadcastAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

type broadcastRequest struct {
	Subject     string                `json:"subject"`
	TextBody    string                `json:"text_body"`
	HTMLBody    string                `json:"html_body"`
	Attachments []broadcastAttachment `json:"attachments"`
}

type broadcastResponse struct {
	Recipients int `json:"recipients"`
}

func (a *api) handleAdminBroadcast(w http.ResponseWriter, r *http.Request) {
	if a.emailSvc == nil {
		WriteError(w, http.StatusServiceUnavailable, "email_unavailable", "email unavailable")
		return
	}

	var req broadcastRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	attachments := make([]email.Attachment, 0, len(req.Attachments))
	for i, att := range req.Attachments {
		data, err := base64.StdEncoding.DecodeString(att.Data)
		if err != nil {
			WriteDomainError(w, domain.NewValidationError(map[string]string{
				"attachments[" + strconv.Itoa(i) + "]": "data must be base64",
			}))
			return
		}
		attachments = append(attachments, email.Attachment{
			Filename:    strings.TrimSpace(att.Filename),
			ContentType: strings.TrimSpace(att.ContentType),
			Data:        data,
		})
	}

	n, err := a.emailSvc.Broadcast(r.Context(), service.BroadcastParams{
		Subject:     req.Subject,
		TextBody:    req.TextBody,
		HTMLBody:    req.HTMLBody,
		Attachments: attachments,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	a.logger.Info("admin broadcast sent", "recipients", n)
	WriteJSON(w, http.StatusOK, broadcastResponse{Recipients: n})
}

func (a *api) handleAdminMaintenanceGet(w http.ResponseWriter, r *http.Request) {
	if a.siteSvc == nil {
		WriteError(w, http.StatusServiceUnavailable, "site_unavailable", "site settings unavailable")
		return
	}

	settings, err := a.siteSvc.Status(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, settings)
}

type maintenanceRequest struct {
	Enabled bool `json:"enabled"`
}

func (a *api) handleAdminMaintenanceSet(w http.ResponseWriter, r *http.Request) {
	if a.siteSvc == nil {
		WriteError(w, http.StatusServiceUnavailable, "site_unavailable", "site settings unavailable")
		return
	}

	var req maintenanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	settings, err := a.siteSvc.SetMaintenanceMode(r.Context(), req.Enabled)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	a.logger.Info("maintenance mode changed", "enabled", settings.MaintenanceMode)
	WriteJSON(w, http.StatusOK, settings)
}

func (a *api) handleAdminUsersList(w http.ResponseWriter, r *http.Request) {
	if a.adminSvc == nil {
		WriteError(w, http.StatusServiceUnavailable, "admin_unavailable", "admin unavailable")
		return
	}

	limit := 50
	offset := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}

	var (
		users []domain.User
		err   error
	)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		users, err = a.adminSvc.SearchUsers(r.Context(), q, limit, offset)
	} else {
		users, err = a.adminSvc.ListUsers(r.Context(), limit, offset)
	}
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	out := make([]adminUserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, adminUserResponse{
			ID:          u.ID,
			Email:       u.Email,
			Username:    u.Username,
			DisplayName: u.DisplayName,
			Status:      string(u.Status),
			CreatedAt:   u.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	WriteJSON(w, http.StatusOK, out)
}

type adminUserResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

type setUserStatusRequest struct {
	Disabled bool `json:"disabled"`
}

func (a *api) handleAdminUserSetStatus(w http.ResponseWriter, r *http.Request) {
	if a.adminSvc == nil {
		WriteError(w, http.StatusServiceUnavailable, "admin_unavailable", "admin unavailable")
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"id": "required"}))
		return
	}

	var req setUserStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	if err := a.adminSvc.SetUserStatus(r.Context(), id, req.Disabled); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
