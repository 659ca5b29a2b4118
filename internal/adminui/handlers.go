package adminui

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"expensemate/internal/auth"
	"expensemate/internal/domain"
	"expensemate/internal/email"
	"expensemate/internal/service"
)

func (a *app) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := dashboardViewData{
		Title:  "Admin",
		Notice: strings.TrimSpace(r.URL.Query().Get("notice")),
		Error:  strings.TrimSpace(r.URL.Query().Get("error")),
	}

	if a.siteSvc != nil {
		if settings, err := a.siteSvc.Status(r.Context()); err == nil {
			data.MaintenanceMode = settings.MaintenanceMode
		}
	}
	if a.emailSvc != nil {
		if settings, ok, err := a.emailSvc.GetSMTPSettings(r.Context()); err == nil && ok {
			data.SMTPConfigured = true
			data.SMTP = smtpForm{
				Host:      settings.Host,
				Port:      settings.Port,
				Username:  settings.Username,
				TLSMode:   settings.TLSMode,
				FromName:  settings.FromName,
				FromEmail: settings.FromEmail,
			}
		}
	}

	a.templates.renderDashboard(w, http.StatusOK, data)
}

func (a *app) handleLoginGet(w http.ResponseWriter, _ *http.Request) {
	a.templates.renderLogin(w, http.StatusOK, viewData{Title: "Admin Login"})
}

func (a *app) handleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.templates.renderLogin(w, http.StatusBadRequest, viewData{Title: "Admin Login", Error: "Invalid form"})
		return
	}

	login := strings.TrimSpace(strings.ToLower(r.Form.Get("email")))
	password := r.Form.Get("password")
	if login == "" || password == "" {
		a.templates.renderLogin(w, http.StatusBadRequest, viewData{Title: "Admin Login", Error: "Email and password are required"})
		return
	}

	ip := clientIP(r)
	userAgent := r.UserAgent()

	u, sessID, err := a.authSvc.Login(r.Context(), login, password, ip, userAgent)
	if err != nil {
		a.templates.renderLogin(w, http.StatusUnauthorized, viewData{Title: "Admin Login", Error: "Invalid credentials"})
		return
	}
	if !a.adminEmails[strings.ToLower(u.Email)] {
		a.templates.renderLogin(w, http.StatusForbidden, viewData{Title: "Admin Login", Error: "Not allowed"})
		return
	}

	cookieValue := a.cookieCodec.EncodeSessionID(sessID)
	auth.SetSessionCookie(w, cookieValue, a.sessionTTL, a.cookieSecure)
	http.Redirect(w, r, "/admin/", http.StatusFound)
}

func (a *app) handleLogoutPost(w http.ResponseWriter, r *http.Request) {
	_, sessID, ok := a.currentUser(r)
	if ok {
		_ = a.authSvc.Logout(r.Context(), sessID)
	}
	auth.ClearSessionCookie(w, a.cookieSecure)
	http.Redirect(w, r, "/admin/login", http.StatusFound)
}

func (a *app) handleUsersList(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	var (
		users []domain.User
		err   error
	)
	if q != "" {
		users, err = a.adminSvc.SearchUsers(r.Context(), q, 50, 0)
	} else {
		users, err = a.adminSvc.ListUsers(r.Context(), 50, 0)
	}
	if err != nil {
		a.templates.renderError(w, http.StatusInternalServerError, "Error", "Failed to load users")
		return
	}

	rows := make([]userRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, userRow{
			ID:          u.ID,
			Email:       u.Email,
			Username:    u.Username,
			DisplayName: u.DisplayName,
			Status:      string(u.Status),
			Disabled:    u.Status == domain.UserStatusDisabled,
		})
	}
	a.templates.renderUsers(w, http.StatusOK, usersViewData{
		Title:  "Users",
		Users:  rows,
		Query:  q,
		Notice: strings.TrimSpace(r.URL.Query().Get("notice")),
	})
}

func (a *app) handleUserSetStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.templates.renderError(w, http.StatusBadRequest, "Error", "Invalid form")
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	disabled := r.Form.Get("disabled") == "1"
	if id == "" {
		a.templates.renderError(w, http.StatusBadRequest, "Error", "Missing user id")
		return
	}

	if err := a.adminSvc.SetUserStatus(r.Context(), id, disabled); err != nil {
		a.templates.renderError(w, http.StatusInternalServerError, "Error", "Failed to update user")
		return
	}
	redirectNotice(w, r, "/admin/users", "User updated")
}

func (a *app) handleMaintenancePost(w http.ResponseWriter, r *http.Request) {
	if a.siteSvc == nil {
		a.templates.renderError(w, http.StatusServiceUnavailable, "Error", "Site settings unavailable")
		return
	}
	if err := r.ParseForm(); err != nil {
		a.templates.renderError(w, http.StatusBadRequest, "Error", "Invalid form")
		return
	}

	enabled := r.Form.Get("enabled") == "1"
	settings, err := a.siteSvc.SetMaintenanceMode(r.Context(), enabled)
	if err != nil {
		a.templates.renderError(w, http.StatusInternalServerError, "Error", "Failed to update maintenance mode")
		return
	}

	a.logger.Info("maintenance mode changed", "enabled", settings.MaintenanceMode)
	notice := "Maintenance mode disabled"
	if settings.MaintenanceMode {
		notice = "Maintenance mode enabled"
	}
	redirectNotice(w, r, "/admin/", notice)
}

// handleBroadcastPost accepts a multipart form so the operator can attach a
// file to the announcement. Recipients always ride in BCC.
func (a *app) handleBroadcastPost(w http.ResponseWriter, r *http.Request) {
	if a.emailSvc == nil {
		a.templates.renderError(w, http.StatusServiceUnavailable, "Error", "Email unavailable")
		return
	}
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		a.templates.renderError(w, http.StatusBadRequest, "Error", "Invalid form")
		return
	}

	params := service.BroadcastParams{
		Subject:  r.FormValue("subject"),
		TextBody: r.FormValue("text_body"),
		HTMLBody: r.FormValue("html_body"),
	}

	if file, header, err := r.FormFile("attachment"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, 8<<20))
		if err != nil {
			a.templates.renderError(w, http.StatusBadRequest, "Error", "Failed to read attachment")
			return
		}
		params.Attachments = []email.Attachment{{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}}
	}

	n, err := a.emailSvc.Broadcast(r.Context(), params)
	if err != nil {
		a.logger.Error("broadcast failed", "err", err)
		redirectError(w, r, "/admin/", "Broadcast failed: "+err.Error())
		return
	}

	a.logger.Info("admin broadcast sent", "recipients", n)
	redirectNotice(w, r, "/admin/", fmt.Sprintf("Broadcast sent to %d recipients", n))
}

func (a *app) handleSMTPPost(w http.ResponseWriter, r *http.Request) {
	if a.emailSvc == nil {
		a.templates.renderError(w, http.StatusServiceUnavailable, "Error", "Email unavailable")
		return
	}
	if err := r.ParseForm(); err != nil {
		a.templates.renderError(w, http.StatusBadRequest, "Error", "Invalid form")
		return
	}

	settings, err := smtpSettingsFromForm(r)
	if err != nil {
		redirectError(w, r, "/admin/", err.Error())
		return
	}

	if err := a.emailSvc.SaveSMTPSettings(r.Context(), settings); err != nil {
		a.logger.Error("save smtp settings failed", "err", err)
		redirectError(w, r, "/admin/", "Failed to save SMTP settings")
		return
	}
	redirectNotice(w, r, "/admin/", "SMTP settings saved")
}

func (a *app) handleSMTPTestPost(w http.ResponseWriter, r *http.Request) {
	if a.emailSvc == nil {
		a.templates.renderError(w, http.StatusServiceUnavailable, "Error", "Email unavailable")
		return
	}
	if err := r.ParseForm(); err != nil {
		a.templates.renderError(w, http.StatusBadRequest, "Error", "Invalid form")
		return
	}

	settings, ok, err := a.emailSvc.GetSMTPSettings(r.Context())
	if err != nil || !ok {
		redirectError(w, r, "/admin/", "Save SMTP settings first")
		return
	}

	toEmail := r.Form.Get("test_email")
	if err := a.emailSvc.SendTestEmail(r.Context(), settings, toEmail); err != nil {
		a.logger.Error("smtp test failed", "err", err)
		redirectError(w, r, "/admin/", "Test email failed: "+err.Error())
		return
	}
	redirectNotice(w, r, "/admin/", "Test email sent")
}

func smtpSettingsFromForm(r *http.Request) (domain.SMTPSettings, error) {
	host := strings.TrimSpace(r.Form.Get("host"))
	if host == "" {
		return domain.SMTPSettings{}, fmt.Errorf("SMTP host is required")
	}
	port, err := strconv.Atoi(strings.TrimSpace(r.Form.Get("port")))
	if err != nil || port <= 0 || port > 65535 {
		return domain.SMTPSettings{}, fmt.Errorf("SMTP port must be 1-65535")
	}
	fromEmail := strings.TrimSpace(strings.ToLower(r.Form.Get("from_email")))
	if fromEmail == "" {
		return domain.SMTPSettings{}, fmt.Errorf("From email is required")
	}

	tlsMode := strings.TrimSpace(r.Form.Get("tls_mode"))
	switch tlsMode {
	case "", "none", "tls", "starttls":
	default:
		return domain.SMTPSettings{}, fmt.Errorf("TLS mode must be none, tls or starttls")
	}

	return domain.SMTPSettings{
		Host:      host,
		Port:      port,
		Username:  strings.TrimSpace(r.Form.Get("username")),
		Password:  r.Form.Get("password"),
		TLSMode:   tlsMode,
		FromName:  strings.TrimSpace(r.Form.Get("from_name")),
		FromEmail: fromEmail,
	}, nil
}

func redirectNotice(w http.ResponseWriter, r *http.Request, to, notice string) {
	http.Redirect(w, r, to+"?notice="+url.QueryEscape(notice), http.StatusFound)
}

func redirectError(w http.ResponseWriter, r *http.Request, to, msg string) {
	http.Redirect(w, r, to+"?error="+url.QueryEscape(msg), http.StatusFound)
}

// minimal duplicate of httpapi.clientIP to avoid import cycles.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
