package httpapi

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"expensemate/internal/auth"
	"expensemate/internal/domain"
	"expensemate/internal/service"
)

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	DBPing func(context.Context) error

	Auth        *service.AuthService
	Connections *service.ConnectionsService
	Expenses    *service.ExpenseService
	Ledger      *service.LedgerService
	Users       *service.UsersService
	Admin       *service.AdminService
	Email       *service.EmailService
	Site        *service.SiteService
	Reset       *service.PasswordResetService

	CookieCodec  auth.CookieCodec
	CookieSecure bool
	SessionTTL   time.Duration
	AdminSecret  string
	PublicURL    *url.URL
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	api := &api{
		logger:         logger,
		isProd:         opts.IsProd,
		dbPing:         opts.DBPing,
		authSvc:        opts.Auth,
		connectionsSvc: opts.Connections,
		expenseSvc:     opts.Expenses,
		ledgerSvc:      opts.Ledger,
		usersSvc:       opts.Users,
		adminSvc:       opts.Admin,
		emailSvc:       opts.Email,
		siteSvc:        opts.Site,
		resetSvc:       opts.Reset,
		cookieCodec:    opts.CookieCodec,
		cookieSecure:   opts.CookieSecure,
		sessionTTL:     opts.SessionTTL,
		adminSecret:    opts.AdminSecret,
		publicURL:      opts.PublicURL,
		loginLimiter:   newLoginLimiter(),
		metrics:        newMetrics(),
	}

	publicMux := http.NewServeMux()
	apiMux := http.NewServeMux()

	publicMux.HandleFunc("GET /healthz", api.handleHealthz)
	publicMux.Handle("GET /metrics", api.metrics.handler)

	apiMux.HandleFunc("GET /v1/site/status", api.handleSiteStatus)

	if api.authSvc == nil {
		apiMux.HandleFunc("POST /v1/auth/register", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/login", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/google", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/apple", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/logout", handleNotImplemented)
		apiMux.HandleFunc("GET /v1/users/me", handleNotImplemented)
	} else {
		apiMux.HandleFunc("POST /v1/auth/register", api.handleAuthRegister)
		apiMux.HandleFunc("POST /v1/auth/login", api.handleAuthLogin)
		apiMux.HandleFunc("POST /v1/auth/google", api.handleAuthLoginGoogle)
		apiMux.HandleFunc("POST /v1/auth/apple", api.handleAuthLoginApple)
		apiMux.HandleFunc("POST /v1/auth/logout", api.requireAuth(api.handleAuthLogout))
		apiMux.HandleFunc("POST /v1/auth/forgot", api.handleAuthForgot)
		apiMux.HandleFunc("POST /v1/auth/reset", api.handleAuthReset)
		apiMux.HandleFunc("GET /v1/users/me", api.requireAuth(api.handleUsersMe))
		if api.usersSvc != nil {
			apiMux.HandleFunc("PATCH /v1/users/me", api.requireAuth(api.handleUsersMeUpdate))
			apiMux.HandleFunc("GET /v1/users/search", api.requireAuth(api.handleUsersSearch))
		}

		if api.connectionsSvc != nil {
			apiMux.HandleFunc("GET /v1/connections", api.requireAuth(api.handleConnectionsList))
			apiMux.HandleFunc("POST /v1/connections/requests", api.requireAuth(api.handleConnectionsCreateRequest))
			apiMux.HandleFunc("POST /v1/connections/requests/{id}/accept", api.requireAuth(api.handleConnectionsAccept))
			apiMux.HandleFunc("POST /v1/connections/requests/{id}/reject", api.requireAuth(api.handleConnectionsReject))
			apiMux.HandleFunc("DELETE /v1/connections/{userID}", api.requireAuth(api.handleConnectionsRemove))
		}

		if api.expenseSvc != nil {
			apiMux.HandleFunc("POST /v1/expenses", api.requireAuth(api.handleExpensesCreate))
			apiMux.HandleFunc("GET /v1/expenses", api.requireAuth(api.handleExpensesList))
			apiMux.HandleFunc("GET /v1/expenses/dashboard", api.requireAuth(api.handleExpensesDashboard))
			apiMux.HandleFunc("GET /v1/expenses/summary", api.requireAuth(api.handleExpensesSummary))
			apiMux.HandleFunc("GET /v1/expenses/{id}", api.requireAuth(api.handleExpensesGet))
			apiMux.HandleFunc("PATCH /v1/expenses/{id}", api.requireAuth(api.handleExpensesUpdate))
			apiMux.HandleFunc("DELETE /v1/expenses/{id}", api.requireAuth(api.handleExpensesDelete))
			apiMux.HandleFunc("POST /v1/expenses/{id}/clear", api.requireAuth(api.handleExpensesClear))
			apiMux.HandleFunc("POST /v1/expenses/{id}/reconcile", api.requireAuth(api.handleExpensesReconcile))
			apiMux.HandleFunc("POST /v1/expenses/splits/{id}/pay", api.requireAuth(api.handleSplitPay))
		}
	}

	apiMux.HandleFunc("POST /v1/admin/broadcast", api.requireAdmin(api.handleAdminBroadcast))
	apiMux.HandleFunc("GET /v1/admin/maintenance", api.requireAdmin(api.handleAdminMaintenanceGet))
	apiMux.HandleFunc("POST /v1/admin/maintenance", api.requireAdmin(api.handleAdminMaintenanceSet))
	apiMux.HandleFunc("GET /v1/admin/users", api.requireAdmin(api.handleAdminUsersList))
	apiMux.HandleFunc("POST /v1/admin/users/{id}/status", api.requireAdmin(api.handleAdminUserSetStatus))

	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, pattern := apiMux.Handler(r)
		if pattern == "" {
			handleV1NotFound(w, r)
			return
		}
		if api.maintenanceBlocked(r, pattern) {
			WriteDomainError(w, domain.ErrMaintenanceMode)
			return
		}
		api.metrics.observe(pattern, h, w, r)
	})

	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") || r.URL.Path == "/v1" {
			apiHandler.ServeHTTP(w, r)
			return
		}
		publicMux.ServeHTTP(w, r)
	})

	var h http.Handler = root
	h = RequestLogger(logger)(h)
	h = RequestID()(h)
	h = Recoverer(logger, opts.IsProd)(h)
	return h
}

func handleNotImplemented(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotImplemented, "not_implemented", "not implemented")
}

func handleV1NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, "not_found", "not found")
}

type api struct {
	logger *slog.Logger
	isProd bool

	dbPing func(context.Context) error

	authSvc        *service.AuthService
	connectionsSvc *service.ConnectionsService
	expenseSvc     *service.ExpenseService
	ledgerSvc      *service.LedgerService
	usersSvc       *service.UsersService
	adminSvc       *service.AdminService
	emailSvc       *service.EmailService
	siteSvc        *service.SiteService
	resetSvc       *service.PasswordResetService

	cookieCodec  auth.CookieCodec
	cookieSecure bool
	sessionTTL   time.Duration
	adminSecret  string
	publicURL    *url.URL

	loginLimiter *loginLimiter
	metrics      *metrics
}

// maintenanceBlocked reports whether the maintenance switch should turn the
// request away. Admin routes and the status probe keep working so an
// operator can flip the switch back off.
func (a *api) maintenanceBlocked(r *http.Request, pattern string) bool {
	if a.siteSvc == nil {
		return false
	}
	if strings.Contains(pattern, "/v1/admin/") || strings.Contains(pattern, "/v1/site/status") {
		return false
	}

	settings, err := a.siteSvc.Status(r.Context())
	if err != nil {
		a.logger.Error("site settings lookup failed", "err", err)
		return false
	}
	return settings.MaintenanceMode
}

func (a *api) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.adminSecret == "" {
			WriteError(w, http.StatusServiceUnavailable, "admin_unavailable", "admin api not configured")
			return
		}
		got := r.Header.Get("X-Admin-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(a.adminSecret)) != 1 {
			WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	}
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}
