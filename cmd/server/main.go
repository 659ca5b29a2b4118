package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/lmittmann/tint"

	"expensemate/internal/adminui"
	"expensemate/internal/auth"
	"expensemate/internal/config"
	"expensemate/internal/domain"
	"expensemate/internal/httpapi"
	"expensemate/internal/service"
	"expensemate/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)

	var (
		authSvc        *service.AuthService
		connectionsSvc *service.ConnectionsService
		expenseSvc     *service.ExpenseService
		ledgerSvc      *service.LedgerService
		usersSvc       *service.UsersService
		adminSvc       *service.AdminService
		emailSvc       *service.EmailService
		siteSvc        *service.SiteService
		resetSvc       *service.PasswordResetService
		dbPing         func(context.Context) error
	)

	ctx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	if cfg.DBDSN != "" {
		pgPool, err := postgres.Open(ctx, cfg.DBDSN)
		if err != nil {
			logger.Error("db open failed", "err", err)
			os.Exit(1)
		}
		defer pgPool.Close()

		if err := postgres.Migrate(ctx, pgPool); err != nil {
			logger.Error("db migrate failed", "err", err)
			os.Exit(1)
		}

		users := postgres.NewUsersStore(pgPool)
		sessions := postgres.NewSessionsStore(pgPool)
		external := postgres.NewExternalAccountsStore(pgPool)
		connections := postgres.NewConnectionsStore(pgPool)
		expenses := postgres.NewExpensesStore(pgPool)
		userSearch := postgres.NewUserSearchStore(pgPool)
		adminUsers := postgres.NewAdminUsersStore(pgPool)
		adminSettings := postgres.NewAdminSettingsStore(pgPool)
		siteSettings := postgres.NewSiteSettingsStore(pgPool)
		resetTokens := postgres.NewPasswordResetStore(pgPool)

		if err := bootstrapAdminUser(ctx, logger, users, cfg.AdminBootstrapEmail, cfg.AdminBootstrapUsername, cfg.AdminBootstrapPassword); err != nil {
			logger.Error("bootstrap admin failed", "err", err)
			os.Exit(1)
		}

		authSvc = &service.AuthService{
			Users:          users,
			Sessions:       sessions,
			External:       external,
			SessionTTL:     cfg.SessionTTL,
			GoogleClientID: cfg.GoogleClientID,
			AppleServiceID: cfg.AppleServiceID,
		}
		connectionsSvc = &service.ConnectionsService{
			Users:       users,
			Connections: connections,
		}
		expenseSvc = &service.ExpenseService{
			Expenses:    expenses,
			Connections: connections,
		}
		ledgerSvc = &service.LedgerService{Expenses: expenses}
		usersSvc = &service.UsersService{Search: userSearch, Profile: users}
		adminSvc = &service.AdminService{Users: adminUsers}
		emailSvc = &service.EmailService{Settings: adminSettings, Recipients: adminUsers}
		siteSvc = &service.SiteService{Store: siteSettings}
		resetSvc = &service.PasswordResetService{Store: resetTokens, Users: users}
		dbPing = pgPool.Ping

		go purgeSessionsLoop(ctx, logger, sessions)
	}

	apiRouter := httpapi.NewRouter(httpapi.RouterOpts{
		Logger:       logger,
		IsProd:       cfg.IsProd(),
		DBPing:       dbPing,
		Auth:         authSvc,
		Connections:  connectionsSvc,
		Expenses:     expenseSvc,
		Ledger:       ledgerSvc,
		Users:        usersSvc,
		Admin:        adminSvc,
		Email:        emailSvc,
		Site:         siteSvc,
		Reset:        resetSvc,
		CookieCodec:  auth.NewCookieCodec([]byte(cfg.CookieSecret)),
		CookieSecure: cfg.CookieSecure(),
		SessionTTL:   cfg.SessionTTL,
		AdminSecret:  cfg.AdminSecret,
		PublicURL:    cfg.PublicURL,
	})

	root := http.NewServeMux()
	root.Handle("/", apiRouter)

	if adminSvc != nil && authSvc != nil && len(cfg.AdminEmails) > 0 {
		logger.Info("admin ui enabled", "admin_emails", len(cfg.AdminEmails))
		adminRouter := adminui.New(adminui.Opts{
			Logger:       logger,
			Auth:         authSvc,
			Admin:        adminSvc,
			Email:        emailSvc,
			Site:         siteSvc,
			CookieCodec:  auth.NewCookieCodec([]byte(cfg.CookieSecret)),
			CookieSecure: cfg.CookieSecure(),
			SessionTTL:   cfg.SessionTTL,
			AdminEmails:  cfg.AdminEmails,
		})
		root.Handle("/admin", adminRouter)
		root.Handle("/admin/", adminRouter)
	} else {
		logger.Info("admin ui disabled", "admin_emails", len(cfg.AdminEmails), "db_enabled", cfg.DBDSN != "")
		root.HandleFunc("/admin", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/admin/", http.StatusFound)
		})
		root.HandleFunc("/admin/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("admin ui disabled: set APP_DB_DSN and APP_ADMIN_EMAILS (and restart the server)\n"))
		})
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

// purgeSessionsLoop deletes long-expired session rows once an hour so the
// table does not grow without bound.
func purgeSessionsLoop(ctx context.Context, logger *slog.Logger, sessions *postgres.SessionsStore) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.PurgeExpired(ctx, time.Now().Add(-24*time.Hour))
			if err != nil {
				logger.Error("session purge failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Info("purged expired sessions", "count", n)
			}
		}
	}
}

func bootstrapAdminUser(ctx context.Context, logger *slog.Logger, users *postgres.UsersStore, email, username, password string) error {
	if password == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(password) < 12 {
		return errors.New("APP_ADMIN_BOOTSTRAP_PASSWORD: must be at least 12 characters")
	}
	if email == "" || username == "" {
		return errors.New("admin bootstrap: email and username are required")
	}

	_, err := users.GetUserByEmail(ctx, email)
	if err == nil {
		logger.Info("admin bootstrap: user already exists", "email", email)
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("admin bootstrap: lookup user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("admin bootstrap: hash password: %w", err)
	}

	_, err = users.CreateUser(ctx, email, username, username, hash)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) || errors.Is(err, domain.ErrUsernameTaken) {
			logger.Info("admin bootstrap: user already exists", "email", email)
			return nil
		}
		return fmt.Errorf("admin bootstrap: create user: %w", err)
	}

	logger.Info("admin bootstrap: created admin user", "email", email)
	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}
