package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"

	"mmanyinorie/internal/config"
	"mmanyinorie/internal/database"
	"mmanyinorie/internal/email"
	"mmanyinorie/internal/handlers"
	"mmanyinorie/internal/live"
	"mmanyinorie/internal/metrics"
	"mmanyinorie/internal/repository"
	"mmanyinorie/internal/security"
	"mmanyinorie/internal/service"
	"mmanyinorie/internal/storage"
	"mmanyinorie/pkg/logging"
)

func main() {
	cfg := config.Load()
	level := logging.LevelFromString(cfg.LogLevel)
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logging.SetupWithLevel(level)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("Database connection established", "type", cfg.DatabaseType)

	if err := db.RunMigrations(ctx); err != nil {
		return err
	}
	slog.Info("Migrations completed successfully")

	sender, err := email.NewSender(ctx, cfg)
	if err != nil {
		return err
	}
	mailer := email.NewMailer(sender, cfg.AppBaseURL)

	hub := live.NewHub(32)
	m := metrics.New()

	// Services
	authService := service.NewAuthService(repository.NewUserRepository(db), cfg.SessionDuration)
	communityService := service.NewCommunityService(db, hub, m, mailer)
	invitationService := service.NewInvitationService(db, mailer, hub, m, cfg.InvitationTTL)
	reportService := service.NewReportService(db)

	signer := security.NewFileTokenSigner(cfg.TokenSecret, time.Hour)
	avatars, err := storage.NewAvatarStore(cfg.UploadDir, cfg.AppBaseURL, cfg.UploadMaxSize, signer)
	if err != nil {
		return err
	}

	oauthProviders := map[string]handlers.OAuthProvider{
		"google": {
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
	}
	if !cfg.GoogleOAuthEnabled() {
		slog.Info("Google sign-in disabled: GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET not set")
	}

	csrf := security.NewCSRFGenerator(cfg.CSRFSecret)
	routes := handlers.Routes{
		Middleware:  handlers.NewMiddleware(authService, csrf, security.NewRateLimiter(10, time.Minute)),
		Auth:        handlers.NewAuthHandler(authService, csrf, avatars, oauthProviders, cfg.OAuthRedirectBaseURL, cfg.AppBaseURL),
		Communities: handlers.NewCommunityHandler(communityService, reportService),
		Invitations: handlers.NewInvitationHandler(invitationService, communityService),
		Events:      handlers.NewEventsHandler(communityService, hub, m, 25*time.Second),
		Metrics:     m,
		DB:          db,
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      routes.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server starting", "addr", "http://localhost"+server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		cleanupLoop(gctx, authService, invitationService, time.Hour)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// cleanupLoop periodically removes expired sessions and expires overdue invitations
func cleanupLoop(ctx context.Context, authService *service.AuthService, invitationService *service.InvitationService, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n, err := authService.CleanupExpiredSessions(ctx); err != nil {
			slog.Error("Error cleaning up expired sessions", "error", err)
		} else if n > 0 {
			slog.Info("Expired sessions cleaned up", "count", n)
		}

		if n, err := invitationService.ExpireStale(ctx); err != nil {
			slog.Error("Error expiring invitations", "error", err)
		} else if n > 0 {
			slog.Info("Stale invitations expired", "count", n)
		}
	}
}
