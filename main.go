package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cagatayturkan/blog-api/internal/auth"
	"github.com/cagatayturkan/blog-api/internal/blacklist"
	"github.com/cagatayturkan/blog-api/internal/config"
	"github.com/cagatayturkan/blog-api/internal/mail"
	"github.com/cagatayturkan/blog-api/internal/metrics"
	"github.com/cagatayturkan/blog-api/internal/oauth"
	"github.com/cagatayturkan/blog-api/internal/reset"
	"github.com/cagatayturkan/blog-api/internal/session"
	"github.com/cagatayturkan/blog-api/internal/store"
	"github.com/cagatayturkan/blog-api/internal/sweep"
	"github.com/cagatayturkan/blog-api/internal/token"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Embeds the migration files INTO the go bin

//go:embed migrations/*.sql
var migrationsDir embed.FS

// routerOptions carries the HTTP-layer settings buildRouter needs.
type routerOptions struct {
	AllowedOrigins []string
	// Per-IP budget on the unauthenticated credential endpoints.
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	// Cancel ctx on SIGINT/SIGTERM; run() shuts down when ctx is done.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load config first so we can set log level
	cfg, err := config.Load(ctx)
	if err != nil {
		// Fallback logger before config is available
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}

	// Include source location in log entries at debug level only.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     cfg.LogLevel,
		AddSource: cfg.LogLevel == slog.LevelDebug,
	})))

	// run() is a separate func so deferred closes (ps, rdb) always execute before os.Exit.
	if err := run(ctx, cfg, nil, nil); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// run holds all server logic and returns error instead of calling os.Exit,
// so deferred resource cleanup always runs.
// Shuts down when ctx is cancelled (signal handling is the caller's concern).
// If ready is non-nil, the server's base URL is sent on it once the listener is bound.
// A non-nil ml replaces the SMTP/no-op mailer (e2e tests capture reset links with it).
func run(ctx context.Context, cfg *config.Config, ready chan<- string, ml mail.Mailer) error {
	ps, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to set up postgres store: %w", err)
	}
	defer ps.Close()

	migrationsFS, err := fs.Sub(migrationsDir, "migrations")
	if err != nil {
		return fmt.Errorf("failed to access embedded migrations: %w", err)
	}
	if err := ps.Migrate(ctx, migrationsFS); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Shared Redis client; cache, sessions and the mail queue share one pool.
	rdb, err := store.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to set up redis client: %w", err)
	}
	defer rdb.Close()
	rs := store.NewRedisStore(rdb)

	// Background workers stop when run() returns.
	bgCtx, cancelBg := context.WithCancel(ctx)
	defer cancelBg()

	h, jobs, err := wire(bgCtx, cfg, ps, rs, rdb, ml)
	if err != nil {
		return err
	}
	waitSweeps := sweep.Start(bgCtx, jobs...)
	defer waitSweeps()
	// runs before waitSweeps so the goroutines see the cancellation
	defer cancelBg()

	// Bind listener; ":0" picks a free port (useful in tests).
	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	server := &http.Server{
		Handler: buildRouter(h, routerOptions{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AuthRateLimit:  cfg.AuthRateLimit,
			AuthRateWindow: cfg.AuthRateWindow,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine; run() continues past this.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("blog api listening", "addr", ln.Addr().String(), "strategy", cfg.InvalidationStrategy)
		// Send error only if server stops for a reason other than explicit shutdown.
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Signal readiness to caller (used by tests; nil in production).
	if ready != nil {
		ready <- "http://" + ln.Addr().String()
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// wire builds the services on top of the stores and returns the handler plus
// the periodic cleanup jobs. The mail worker is started on ctx.
func wire(ctx context.Context, cfg *config.Config, ps *store.PostgresStore, rs *store.RedisStore, rdb *redis.Client, inner mail.Mailer) (*auth.AuthHandler, []sweep.Job, error) {
	signer := token.NewSigner(cfg.JWTSecret, cfg.JWTExpiresIn)
	bl := blacklist.New(ps, rs, signer, blacklist.Options{
		CacheTTL:     cfg.BlacklistCacheTTL,
		ExemptWindow: cfg.BlacklistExemptWindow,
		SentinelTTL:  cfg.SentinelTTL,
	})
	sessions := session.NewRegistry(rs, cfg.SessionTTL)

	// Use NopMailer until SMTP is configured via env vars.
	switch {
	case inner != nil:
	case cfg.SMTPEnabled():
		inner = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUsername,
			Password:    cfg.SMTPPassword,
			FromAddress: cfg.SMTPFromAddress,
		})
	default:
		inner = &mail.NopMailer{}
		slog.Warn("SMTP_HOST not set, outbound email disabled")
	}
	queued := mail.NewQueuedMailer(inner, rdb, cfg.MailQueueMax)
	go queued.StartWorker(ctx)

	strategy := auth.Strategy(cfg.InvalidationStrategy)
	svc := auth.NewService(ps, signer, bl, sessions, queued, auth.Options{
		Strategy:                 strategy,
		RequireEmailVerification: cfg.RequireEmailVerification,
		BcryptCost:               cfg.BcryptCost,
	})

	resetOpts := reset.Options{
		TokenTTL:      cfg.ResetTokenTTL,
		Cooldown:      cfg.ResetCooldown,
		UsedRetention: cfg.ResetUsedRetention,
		FrontendURL:   cfg.FrontendURL,
		BcryptCost:    cfg.BcryptCost,
	}
	if strategy == auth.StrategySession {
		resetOpts.Sessions = sessions
	}
	resets := reset.New(ps, ps, queued, bl, resetOpts)

	providers := map[string]oauth.Provider{}
	if cfg.GoogleEnabled() {
		google, err := oauth.NewGoogleProvider(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to set up google oauth: %w", err)
		}
		providers[google.Name()] = google
	}

	h := &auth.AuthHandler{
		Svc:            svc,
		Resets:         resets,
		OAuthProviders: providers,
		FrontendURL:    cfg.FrontendURL,
		PS:             ps,
		RS:             rs,
	}

	const day = 24 * time.Hour
	jobs := []sweep.Job{
		{Name: "blacklist_expired", Interval: day, Run: func(ctx context.Context) (int64, error) {
			n, err := bl.CleanupExpired(ctx)
			if err != nil {
				return 0, err
			}
			if total, err := ps.CountBlacklist(ctx); err != nil {
				slog.Warn("sweep: counting blacklist failed", "error", err)
			} else {
				metrics.BlacklistEntries.Set(float64(total))
			}
			return n, nil
		}},
		{Name: "resets_expired", Interval: day, Run: resets.SweepExpired},
		{Name: "resets_used", Interval: 7 * day, Run: resets.SweepUsed},
	}
	return h, jobs, nil
}

// buildRouter wires all routes and middleware.
// Called from run() and from the smoke tests.
func buildRouter(h *auth.AuthHandler, opts routerOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))

	r.Get("/health", h.CheckHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		// Credential endpoints share a per-IP budget.
		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(opts.AuthRateLimit, opts.AuthRateWindow))
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/forgot-password", h.ForgotPassword)
			r.Post("/reset-password", h.ResetPassword)
		})
		r.Post("/refresh", h.Refresh)
		r.Get("/validate-reset-token", h.ValidateResetToken)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)
			r.Post("/logout", h.Logout)
			r.Post("/logout-all", h.LogoutAll)
			r.Post("/change-password", h.ChangePassword)
			r.Get("/profile", h.Profile)
			r.Get("/session", h.Session)
		})

		r.Get("/{provider}", h.OAuthRedirect)
		r.Get("/{provider}/callback", h.OAuthCallback)
	})

	// User administration; ownership rules live in the handlers.
	r.Route("/users", func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.With(auth.RequireRole(store.RoleSuperAdmin)).Get("/", h.ListUsers)
		r.Get("/{id}", h.GetUser)
		r.Put("/{id}", h.UpdateUser)
		r.Delete("/{id}", h.RemoveUser)
		r.With(auth.RequireRole(store.RoleSuperAdmin)).Patch("/{id}/role", h.UpdateRole)
		r.With(auth.RequireRole(store.RoleSuperAdmin)).Post("/{id}/revoke-tokens", h.RevokeTokens)
		r.With(auth.RequireRole(store.RoleSuperAdmin)).Get("/{id}/revocation", h.Revocation)
		r.With(auth.RequireRole(store.RoleSuperAdmin)).Delete("/{id}/revocation", h.LiftRevocation)
	})

	return r
}
