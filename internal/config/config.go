// config.go

// Environment variable loading and validation.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// minSecretBytes is the shortest HS256 key accepted.
const minSecretBytes = 32

// Config holds all env configuration vars for the API.
type Config struct {
	DatabaseURL string     `env:"DATABASE_URL,required"`
	RedisURL    string     `env:"REDIS_URL,required"`
	Port        string     `env:"PORT,default=3000"`
	LogLevel    slog.Level `env:"LOG_LEVEL,default=info"`

	JWTSecret    string        `env:"JWT_SECRET,required"`
	JWTExpiresIn time.Duration `env:"JWT_EXPIRES_IN,default=1h"`

	// InvalidationStrategy picks the guard RequireAuth consults: "blacklist" or "session".
	InvalidationStrategy string        `env:"INVALIDATION_STRATEGY,default=blacklist"`
	SessionTTL           time.Duration `env:"SESSION_TTL,default=60s"`

	BlacklistCacheTTL     time.Duration `env:"BLACKLIST_CACHE_TTL,default=5m"`
	BlacklistExemptWindow time.Duration `env:"BLACKLIST_EXEMPT_WINDOW,default=30s"`
	SentinelTTL           time.Duration `env:"ALL_TOKENS_SENTINEL_TTL,default=24h"`

	ResetTokenTTL      time.Duration `env:"RESET_TOKEN_TTL,default=1h"`
	ResetCooldown      time.Duration `env:"RESET_COOLDOWN,default=5m"`
	ResetUsedRetention time.Duration `env:"RESET_USED_RETENTION,default=168h"`

	// RequireEmailVerification gates login on is_email_verified.
	RequireEmailVerification bool `env:"REQUIRE_EMAIL_VERIFICATION,default=false"`
	BcryptCost               int  `env:"BCRYPT_COST,default=10"`

	// Per-IP budget shared by the credential endpoints.
	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT,default=10"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW,default=1m"`

	FrontendURL        string   `env:"FRONTEND_URL,default=http://localhost:3000"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:3000"`

	// SMTP configuration for outbound email. Empty Host disables sending.
	SMTPHost        string `env:"SMTP_HOST"`
	SMTPPort        string `env:"SMTP_PORT,default=587"`
	SMTPUsername    string `env:"SMTP_USERNAME"`
	SMTPPassword    string `env:"SMTP_PASSWORD"`
	SMTPFromAddress string `env:"SMTP_FROM"`
	MailQueueMax    int64  `env:"MAIL_QUEUE_MAX,default=1000"`

	// Google OAuth. Empty client ID disables the provider.
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL"`
}

// Load reads the process environment and returns a validated Config.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom is Load over an arbitrary lookuper (tests pass envconfig.MapLookuper).
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.RedisURL == "" {
		return errors.New("REDIS_URL is required")
	}
	if len(c.JWTSecret) < minSecretBytes {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretBytes)
	}
	switch c.InvalidationStrategy {
	case "blacklist", "session":
	default:
		return fmt.Errorf("INVALIDATION_STRATEGY must be blacklist or session, got %q", c.InvalidationStrategy)
	}

	for name, d := range map[string]time.Duration{
		"JWT_EXPIRES_IN":          c.JWTExpiresIn,
		"SESSION_TTL":             c.SessionTTL,
		"BLACKLIST_CACHE_TTL":     c.BlacklistCacheTTL,
		"BLACKLIST_EXEMPT_WINDOW": c.BlacklistExemptWindow,
		"ALL_TOKENS_SENTINEL_TTL": c.SentinelTTL,
		"RESET_TOKEN_TTL":         c.ResetTokenTTL,
		"RESET_COOLDOWN":          c.ResetCooldown,
		"RESET_USED_RETENTION":    c.ResetUsedRetention,
		"AUTH_RATE_WINDOW":        c.AuthRateWindow,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	// a sentinel that expires before the tokens it covers would revive them
	if c.SentinelTTL < c.JWTExpiresIn {
		return errors.New("ALL_TOKENS_SENTINEL_TTL must be at least JWT_EXPIRES_IN")
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.AuthRateLimit <= 0 {
		return errors.New("AUTH_RATE_LIMIT must be positive")
	}
	if c.MailQueueMax <= 0 {
		return errors.New("MAIL_QUEUE_MAX must be positive")
	}

	// Tokens in reset links must not travel over plain HTTP.
	if c.SMTPHost != "" {
		if !strings.HasPrefix(c.FrontendURL, "https://") {
			return errors.New("FRONTEND_URL must start with https:// when SMTP is configured")
		}
		if c.SMTPFromAddress == "" {
			return errors.New("SMTP_FROM is required when SMTP_HOST is set")
		}
	}

	if c.GoogleClientID != "" && (c.GoogleClientSecret == "" || c.GoogleCallbackURL == "") {
		return errors.New("GOOGLE_CLIENT_SECRET and GOOGLE_CALLBACK_URL are required when GOOGLE_CLIENT_ID is set")
	}
	return nil
}

// SMTPEnabled reports whether outbound mail is configured.
func (c *Config) SMTPEnabled() bool { return c.SMTPHost != "" }

// GoogleEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleEnabled() bool { return c.GoogleClientID != "" }
