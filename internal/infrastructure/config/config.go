package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/quantara/console/internal/core/service"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	PublicURL string `env:"PUBLIC_URL, default=http://localhost:8080"`

	// BootstrapStrategy is "atomic" or "two_phase".
	BootstrapStrategy string `env:"BOOTSTRAP_STRATEGY, default=atomic"`

	Session   SessionConfig
	Supabase  SupabaseConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

type SessionConfig struct {
	TTL          time.Duration `env:"SESSION_TTL,        default=24h"`
	CookieSecure bool          `env:"COOKIE_SECURE,      default=false"`
	CacheSize    int           `env:"SESSION_CACHE_SIZE, default=4096"`
	// LinkKey keys the fingerprints of consumed confirmation links.
	LinkKey string `env:"LINK_KEY"`
}

type SupabaseConfig struct {
	URL            string        `env:"SUPABASE_URL, required"`
	AnonKey        string        `env:"SUPABASE_ANON_KEY, required"`
	ServiceRoleKey string        `env:"SUPABASE_SERVICE_ROLE_KEY"`
	JWTSecret      string        `env:"SUPABASE_JWT_SECRET"`
	Timeout        time.Duration `env:"SUPABASE_TIMEOUT, default=10s"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=console"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// RateLimitConfig holds the request allowance per client IP for each
// route group within Window.
type RateLimitConfig struct {
	Window  time.Duration `env:"RATE_LIMIT_WINDOW,  default=15m"`
	SignUp  int           `env:"RATE_LIMIT_SIGNUP,  default=5"`
	Login   int           `env:"RATE_LIMIT_LOGIN,   default=10"`
	Admin   int           `env:"RATE_LIMIT_ADMIN,   default=50"`
	General int           `env:"RATE_LIMIT_GENERAL, default=100"`
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	strategy, err := service.ParseStrategy(cfg.BootstrapStrategy)
	if err != nil {
		return nil, fmt.Errorf("config: BOOTSTRAP_STRATEGY: %w", err)
	}
	cfg.BootstrapStrategy = strategy
	if strategy == service.StrategyTwoPhase && cfg.Supabase.ServiceRoleKey == "" {
		return nil, fmt.Errorf("config: BOOTSTRAP_STRATEGY two_phase requires SUPABASE_SERVICE_ROLE_KEY")
	}
	if cfg.RateLimit.Window <= 0 {
		return nil, fmt.Errorf("config: RATE_LIMIT_WINDOW must be positive, got %s", cfg.RateLimit.Window)
	}
	return &cfg, nil
}
