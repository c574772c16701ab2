package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// Config aggregates runtime configuration for the bot.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Discord  DiscordConfig
	Tickets  TicketsConfig
	AdminAPI AdminAPIConfig
}

// AppConfig controls process level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds store connection values. An empty DSN leaves the
// store unconfigured; every persistence-dependent operation then degrades
// to a no-op or zero value.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds counter backend connection values. An empty Addr
// disables the atomic sequence counter; numbering falls back to the store
// record count.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// DiscordConfig holds gateway credentials and role wiring.
type DiscordConfig struct {
	Token         string
	SupportRoleID string
	MentionRoleID string
}

// RenderMode selects the dashboard rendering path, negotiated once at
// startup rather than per message.
type RenderMode string

const (
	RenderModeRich  RenderMode = "rich"
	RenderModeEmbed RenderMode = "embed"
)

// TicketsConfig carries the static category table and presentation inputs.
type TicketsConfig struct {
	Categories     []domain.Category
	PanelImageURL  string
	BannerImageURL string
	FooterText     string
	AvgResponse    string
	RenderMode     RenderMode
}

// Category resolves a category by slug.
func (t TicketsConfig) Category(slug string) (domain.Category, bool) {
	for _, c := range t.Categories {
		if c.Slug == slug {
			return c, true
		}
	}
	return domain.Category{}, false
}

// Slugs returns the configured category slugs in order.
func (t TicketsConfig) Slugs() []string {
	slugs := make([]string, len(t.Categories))
	for i, c := range t.Categories {
		slugs[i] = c.Slug
	}
	return slugs
}

// AdminAPIConfig protects the read-only ops surface.
type AdminAPIConfig struct {
	Enabled         bool
	JWTSecret       string
	TokenTTLMinutes int
}

var defaultCategories = []domain.Category{
	{Slug: "general", Name: "General Support", Emoji: "🎫"},
	{Slug: "technical", Name: "Technical Support", Emoji: "🔧"},
	{Slug: "billing", Name: "Billing", Emoji: "💳"},
	{Slug: "report", Name: "Report a Player", Emoji: "🛡️"},
}

// Load reads configuration from environment variables, applying defaults
// where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	categories, err := loadCategories()
	if err != nil {
		return nil, err
	}

	mode := RenderMode(getEnv("TICKET_RENDER_MODE", string(RenderModeRich)))
	if mode != RenderModeRich && mode != RenderModeEmbed {
		return nil, fmt.Errorf("invalid TICKET_RENDER_MODE: %q", mode)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-bot"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Discord: DiscordConfig{
			Token:         os.Getenv("DISCORD_TOKEN"),
			SupportRoleID: os.Getenv("DISCORD_SUPPORT_ROLE_ID"),
			MentionRoleID: os.Getenv("DISCORD_MENTION_ROLE_ID"),
		},
		Tickets: TicketsConfig{
			Categories:     categories,
			PanelImageURL:  os.Getenv("TICKET_PANEL_IMAGE_URL"),
			BannerImageURL: os.Getenv("TICKET_BANNER_IMAGE_URL"),
			FooterText:     getEnv("TICKET_FOOTER_TEXT", "Support"),
			AvgResponse:    getEnv("TICKET_AVG_RESPONSE", "1-8 minutes"),
			RenderMode:     mode,
		},
		AdminAPI: AdminAPIConfig{
			Enabled:         getEnvAsBool("ADMIN_API_ENABLED", true),
			JWTSecret:       getEnv("ADMIN_API_JWT_SECRET", "dev-secret"),
			TokenTTLMinutes: getEnvAsInt("ADMIN_API_TOKEN_TTL_MINUTES", 60),
		},
	}

	return cfg, nil
}

func loadCategories() ([]domain.Category, error) {
	raw := os.Getenv("TICKET_CATEGORIES")
	if raw == "" {
		return defaultCategories, nil
	}
	var categories []domain.Category
	if err := json.Unmarshal([]byte(raw), &categories); err != nil {
		return nil, fmt.Errorf("invalid TICKET_CATEGORIES: %w", err)
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("TICKET_CATEGORIES must not be empty")
	}
	for _, c := range categories {
		if c.Slug == "" || c.Name == "" {
			return nil, fmt.Errorf("TICKET_CATEGORIES entries require slug and name")
		}
	}
	return categories, nil
}

// Addr returns the HTTP bind address for the ops API.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
