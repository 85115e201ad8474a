package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/georgemunganga/bijoux-shop/internal/modules/pricing"
)

const (
	defaultPort         = "8080"
	defaultCurrency     = "EUR"
	defaultPerPage      = 12
	defaultGuestCartTTL = 7 * 24 * time.Hour
	defaultTokenTTL     = 24 * time.Hour
	defaultUploadDir    = "uploads"
	defaultMaxUpload    = 5 << 20
	defaultMailWorkers  = 4
)

// Config is the full runtime configuration, grouped by concern.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Shop     ShopConfig
	Media    MediaConfig
	Mail     MailConfig
	LogLevel string
}

type ServerConfig struct {
	Port         string
	BaseURL      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Secure       bool
}

type DatabaseConfig struct {
	URL string
}

// RedisConfig is optional; an empty Addr keeps guest carts in process memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret        string
	TokenTTL         time.Duration
	SessionHashKey   string
	SessionBlockKey  string
	GuestCartTTL     time.Duration
	BootstrapAdmin   string
	BootstrapAdminPw string
}

// ShopConfig holds the merchandising settings, loadable from YAML.
type ShopConfig struct {
	Name     string             `yaml:"name"`
	Currency string             `yaml:"currency"`
	PerPage  int                `yaml:"per_page"`
	Shipping pricing.Shipping   `yaml:"shipping"`
	Badges   pricing.BadgeRules `yaml:"badges"`
}

type MediaConfig struct {
	Dir            string
	PublicBaseURL  string
	GCSBucket      string
	GCSCredentials string
	MaxUploadBytes int64
}

type MailConfig struct {
	SMTPHost string
	SMTPPort int
	Username string
	Password string
	From     string
	Workers  int
}

// Load reads .env (optional), the YAML shop file named by SHOP_CONFIG (optional)
// and environment variables, in that order of increasing precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getenv("APP_PORT", defaultPort),
			BaseURL:      strings.TrimRight(getenv("APP_BASE_URL", "http://localhost:"+getenv("APP_PORT", defaultPort)), "/"),
			ReadTimeout:  durationEnv("APP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: durationEnv("APP_WRITE_TIMEOUT", 30*time.Second),
			Secure:       strings.EqualFold(os.Getenv("APP_ENV"), "production"),
		},
		Database: DatabaseConfig{URL: os.Getenv("DATABASE_URL")},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       intEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret:        os.Getenv("JWT_SECRET"),
			TokenTTL:         durationEnv("JWT_TTL", defaultTokenTTL),
			SessionHashKey:   os.Getenv("SESSION_HASH_KEY"),
			SessionBlockKey:  os.Getenv("SESSION_BLOCK_KEY"),
			GuestCartTTL:     durationEnv("GUEST_CART_TTL", defaultGuestCartTTL),
			BootstrapAdmin:   os.Getenv("ADMIN_EMAIL"),
			BootstrapAdminPw: os.Getenv("ADMIN_PASSWORD"),
		},
		Shop: DefaultShop(),
		Media: MediaConfig{
			Dir:            getenv("UPLOAD_DIR", defaultUploadDir),
			PublicBaseURL:  strings.TrimRight(getenv("UPLOAD_BASE_URL", "/uploads"), "/"),
			GCSBucket:      os.Getenv("GCS_BUCKET"),
			GCSCredentials: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
			MaxUploadBytes: int64(intEnv("UPLOAD_MAX_BYTES", defaultMaxUpload)),
		},
		Mail: MailConfig{
			SMTPHost: os.Getenv("SMTP_HOST"),
			SMTPPort: intEnv("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getenv("MAIL_FROM", "Bijoux <newsletter@localhost>"),
			Workers:  intEnv("MAIL_WORKERS", defaultMailWorkers),
		},
		LogLevel: getenv("LOG_LEVEL", "info"),
	}

	if path := os.Getenv("SHOP_CONFIG"); path != "" {
		shop, err := LoadShopFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Shop = shop
	}
	applyShopEnv(&cfg.Shop)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultShop returns the settings used when no YAML file is provided.
func DefaultShop() ShopConfig {
	return ShopConfig{
		Name:     "Bijoux",
		Currency: defaultCurrency,
		PerPage:  defaultPerPage,
		Shipping: pricing.Shipping{FreeThreshold: 60, Fee: 4.90},
		Badges:   pricing.DefaultBadgeRules(),
	}
}

// LoadShopFile overlays the YAML file at path on top of DefaultShop.
func LoadShopFile(path string) (ShopConfig, error) {
	shop := DefaultShop()
	raw, err := os.ReadFile(path)
	if err != nil {
		return shop, fmt.Errorf("read shop config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &shop); err != nil {
		return shop, fmt.Errorf("parse shop config %s: %w", path, err)
	}
	return shop, nil
}

func applyShopEnv(shop *ShopConfig) {
	if v, ok := floatEnv("SHIPPING_FREE_THRESHOLD"); ok {
		shop.Shipping.FreeThreshold = v
	}
	if v, ok := floatEnv("SHIPPING_FEE"); ok {
		shop.Shipping.Fee = v
	}
	if v := intEnv("CATALOG_PER_PAGE", 0); v > 0 {
		shop.PerPage = v
	}
}

// Validate checks the settings required to serve traffic.
func (c *Config) Validate() error {
	var problems []string
	if c.Database.URL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if len(c.Auth.JWTSecret) < 16 {
		problems = append(problems, "JWT_SECRET must be at least 16 characters")
	}
	if l := len(c.Auth.SessionHashKey); l != 0 && l < 32 {
		problems = append(problems, "SESSION_HASH_KEY must be at least 32 bytes")
	}
	if l := len(c.Auth.SessionBlockKey); l != 0 && l != 16 && l != 24 && l != 32 {
		problems = append(problems, "SESSION_BLOCK_KEY must be 16, 24 or 32 bytes")
	}
	if c.Shop.Shipping.Fee < 0 || c.Shop.Shipping.FreeThreshold < 0 {
		problems = append(problems, "shipping fee and threshold must not be negative")
	}
	if c.Shop.PerPage <= 0 {
		problems = append(problems, "per_page must be positive")
	}
	if len(problems) > 0 {
		return errors.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func floatEnv(key string) (float64, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
