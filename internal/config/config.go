package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort             = "8080"
	defaultDatabaseURL      = "repairhub.db"
	defaultLogLevel         = "info"
	defaultSessionSecret    = "change-me-session-secret"
	defaultSessionTTL       = "720h"
	defaultMagicLinkTTL     = "15m"
	defaultMagicLinkPepper  = "change-me-magic-link-pepper"
	defaultPublicBaseURL    = "http://localhost:8080"
	defaultCookieSecure     = "false"
	defaultCookieSameSite   = "Lax"
	defaultGoogleIssuer     = "https://accounts.google.com"
	defaultCatalogCacheTTL  = "5m"
	defaultCatalogCacheSize = "256"
	defaultCORSOrigins      = "http://localhost:3000"
)

type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	LogLevel    string

	SessionSecret   string
	SessionTTL      time.Duration
	MagicLinkTTL    time.Duration
	MagicLinkPepper string
	PublicBaseURL   string

	CookieSecure   bool
	CookieSameSite string
	CookieDomain   string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GoogleIssuerURL    string

	CatalogCacheTTL  time.Duration
	CatalogCacheSize int

	CORSAllowedOrigins []string

	// DataImportPath names the spreadsheet the seed command would import.
	DataImportPath string
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func (c *Config) IsProd() bool {
	return isProdLike(c.AppEnv)
}

// Load reads .env.<APP_ENV> and .env when present, then the process
// environment. Variables already set in the environment win.
func Load() (*Config, error) {
	appEnv := strings.ToLower(strings.TrimSpace(getEnv("APP_ENV", "dev")))
	_ = godotenv.Load(".env." + appEnv)
	_ = godotenv.Load(".env")
	return fromEnv()
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		AppEnv:             strings.ToLower(strings.TrimSpace(getEnv("APP_ENV", "dev"))),
		Port:               strings.TrimSpace(getEnv("PORT", defaultPort)),
		DatabaseURL:        strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL)),
		LogLevel:           strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel)),
		SessionSecret:      strings.TrimSpace(getEnv("SESSION_SECRET", defaultSessionSecret)),
		MagicLinkPepper:    strings.TrimSpace(getEnv("MAGIC_LINK_PEPPER", defaultMagicLinkPepper)),
		PublicBaseURL:      strings.TrimRight(strings.TrimSpace(getEnv("PUBLIC_BASE_URL", defaultPublicBaseURL)), "/"),
		CookieSecure:       parseBoolEnv("COOKIE_SECURE", defaultCookieSecure),
		CookieSameSite:     strings.TrimSpace(getEnv("COOKIE_SAMESITE", defaultCookieSameSite)),
		CookieDomain:       strings.TrimSpace(os.Getenv("COOKIE_DOMAIN")),
		GoogleClientID:     strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")),
		GoogleClientSecret: strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_SECRET")),
		GoogleRedirectURL:  strings.TrimSpace(os.Getenv("GOOGLE_REDIRECT_URL")),
		GoogleIssuerURL:    strings.TrimSpace(getEnv("GOOGLE_ISSUER_URL", defaultGoogleIssuer)),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", defaultCORSOrigins)),
		DataImportPath:     strings.TrimSpace(os.Getenv("DATA_IMPORT_PATH")),
	}

	var err error
	if cfg.SessionTTL, err = parseDurationEnv("SESSION_TTL", defaultSessionTTL); err != nil {
		return nil, err
	}
	if cfg.MagicLinkTTL, err = parseDurationEnv("MAGIC_LINK_TTL", defaultMagicLinkTTL); err != nil {
		return nil, err
	}
	if cfg.CatalogCacheTTL, err = parseDurationEnv("CATALOG_CACHE_TTL", defaultCatalogCacheTTL); err != nil {
		return nil, err
	}
	size := strings.TrimSpace(getEnv("CATALOG_CACHE_SIZE", defaultCatalogCacheSize))
	if cfg.CatalogCacheSize, err = strconv.Atoi(size); err != nil {
		return nil, fmt.Errorf("invalid CATALOG_CACHE_SIZE value %q: %w", size, err)
	}
	if cfg.GoogleRedirectURL == "" {
		cfg.GoogleRedirectURL = cfg.PublicBaseURL + "/api/v1/auth/google/callback"
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if cfg.MagicLinkTTL <= 0 {
		return fmt.Errorf("MAGIC_LINK_TTL must be > 0")
	}
	if cfg.CatalogCacheTTL <= 0 {
		return fmt.Errorf("CATALOG_CACHE_TTL must be > 0")
	}
	if cfg.CatalogCacheSize <= 0 {
		return fmt.Errorf("CATALOG_CACHE_SIZE must be > 0")
	}
	sameSite := strings.ToLower(cfg.CookieSameSite)
	if sameSite != "lax" && sameSite != "none" && sameSite != "strict" {
		return fmt.Errorf("COOKIE_SAMESITE must be one of: Lax, None, Strict")
	}
	if sameSite == "none" && !cfg.CookieSecure {
		return fmt.Errorf("COOKIE_SECURE must be true when COOKIE_SAMESITE=None")
	}
	if (cfg.GoogleClientID == "") != (cfg.GoogleClientSecret == "") {
		return fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set together")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.SessionSecret, defaultSessionSecret) {
			return fmt.Errorf("in prod/release SESSION_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.MagicLinkPepper, defaultMagicLinkPepper) {
			return fmt.Errorf("in prod/release MAGIC_LINK_PEPPER must be set and not default")
		}
		if !cfg.CookieSecure {
			return fmt.Errorf("in prod/release COOKIE_SECURE must be true")
		}
		if !strings.HasPrefix(cfg.DatabaseURL, "postgres") {
			return fmt.Errorf("in prod/release DATABASE_URL must point to postgres")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
