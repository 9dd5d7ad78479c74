package cleanblog

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// SiteConfig holds all configuration for a cleanblog site.
type SiteConfig struct {
	Name        string // Site name (default "Clean Blog")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string

	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite path (default "data/blog.db")

	SessionSecret string // Required: session signing secret
	CookieSecure  bool   // Set true for HTTPS

	PostCacheTTL time.Duration // default 5min

	LoginMaxAttempts   int           // failed logins per window (default 5)
	LoginWindow        time.Duration // default 1min
	WriteRatePerMinute int           // register and comment posts per IP (default 30)

	Log LogConfig
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Clean Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blog.db"
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.LoginMaxAttempts == 0 {
		c.LoginMaxAttempts = 5
	}
	if c.LoginWindow == 0 {
		c.LoginWindow = time.Minute
	}
	if c.WriteRatePerMinute == 0 {
		c.WriteRatePerMinute = 30
	}
}

// ConfigFromEnv reads a SiteConfig from environment variables. Unset values
// are left zero and filled in by New.
func ConfigFromEnv() (SiteConfig, error) {
	cfg := SiteConfig{
		Name:          os.Getenv("SITE_NAME"),
		URL:           os.Getenv("SITE_URL"),
		Description:   os.Getenv("SITE_DESCRIPTION"),
		Author:        os.Getenv("SITE_AUTHOR"),
		Addr:          os.Getenv("ADDR"),
		DatabasePath:  os.Getenv("DATABASE_PATH"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		Log: LogConfig{
			Level: os.Getenv("LOG_LEVEL"),
			Path:  os.Getenv("LOG_PATH"),
		},
	}
	var err error
	if cfg.CookieSecure, err = envBool("COOKIE_SECURE"); err != nil {
		return cfg, err
	}
	if cfg.Log.Compress, err = envBool("LOG_COMPRESS"); err != nil {
		return cfg, err
	}
	if cfg.PostCacheTTL, err = envDuration("POST_CACHE_TTL"); err != nil {
		return cfg, err
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"LOGIN_MAX_ATTEMPTS", &cfg.LoginMaxAttempts},
		{"WRITE_RATE_PER_MINUTE", &cfg.WriteRatePerMinute},
		{"LOG_MAX_SIZE_MB", &cfg.Log.MaxSizeMB},
		{"LOG_MAX_BACKUPS", &cfg.Log.MaxBackups},
		{"LOG_MAX_AGE_DAYS", &cfg.Log.MaxAgeDays},
	}
	for _, f := range ints {
		if *f.dst, err = envInt(f.key); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func envBool(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envInt(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for static assets and uploads (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithLogger replaces the logger built from SiteConfig.Log.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}
