// Package config loads process configuration from FORUM_* environment
// variables and an optional joe-forum.yaml.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joestump/joe-forum/internal/category"
)

type Config struct {
	HTTP struct {
		Addr string
	}
	DB struct {
		Driver string
		DSN    string
	}
	Redis struct {
		URL string
	}
	SiteURL          string
	SiteRelativePath string
	SiteTitle        string
	DisableRSS       bool
	SessionLifetime  time.Duration
	Log              struct {
		Level  string
		Format string
	}
}

// Load reads config from environment (FORUM_ prefix) and optional joe-forum.yaml.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FORUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("joe-forum")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional config file

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("session.lifetime", "720h")
	v.SetDefault("site.title", "Forum")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	cfg := &Config{}
	cfg.HTTP.Addr = v.GetString("http.addr")
	cfg.DB.Driver = v.GetString("db.driver")
	cfg.DB.DSN = v.GetString("db.dsn")
	cfg.Redis.URL = v.GetString("redis.url")
	cfg.SiteURL = strings.TrimRight(v.GetString("site.url"), "/")
	cfg.SiteRelativePath = strings.TrimRight(v.GetString("site.relative_path"), "/")
	cfg.SiteTitle = v.GetString("site.title")
	cfg.DisableRSS = v.GetBool("feeds.disable_rss")
	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Format = v.GetString("log.format")

	lifetime, err := time.ParseDuration(v.GetString("session.lifetime"))
	if err != nil {
		return nil, fmt.Errorf("invalid FORUM_SESSION_LIFETIME: %w", err)
	}
	cfg.SessionLifetime = lifetime

	if cfg.DB.Driver == "" {
		return nil, fmt.Errorf("FORUM_DB_DRIVER is required (sqlite3, mysql, postgres)")
	}
	if cfg.DB.DSN == "" {
		return nil, fmt.Errorf("FORUM_DB_DSN is required")
	}
	if cfg.SiteURL == "" {
		return nil, fmt.Errorf("FORUM_SITE_URL is required")
	}
	if u, err := url.Parse(cfg.SiteURL); err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("FORUM_SITE_URL must be an absolute URL: %q", cfg.SiteURL)
	}
	if cfg.SiteRelativePath != "" && !strings.HasPrefix(cfg.SiteRelativePath, "/") {
		return nil, fmt.Errorf("FORUM_SITE_RELATIVE_PATH must start with /: %q", cfg.SiteRelativePath)
	}

	return cfg, nil
}

// Site returns the settings the category navigation builder needs.
func (c *Config) Site() category.SiteConfig {
	return category.SiteConfig{
		URL:          c.SiteURL,
		RelativePath: c.SiteRelativePath,
		Title:        c.SiteTitle,
		DisableRSS:   c.DisableRSS,
	}
}
