package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	API      APIConfig      `koanf:"api"`
	UI       UIConfig       `koanf:"ui"`
	Session  SessionConfig  `koanf:"session"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host       string          `koanf:"host"`
	Port       int             `koanf:"port"`
	Mode       string          `koanf:"mode"`
	CSRFSecret string          `koanf:"csrf_secret"`
	Timeout    string          `koanf:"timeout"`
	CORS       CORSConfig      `koanf:"cors"`
	RateLimit  RateLimitConfig `koanf:"rate_limit"`
}

// CORSConfig holds CORS middleware settings.
type CORSConfig struct {
	AllowOrigins     []string `koanf:"allow_origins"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           string   `koanf:"max_age"`
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string         `koanf:"driver"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`
	Postgres PostgresConfig `koanf:"postgres"`
	Pool     PoolConfig     `koanf:"pool"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname"`
	SSLMode  string `koanf:"sslmode"`
}

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	ConnMaxLifetime string `koanf:"conn_max_lifetime"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level           string `koanf:"level"`
	Format          string `koanf:"format"`
	Color           *bool  `koanf:"color"`
	FilePath        string `koanf:"file_path"`
	MaxSizeMB       int    `koanf:"max_size_mb"`
	RetentionDays   int    `koanf:"retention_days"`
	MaxBackups      int    `koanf:"max_backups"`
	CompressRotated *bool  `koanf:"compress_rotated"`
}

// APIConfig describes the Hydra API the UI talks to.
type APIConfig struct {
	// Serve mounts the bundled people API under /api in this process.
	Serve bool `koanf:"serve"`
	// BaseURL is the API root, e.g. "http://127.0.0.1:8080/api". When Serve
	// is set and BaseURL is empty it points at this server.
	BaseURL string `koanf:"base_url"`
	Timeout string `koanf:"timeout"`
}

// UIConfig holds list screen settings.
type UIConfig struct {
	PageSizes       []int  `koanf:"page_sizes"`
	DefaultPageSize int    `koanf:"default_page_size"`
	ListPath        string `koanf:"list_path"`
	// DefaultSort is the initial order, e.g. "lastName:asc,firstName:asc".
	DefaultSort string `koanf:"default_sort"`
}

// SessionConfig holds browser session settings.
type SessionConfig struct {
	CookieName string `koanf:"cookie_name"`
	TTL        string `koanf:"ttl"`
}

// Defaults applied by Validate to unset optional fields.
var (
	DefaultPageSizes = []int{10, 30, 50}
)

const (
	defaultAPITimeout  = "10s"
	defaultListPath    = "/people"
	defaultCookieName  = "people_sid"
	defaultSessionTTL  = "30m"
	defaultDefaultSort = "lastName:asc"
)

// Load reads configuration from a YAML file and overlays environment variables.
// Environment variables use the prefix "APP__" and double-underscore as the
// hierarchy separator. Single underscores are preserved as part of the key name.
// For example, APP__SERVER__PORT=9090 overrides server.port and
// APP__API__BASE_URL=http://api:8080/api overrides api.base_url.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	if err := k.Load(env.Provider("APP__", ".", func(s string) string {
		key := strings.TrimPrefix(s, "APP__")
		key = strings.ToLower(key)
		key = strings.ReplaceAll(key, "__", ".")
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate normalizes values, fills defaults and checks cross-field constraints.
func (c *Config) Validate() error {
	steps := []func() error{
		c.validateServer,
		c.validateAPI,
		c.validateDatabase,
		c.validateUI,
		c.validateSession,
		c.validateLog,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	mode := strings.TrimSpace(c.Server.Mode)
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		c.Server.Mode = mode
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", c.Server.Mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", c.Server.Port)
	}

	host := strings.TrimSpace(c.Server.Host)
	if host == "" {
		return fmt.Errorf("server.host is required")
	}
	c.Server.Host = host

	if err := optionalDuration("server.timeout", &c.Server.Timeout); err != nil {
		return err
	}
	if err := optionalDuration("server.cors.max_age", &c.Server.CORS.MaxAge); err != nil {
		return err
	}

	if c.Server.RateLimit.Enabled {
		if c.Server.RateLimit.RPS <= 0 {
			return fmt.Errorf("invalid server.rate_limit.rps %v: must be positive when rate limiting is enabled", c.Server.RateLimit.RPS)
		}
		if c.Server.RateLimit.Burst <= 0 {
			return fmt.Errorf("invalid server.rate_limit.burst %d: must be positive when rate limiting is enabled", c.Server.RateLimit.Burst)
		}
	}
	return nil
}

func (c *Config) validateAPI() error {
	base := strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if base == "" {
		if !c.API.Serve {
			return fmt.Errorf("api.base_url is required when api.serve is false")
		}
		base = "http://" + net.JoinHostPort(loopback(c.Server.Host), strconv.Itoa(c.Server.Port)) + "/api"
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api.base_url %q: must be an absolute http(s) URL", c.API.BaseURL)
	}
	c.API.BaseURL = base

	if strings.TrimSpace(c.API.Timeout) == "" {
		c.API.Timeout = defaultAPITimeout
	}
	return optionalDuration("api.timeout", &c.API.Timeout)
}

// loopback maps wildcard listen addresses to an address clients can dial.
func loopback(host string) string {
	switch host {
	case "0.0.0.0", "::", "":
		return "127.0.0.1"
	}
	return host
}

// validateDatabase only runs when the bundled API is served; a UI pointed at
// a remote API needs no database.
func (c *Config) validateDatabase() error {
	if !c.API.Serve {
		return nil
	}

	switch c.Database.Driver {
	case "sqlite":
		p := strings.TrimSpace(c.Database.SQLite.Path)
		if p == "" {
			return fmt.Errorf("database.sqlite.path is required when driver is sqlite")
		}
		c.Database.SQLite.Path = p
	case "postgres":
		if err := c.validatePostgres(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid database.driver %q: must be one of %q, %q", c.Database.Driver, "sqlite", "postgres")
	}

	return optionalDuration("database.pool.conn_max_lifetime", &c.Database.Pool.ConnMaxLifetime)
}

func (c *Config) validatePostgres() error {
	pg := &c.Database.Postgres
	pg.Host = strings.TrimSpace(pg.Host)
	pg.User = strings.TrimSpace(pg.User)
	pg.DBName = strings.TrimSpace(pg.DBName)
	pg.SSLMode = strings.TrimSpace(pg.SSLMode)

	if pg.Host == "" {
		return fmt.Errorf("database.postgres.host is required when driver is postgres")
	}
	if pg.Port < 1 || pg.Port > 65535 {
		return fmt.Errorf("invalid database.postgres.port %d: must be between 1 and 65535", pg.Port)
	}
	if pg.User == "" {
		return fmt.Errorf("database.postgres.user is required when driver is postgres")
	}
	if pg.DBName == "" {
		return fmt.Errorf("database.postgres.dbname is required when driver is postgres")
	}

	allowed := []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}
	if c.Server.Mode == gin.ReleaseMode {
		allowed = allowed[3:]
	}
	if !slices.Contains(allowed, pg.SSLMode) {
		return fmt.Errorf("invalid database.postgres.sslmode %q for server.mode %q: must be one of %s", pg.SSLMode, c.Server.Mode, strings.Join(allowed, ", "))
	}
	return nil
}

func (c *Config) validateUI() error {
	if len(c.UI.PageSizes) == 0 {
		c.UI.PageSizes = slices.Clone(DefaultPageSizes)
	}
	for i, n := range c.UI.PageSizes {
		if n < 1 || n > 100 {
			return fmt.Errorf("invalid ui.page_sizes[%d] %d: must be between 1 and 100", i, n)
		}
	}
	slices.Sort(c.UI.PageSizes)
	c.UI.PageSizes = slices.Compact(c.UI.PageSizes)

	if c.UI.DefaultPageSize == 0 {
		c.UI.DefaultPageSize = c.UI.PageSizes[0]
	}
	if !slices.Contains(c.UI.PageSizes, c.UI.DefaultPageSize) {
		return fmt.Errorf("invalid ui.default_page_size %d: must be one of ui.page_sizes %v", c.UI.DefaultPageSize, c.UI.PageSizes)
	}

	c.UI.ListPath = strings.TrimSpace(c.UI.ListPath)
	if c.UI.ListPath == "" {
		c.UI.ListPath = defaultListPath
	}
	if !strings.HasPrefix(c.UI.ListPath, "/") {
		return fmt.Errorf("invalid ui.list_path %q: must start with '/'", c.UI.ListPath)
	}

	c.UI.DefaultSort = strings.TrimSpace(c.UI.DefaultSort)
	if c.UI.DefaultSort == "" {
		c.UI.DefaultSort = defaultDefaultSort
	}
	return nil
}

func (c *Config) validateSession() error {
	c.Session.CookieName = strings.TrimSpace(c.Session.CookieName)
	if c.Session.CookieName == "" {
		c.Session.CookieName = defaultCookieName
	}
	if strings.TrimSpace(c.Session.TTL) == "" {
		c.Session.TTL = defaultSessionTTL
	}
	return optionalDuration("session.ttl", &c.Session.TTL)
}

func (c *Config) validateLog() error {
	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Log.Level = level
	default:
		return fmt.Errorf("invalid log.level %q: must be one of %q, %q, %q, %q", c.Log.Level, "debug", "info", "warn", "error")
	}

	format := strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch format {
	case "text", "json":
		c.Log.Format = format
	default:
		return fmt.Errorf("invalid log.format %q: must be one of %q, %q", c.Log.Format, "text", "json")
	}
	return nil
}

// optionalDuration trims *v and, when it is set, requires a positive Go duration.
func optionalDuration(name string, v *string) error {
	*v = strings.TrimSpace(*v)
	if *v == "" {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, *v, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s %q: must be greater than 0", name, *v)
	}
	return nil
}

// Duration parses a duration already checked by Validate, returning def when unset.
func Duration(v string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	return def
}

// CountSecretClasses counts the character classes (lowercase, uppercase,
// digit, symbol) present in secret.
func CountSecretClasses(secret string) int {
	var lower, upper, digit, symbol int
	for _, r := range secret {
		switch {
		case unicode.IsLower(r):
			lower = 1
		case unicode.IsUpper(r):
			upper = 1
		case unicode.IsDigit(r):
			digit = 1
		default:
			symbol = 1
		}
	}
	return lower + upper + digit + symbol
}
