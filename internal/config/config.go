package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultEnvFile         = ".env"
	defaultConfigFile      = "folio.yaml"
	defaultSiteAddr        = ":8080"
	defaultAdminAddr       = ":3001"
	defaultContentDir      = "work_list"
	defaultAllowedOrigin   = "http://localhost:3000"
	defaultJournalName     = ".journal.db"
	defaultLogLevel        = "info"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultDebounce        = 250 * time.Millisecond
	defaultStateTTL        = 2 * time.Hour
	defaultStateLimit      = 10000

	// journalOff disables the admin save journal.
	journalOff = "off"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Site    SiteConfig
	Content ContentConfig
	Admin   AdminConfig
	Server  ServerConfig
	Log     LogConfig
}

// SiteConfig configures the public portfolio site.
type SiteConfig struct {
	Addr string
	// PublicURL is the absolute base URL used for canonical links. Its path,
	// if any, is the prefix the site is served under.
	PublicURL  string
	Dev        bool
	SessionKey string
	StateTTL   time.Duration
	// StateLimit caps the page states kept in memory.
	StateLimit int
}

// BasePath returns the path component of PublicURL without a trailing slash.
func (c SiteConfig) BasePath() string {
	if c.PublicURL == "" {
		return ""
	}
	u, err := url.Parse(c.PublicURL)
	if err != nil {
		return ""
	}
	return strings.TrimRight(u.Path, "/")
}

// ContentConfig locates the JSON content directory.
type ContentConfig struct {
	Dir      string
	Watch    bool
	Debounce time.Duration
}

// AdminConfig configures the local editing API.
type AdminConfig struct {
	Addr          string
	AllowedOrigin string
	// Journal is the SQLite journal path; empty disables journaling.
	Journal string
}

// ServerConfig holds HTTP server timeouts shared by both programs.
type ServerConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// LogConfig controls the logger.
type LogConfig struct {
	Level string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	configFile   string
	explicitFile bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithConfigFile reads YAML settings from path. The file must exist. An
// empty path disables the YAML layer.
func WithConfigFile(path string) Option {
	return func(o *loaderOptions) {
		o.configFile = path
		o.explicitFile = path != ""
	}
}

// Load assembles the configuration from defaults, the optional YAML file,
// .env overrides, environment variables and the explicit env map, later
// sources winning.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		configFile:   defaultConfigFile,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	envLookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	configFile, explicit := options.configFile, options.explicitFile
	if !explicit {
		if value, ok := envLookup("FOLIO_CONFIG_FILE"); ok && strings.TrimSpace(value) != "" {
			configFile, explicit = strings.TrimSpace(value), true
		}
	}
	fileValues, err := loadConfigFile(configFile, explicit)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if value, ok := envLookup(key); ok {
			return value, true
		}
		value, ok := fileValues[key]
		return value, ok
	}

	cfg := Config{
		Site: SiteConfig{
			Addr:       stringWithDefault(lookup, "FOLIO_SITE_ADDR", defaultSiteAddr),
			PublicURL:  strings.TrimRight(stringWithDefault(lookup, "FOLIO_PUBLIC_URL", ""), "/"),
			Dev:        boolWithDefault(lookup, "FOLIO_DEV", false),
			SessionKey: stringWithDefault(lookup, "FOLIO_SESSION_KEY", ""),
			StateTTL:   durationWithDefault(lookup, "FOLIO_STATE_TTL", defaultStateTTL),
			StateLimit: intWithDefault(lookup, "FOLIO_STATE_LIMIT", defaultStateLimit),
		},
		Content: ContentConfig{
			Dir:      stringWithDefault(lookup, "FOLIO_CONTENT_DIR", defaultContentDir),
			Watch:    boolWithDefault(lookup, "FOLIO_WATCH", true),
			Debounce: durationWithDefault(lookup, "FOLIO_WATCH_DEBOUNCE", defaultDebounce),
		},
		Admin: AdminConfig{
			Addr:          stringWithDefault(lookup, "FOLIO_ADMIN_ADDR", defaultAdminAddr),
			AllowedOrigin: stringWithDefault(lookup, "FOLIO_ADMIN_ALLOWED_ORIGIN", defaultAllowedOrigin),
			Journal:       stringWithDefault(lookup, "FOLIO_ADMIN_JOURNAL", ""),
		},
		Server: ServerConfig{
			ReadTimeout:     durationWithDefault(lookup, "FOLIO_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "FOLIO_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "FOLIO_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "FOLIO_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Log: LogConfig{
			Level: strings.ToLower(stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel)),
		},
	}

	// The journal lives beside the content unless configured otherwise.
	switch strings.ToLower(strings.TrimSpace(cfg.Admin.Journal)) {
	case "":
		cfg.Admin.Journal = filepath.Join(cfg.Content.Dir, defaultJournalName)
	case journalOff:
		cfg.Admin.Journal = ""
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string
	if strings.TrimSpace(cfg.Site.Addr) == "" {
		missing = append(missing, "Site.Addr")
	}
	if cfg.Site.PublicURL != "" {
		u, err := url.Parse(cfg.Site.PublicURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			missing = append(missing, "Site.PublicURL")
		}
	}
	if cfg.Site.StateTTL <= 0 {
		missing = append(missing, "Site.StateTTL")
	}
	if cfg.Site.StateLimit <= 0 {
		missing = append(missing, "Site.StateLimit")
	}
	if strings.TrimSpace(cfg.Content.Dir) == "" {
		missing = append(missing, "Content.Dir")
	}
	if cfg.Content.Debounce <= 0 {
		missing = append(missing, "Content.Debounce")
	}
	if strings.TrimSpace(cfg.Admin.Addr) == "" {
		missing = append(missing, "Admin.Addr")
	}
	if strings.TrimSpace(cfg.Admin.AllowedOrigin) == "" {
		missing = append(missing, "Admin.AllowedOrigin")
	}
	if cfg.Server.ReadTimeout <= 0 {
		missing = append(missing, "Server.ReadTimeout")
	}
	if cfg.Server.WriteTimeout <= 0 {
		missing = append(missing, "Server.WriteTimeout")
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		missing = append(missing, "Server.ShutdownTimeout")
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		missing = append(missing, "Log.Level")
	}
	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

// fileConfig is the YAML layout of folio.yaml.
type fileConfig struct {
	Site struct {
		Addr       string `yaml:"addr"`
		PublicURL  string `yaml:"publicURL"`
		Dev        *bool  `yaml:"dev"`
		SessionKey string `yaml:"sessionKey"`
		StateTTL   string `yaml:"stateTTL"`
		StateLimit string `yaml:"stateLimit"`
	} `yaml:"site"`
	Content struct {
		Dir      string `yaml:"dir"`
		Watch    *bool  `yaml:"watch"`
		Debounce string `yaml:"debounce"`
	} `yaml:"content"`
	Admin struct {
		Addr          string `yaml:"addr"`
		AllowedOrigin string `yaml:"allowedOrigin"`
		Journal       string `yaml:"journal"`
	} `yaml:"admin"`
	Server struct {
		ReadTimeout     string `yaml:"readTimeout"`
		WriteTimeout    string `yaml:"writeTimeout"`
		IdleTimeout     string `yaml:"idleTimeout"`
		ShutdownTimeout string `yaml:"shutdownTimeout"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// values flattens the file into the same keys the environment uses.
func (f fileConfig) values() map[string]string {
	out := map[string]string{}
	set := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			out[key] = value
		}
	}
	setBool := func(key string, value *bool) {
		if value != nil {
			out[key] = strconv.FormatBool(*value)
		}
	}
	set("FOLIO_SITE_ADDR", f.Site.Addr)
	set("FOLIO_PUBLIC_URL", f.Site.PublicURL)
	setBool("FOLIO_DEV", f.Site.Dev)
	set("FOLIO_SESSION_KEY", f.Site.SessionKey)
	set("FOLIO_STATE_TTL", f.Site.StateTTL)
	set("FOLIO_STATE_LIMIT", f.Site.StateLimit)
	set("FOLIO_CONTENT_DIR", f.Content.Dir)
	setBool("FOLIO_WATCH", f.Content.Watch)
	set("FOLIO_WATCH_DEBOUNCE", f.Content.Debounce)
	set("FOLIO_ADMIN_ADDR", f.Admin.Addr)
	set("FOLIO_ADMIN_ALLOWED_ORIGIN", f.Admin.AllowedOrigin)
	set("FOLIO_ADMIN_JOURNAL", f.Admin.Journal)
	set("FOLIO_READ_TIMEOUT", f.Server.ReadTimeout)
	set("FOLIO_WRITE_TIMEOUT", f.Server.WriteTimeout)
	set("FOLIO_IDLE_TIMEOUT", f.Server.IdleTimeout)
	set("FOLIO_SHUTDOWN_TIMEOUT", f.Server.ShutdownTimeout)
	set("LOG_LEVEL", f.Log.Level)
	return out
}

func loadConfigFile(path string, required bool) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !required {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", path, err)
	}
	return f.values(), nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
