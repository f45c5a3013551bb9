package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""), WithConfigFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Site.Addr != ":8080" {
		t.Errorf("expected default site addr :8080, got %s", cfg.Site.Addr)
	}
	if cfg.Admin.Addr != ":3001" {
		t.Errorf("expected default admin addr :3001, got %s", cfg.Admin.Addr)
	}
	if cfg.Admin.AllowedOrigin != "http://localhost:3000" {
		t.Errorf("unexpected allowed origin: %s", cfg.Admin.AllowedOrigin)
	}
	if cfg.Content.Dir != "work_list" {
		t.Errorf("expected default content dir work_list, got %s", cfg.Content.Dir)
	}
	if !cfg.Content.Watch {
		t.Errorf("expected watch enabled by default")
	}
	if cfg.Content.Debounce != 250*time.Millisecond {
		t.Errorf("unexpected debounce: %s", cfg.Content.Debounce)
	}
	if want := filepath.Join("work_list", ".journal.db"); cfg.Admin.Journal != want {
		t.Errorf("expected journal %s, got %s", want, cfg.Admin.Journal)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level info, got %s", cfg.Log.Level)
	}
	if cfg.Site.Dev {
		t.Errorf("expected dev mode off")
	}
	if cfg.Site.StateLimit != 10000 {
		t.Errorf("unexpected state limit: %d", cfg.Site.StateLimit)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"FOLIO_SITE_ADDR":            "127.0.0.1:9000",
		"FOLIO_PUBLIC_URL":           "https://example.com/folio/",
		"FOLIO_DEV":                  "yes",
		"FOLIO_CONTENT_DIR":          "/srv/content",
		"FOLIO_WATCH":                "off",
		"FOLIO_ADMIN_ALLOWED_ORIGIN": "http://localhost:5173",
		"FOLIO_ADMIN_JOURNAL":        "off",
		"FOLIO_READ_TIMEOUT":         "5s",
		"FOLIO_STATE_LIMIT":          "500",
		"LOG_LEVEL":                  "DEBUG",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithConfigFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Site.Addr != "127.0.0.1:9000" {
		t.Errorf("unexpected site addr: %s", cfg.Site.Addr)
	}
	if cfg.Site.PublicURL != "https://example.com/folio" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.Site.PublicURL)
	}
	if cfg.Site.BasePath() != "/folio" {
		t.Errorf("unexpected base path: %s", cfg.Site.BasePath())
	}
	if !cfg.Site.Dev {
		t.Errorf("expected dev mode on")
	}
	if cfg.Content.Watch {
		t.Errorf("expected watch disabled")
	}
	if cfg.Admin.Journal != "" {
		t.Errorf("expected journal disabled, got %s", cfg.Admin.Journal)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected lowercased level, got %s", cfg.Log.Level)
	}
	if cfg.Site.StateLimit != 500 {
		t.Errorf("unexpected state limit: %d", cfg.Site.StateLimit)
	}
}

func TestLoadValidationError(t *testing.T) {
	env := map[string]string{
		"FOLIO_PUBLIC_URL": "not a url",
		"LOG_LEVEL":        "loud",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithConfigFile(""))
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	want := []string{"Site.PublicURL", "Log.Level"}
	if !reflect.DeepEqual(vErr.Fields(), want) {
		t.Errorf("expected fields %v, got %v", want, vErr.Fields())
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "folio.yaml")
	yamlContent := `site:
  addr: ":7000"
content:
  dir: from-yaml
  watch: false
admin:
  allowedOrigin: http://yaml.local
log:
  level: warn
`
	if err := os.WriteFile(yamlPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	envPath := filepath.Join(dir, ".env")
	envContent := "export FOLIO_CONTENT_DIR=\"from-dotenv\"\nFOLIO_ADMIN_ADDR=:4000\n# comment\n"
	if err := os.WriteFile(envPath, []byte(envContent), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}

	cfg, err := Load(context.Background(),
		WithConfigFile(yamlPath),
		WithEnvFile(envPath),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{"FOLIO_ADMIN_ADDR": ":5000"}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Site.Addr != ":7000" {
		t.Errorf("expected yaml site addr, got %s", cfg.Site.Addr)
	}
	if cfg.Content.Dir != "from-dotenv" {
		t.Errorf("expected .env to override yaml, got %s", cfg.Content.Dir)
	}
	if cfg.Content.Watch {
		t.Errorf("expected yaml watch=false")
	}
	if cfg.Admin.Addr != ":5000" {
		t.Errorf("expected env map to win, got %s", cfg.Admin.Addr)
	}
	if cfg.Admin.AllowedOrigin != "http://yaml.local" {
		t.Errorf("unexpected allowed origin: %s", cfg.Admin.AllowedOrigin)
	}
	if cfg.Admin.Journal != filepath.Join("from-dotenv", ".journal.db") {
		t.Errorf("journal should follow the content dir, got %s", cfg.Admin.Journal)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected yaml log level, got %s", cfg.Log.Level)
	}
}

func TestLoadConfigFileFromEnv(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	_, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(map[string]string{"FOLIO_CONFIG_FILE": missing}),
	)
	if err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}

	// the default file name is optional
	if _, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(""), WithConfigFile("")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.yaml")
	if err := os.WriteFile(path, []byte("site: [unclosed"), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	if _, err := Load(context.Background(), WithConfigFile(path), WithoutSystemEnv(), WithEnvFile("")); err == nil {
		t.Fatalf("expected parse error")
	}
}
