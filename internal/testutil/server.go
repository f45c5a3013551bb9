package testutil

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/peienli0114/multi-route-portfolio-template/internal/admin"
)

// AdminOption customises the admin server configuration for tests.
type AdminOption func(*admin.Config)

// WithAllowedOrigin overrides the CORS origin.
func WithAllowedOrigin(origin string) AdminOption {
	return func(cfg *admin.Config) {
		cfg.AllowedOrigin = origin
	}
}

// WithoutJournal disables the save journal.
func WithoutJournal() AdminOption {
	return func(cfg *admin.Config) {
		cfg.Journal = nil
	}
}

// NewAdminServer starts an httptest server running the admin stack over dir
// with a journal in a temporary directory.
func NewAdminServer(t testing.TB, dir string, opts ...AdminOption) *httptest.Server {
	t.Helper()

	journal, err := admin.OpenJournal(context.Background(), filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = journal.Close() })

	cfg := admin.Config{
		Dir:        dir,
		Journal:    journal,
		SessionKey: "test-session-key",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ts := httptest.NewServer(admin.New(cfg).Handler())
	t.Cleanup(ts.Close)
	return ts
}
