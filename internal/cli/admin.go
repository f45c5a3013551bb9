package cli

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peienli0114/multi-route-portfolio-template/internal/admin"
)

type adminFlags struct {
	addr    string
	origin  string
	journal string
}

func newAdminCommand(g *globalFlags) *cobra.Command {
	f := &adminFlags{}
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Serve the local content editing API and editor page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAdmin(cmd, g, f)
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", "", "listen address (FOLIO_ADMIN_ADDR)")
	cmd.Flags().StringVar(&f.origin, "origin", "", "allowed CORS origin (FOLIO_ADMIN_ALLOWED_ORIGIN)")
	cmd.Flags().StringVar(&f.journal, "journal", "", `SQLite journal path, or "off" (FOLIO_ADMIN_JOURNAL)`)
	return cmd
}

func runAdmin(cmd *cobra.Command, g *globalFlags, f *adminFlags) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := g.load(ctx, cmd,
		flagEnv{flag: "addr", key: "FOLIO_ADMIN_ADDR", val: &f.addr},
		flagEnv{flag: "origin", key: "FOLIO_ADMIN_ALLOWED_ORIGIN", val: &f.origin},
		flagEnv{flag: "journal", key: "FOLIO_ADMIN_JOURNAL", val: &f.journal},
	)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("admin")

	if _, err := os.Stat(cfg.Content.Dir); err != nil {
		return err
	}

	var journal *admin.Journal
	if cfg.Admin.Journal != "" {
		journal, err = admin.OpenJournal(ctx, cfg.Admin.Journal)
		if err != nil {
			return err
		}
		defer func() {
			if err := journal.Close(); err != nil {
				logger.Warn("journal close error", zap.Error(err))
			}
		}()
	}

	srv := admin.New(admin.Config{
		Dir:           cfg.Content.Dir,
		AllowedOrigin: cfg.Admin.AllowedOrigin,
		Journal:       journal,
		Logger:        logger,
		Timeout:       cfg.Server.WriteTimeout,
		SessionKey:    cfg.Site.SessionKey,
	})
	httpSrv := &http.Server{
		Addr:         cfg.Admin.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	logger.Info("content editor ready",
		zap.String("dir", cfg.Content.Dir),
		zap.String("origin", cfg.Admin.AllowedOrigin),
		zap.Bool("journal", journal != nil),
	)
	return serveHTTP(ctx, httpSrv, cfg.Server.ShutdownTimeout, logger)
}
