// Package cli wires configuration, logging and the HTTP servers into the
// folio command.
package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peienli0114/multi-route-portfolio-template/internal/config"
	"github.com/peienli0114/multi-route-portfolio-template/internal/observability"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	contentDir string
	logLevel   string
}

// NewRootCommand builds the folio command tree.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "folio",
		Short:         "Multi-route portfolio site and local content editor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configFile, "config", "", "YAML config file (default folio.yaml when present)")
	root.PersistentFlags().StringVar(&g.contentDir, "content", "", "content directory (FOLIO_CONTENT_DIR)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error (LOG_LEVEL)")

	root.AddCommand(
		newServeCommand(g),
		newAdminCommand(g),
		newSyncMapCommand(g),
		newCheckCommand(g),
	)
	return root
}

// flagEnv maps a flag to the config key it overrides.
type flagEnv struct {
	flag string
	key  string
	val  *string
}

// load reads configuration with changed flags layered on top and builds the
// logger.
func (g *globalFlags) load(ctx context.Context, cmd *cobra.Command, extra ...flagEnv) (config.Config, *zap.Logger, error) {
	overrides := map[string]string{}
	all := append([]flagEnv{
		{flag: "content", key: "FOLIO_CONTENT_DIR", val: &g.contentDir},
		{flag: "log-level", key: "LOG_LEVEL", val: &g.logLevel},
	}, extra...)
	for _, f := range all {
		if cmd.Flags().Changed(f.flag) {
			overrides[f.key] = *f.val
		}
	}

	opts := []config.Option{config.WithEnvMap(overrides)}
	if g.configFile != "" {
		opts = append(opts, config.WithConfigFile(g.configFile))
	}
	cfg, err := config.Load(ctx, opts...)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := observability.NewLogger(cfg.Log.Level)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// serveHTTP runs srv until ctx is done, then drains it within timeout.
func serveHTTP(ctx context.Context, srv *http.Server, timeout time.Duration, logger *zap.Logger) error {
	logger = logger.With(zap.String("addr", srv.Addr))
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received; draining requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
