package cli

import (
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/peienli0114/multi-route-portfolio-template/internal/content"
	"github.com/peienli0114/multi-route-portfolio-template/internal/site"
)

type serveFlags struct {
	addr      string
	publicURL string
	dev       bool
	templates string
}

func newServeCommand(g *globalFlags) *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the portfolio site",
		Long: `Serve loads the content directory, renders the portfolio routes and
reloads content when its JSON files change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, g, f)
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", "", "listen address (FOLIO_SITE_ADDR)")
	cmd.Flags().StringVar(&f.publicURL, "public-url", "", "absolute public URL (FOLIO_PUBLIC_URL)")
	cmd.Flags().BoolVar(&f.dev, "dev", false, "re-parse templates on every request (FOLIO_DEV)")
	cmd.Flags().StringVar(&f.templates, "templates", "", "directory holding templates/*.tmpl, used instead of the embedded set")
	return cmd
}

func runServe(cmd *cobra.Command, g *globalFlags, f *serveFlags) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dev := strconv.FormatBool(f.dev)
	cfg, logger, err := g.load(ctx, cmd,
		flagEnv{flag: "addr", key: "FOLIO_SITE_ADDR", val: &f.addr},
		flagEnv{flag: "public-url", key: "FOLIO_PUBLIC_URL", val: &f.publicURL},
		flagEnv{flag: "dev", key: "FOLIO_DEV", val: &dev},
	)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("site")

	basePath := cfg.Site.BasePath()
	store, err := content.NewStore(ctx, cfg.Content.Dir, basePath+"/assets/cv", logger.Named("content"))
	if err != nil {
		return err
	}

	opts := site.Options{
		Content:    store,
		Logger:     logger,
		PublicURL:  cfg.Site.PublicURL,
		BasePath:   basePath,
		Dev:        cfg.Site.Dev,
		SessionKey: cfg.Site.SessionKey,
		StateTTL:   cfg.Site.StateTTL,
		StateLimit: cfg.Site.StateLimit,
		Timeout:    cfg.Server.WriteTimeout,
	}
	if f.templates != "" {
		opts.Templates = os.DirFS(f.templates)
	}
	srv, err := site.New(opts)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:         cfg.Site.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	group, gctx := errgroup.WithContext(ctx)
	if cfg.Content.Watch {
		group.Go(func() error {
			if err := store.Watch(gctx, cfg.Content.Debounce); err != nil {
				logger.Warn("content watcher stopped", zap.Error(err))
			}
			return nil
		})
	}
	group.Go(func() error {
		return serveHTTP(gctx, httpSrv, cfg.Server.ShutdownTimeout, logger)
	})
	return group.Wait()
}
