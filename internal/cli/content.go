package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/peienli0114/multi-route-portfolio-template/internal/admin"
	"github.com/peienli0114/multi-route-portfolio-template/internal/content"
)

func newSyncMapCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-map",
		Short: "Regenerate portfolioMap.json from allWorkData.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.load(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			data, err := os.ReadFile(filepath.Join(cfg.Content.Dir, content.WorkDataFile))
			if err != nil {
				return fmt.Errorf("read work data: %w", err)
			}
			store := admin.NewFileStore(cfg.Content.Dir, logger.Named("admin"))
			if err := store.SyncPortfolioMap(cmd.Context(), data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", filepath.Join(cfg.Content.Dir, content.PortfolioMapFile))
			return nil
		},
	}
}

func newCheckCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load the content directory and report each route's index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.load(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			snap, err := content.Load(cmd.Context(), cfg.Content.Dir, "/assets/cv", logger.Named("content"))
			if err != nil {
				return err
			}
			return writeReport(cmd, snap)
		},
	}
}

func writeReport(cmd *cobra.Command, snap *content.Snapshot) error {
	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROUTE\tLANG\tCATEGORIES\tWORKS\tDROPPED")
	for _, key := range snap.RouteKeys() {
		p := content.Resolve(snap, key, nil)
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			key, p.Lang, len(p.Index.Categories), len(p.Index.Items), strings.Join(p.Index.Dropped, ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d works, %d CV assets\n", len(snap.Codes()), len(snap.CVAssets))
	for _, problem := range snap.Problems {
		fmt.Fprintf(out, "problem: %s\n", problem)
	}
	if len(snap.Problems) > 0 {
		return fmt.Errorf("content has %d problem(s)", len(snap.Problems))
	}
	return nil
}
