package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"ebike_tours/internal/adapters/tourapi"
	"ebike_tours/internal/app"
	"ebike_tours/internal/catalog"
)

var fetchOpts struct {
	category    string
	checkImages bool
	workers     int
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Read the catalog once and print every tour.",
	Long: `Read the catalog from CATALOG_URL exactly once and print it as a table.
Popular tours are highlighted. When MYSQL_DSN is set the attempt is recorded
in the fetch log with trigger "cli".

Exits non-zero when the read fails or, with --check-images, when any tour
image is unreachable.`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchOpts.category, "category", "", "only print tours in this category")
	fetchCmd.Flags().BoolVar(&fetchOpts.checkImages, "check-images", false, "verify that every tour image URL responds")
	fetchCmd.Flags().IntVar(&fetchOpts.workers, "workers", 8, "concurrent image checks")
}

func runFetch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	client, err := tourapi.New(cfg.CatalogURL, cfg.CatalogTimeout, cfg.CatalogRPS)
	if err != nil {
		return err
	}
	opts := []catalog.Option{catalog.WithFetchTimeout(cfg.CatalogTimeout), catalog.WithTrigger("cli")}
	if cfg.MySQLDSN != "" {
		repo, closeDB, err := openFetchLog(ctx, cfg.MySQLDSN)
		if err != nil {
			return err
		}
		defer closeDB()
		opts = append(opts, catalog.WithFetchLog(repo))
	}

	svc := app.NewCatalogService(catalog.New(client, opts...), nil, nil, 0)
	v := svc.List(ctx, fetchOpts.category)
	switch {
	case v.Error != nil:
		return fmt.Errorf("fetch tours: %s", *v.Error)
	case v.Loading:
		return errors.New("interrupted before the catalog arrived")
	}

	out := cmd.OutOrStdout()
	if err := printTours(out, v.Tours); err != nil {
		return err
	}
	printSummary(out, svc.Status(), len(v.Tours))

	if !fetchOpts.checkImages {
		return nil
	}
	results, err := checkImages(ctx, &http.Client{Timeout: cfg.CatalogTimeout}, v.Tours, fetchOpts.workers)
	if err != nil {
		return err
	}
	if broken := printImageReport(out, results); broken > 0 {
		return fmt.Errorf("%d tour image(s) unreachable", broken)
	}
	return nil
}
