package main

import (
	"errors"
	"fmt"

	"autoriven/scraper/internal/config"
	"autoriven/scraper/internal/domain"
	"autoriven/scraper/internal/export"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewProductsCmd creates the products command.
func NewProductsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Scrape offers from the leaves of a category export",
		Long: `Scrape offers from every leaf category of a previous categories export and
write them to <export.dir>/products_<timestamp>.json.

Progress is tracked per category, so an interrupted run resumes where it stopped
when Redis is enabled. Failed pages and offers are queued for the retry command.

Examples:
  scraper products --from exports/categories_20260101_120000.json
  scraper products --from exports/categories_20260101_120000.json --max 20 --fresh`,
		Args: cobra.NoArgs,
		RunE: runProductsCmd,
	}

	cmd.Flags().StringP("from", "f", "", "Categories export to read leaves from (required)")
	cmd.Flags().Int("max", 0, "Maximum offers per category (overrides products.max_per_category)")
	cmd.Flags().Bool("fresh", false, "Clear saved progress and start every category from page 1")
	_ = cmd.MarkFlagRequired("from")

	return cmd
}

func runProductsCmd(cmd *cobra.Command, _ []string) error {
	from, _ := cmd.Flags().GetString("from")
	limit, _ := cmd.Flags().GetInt("max")
	fresh, _ := cmd.Flags().GetBool("fresh")

	doc, err := export.Load(from)
	if err != nil {
		return err
	}
	leaves := domain.Leaves(doc.Categories)
	if len(leaves) == 0 {
		return errors.New("export contains no leaf categories with offers")
	}
	log.Infof("📂 Loaded %d categories (%d leaves) from %s", len(doc.Categories), len(leaves), from)

	app, err := setup(cmd, func(cfg *config.Config) {
		if limit > 0 {
			cfg.Products.MaxPerCategory = limit
		}
		if fresh {
			cfg.Products.Resume = false
		}
	})
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.Service.ScrapeProducts(cmd.Context(), leaves)
	if result != nil {
		log.Infof("🎉 %s", result)
	}
	if err != nil {
		return fmt.Errorf("product scrape failed: %w", err)
	}
	return nil
}
