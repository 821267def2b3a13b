package main

import (
	"fmt"

	"autoriven/scraper/internal/config"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewCategoriesCmd creates the categories command.
func NewCategoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Crawl the category tree",
		Long: `Crawl the category tree below crawl.root_url down to crawl.max_depth and
write it to <export.dir>/categories_<timestamp>.json. Categories are also
upserted into Postgres when database.enabled is set.

Examples:
  # Crawl with defaults
  scraper categories

  # Crawl a different root, two levels deep
  scraper categories --root https://allegro.pl/kategoria/opony-samochodowe-257689 --depth 2`,
		Args: cobra.NoArgs,
		RunE: runCategoriesCmd,
	}

	cmd.Flags().String("root", "", "Root category URL (overrides crawl.root_url)")
	cmd.Flags().Int("depth", 0, "Maximum depth (overrides crawl.max_depth)")
	cmd.Flags().Int("concurrency", 0, "Parallel top-level branches (overrides crawl.concurrency)")

	return cmd
}

func runCategoriesCmd(cmd *cobra.Command, _ []string) error {
	root, _ := cmd.Flags().GetString("root")
	depth, _ := cmd.Flags().GetInt("depth")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	app, err := setup(cmd, func(cfg *config.Config) {
		if root != "" {
			cfg.Crawl.RootURL = root
		}
		if depth > 0 {
			cfg.Crawl.MaxDepth = depth
		}
		if concurrency > 0 {
			cfg.Crawl.Concurrency = concurrency
		}
	})
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.Service.CrawlCategories(cmd.Context())
	if result != nil {
		log.Infof("🎉 Discovered %d categories (%d leaves), %d branches failed",
			len(result.Categories), len(result.Leaves()), len(result.Failures))
	}
	if err != nil {
		return fmt.Errorf("category crawl failed: %w", err)
	}
	return nil
}
