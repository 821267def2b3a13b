package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRetryCmd creates the retry command.
func NewRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Drain the page and offer retry queues",
		Long: `Process the page and offer retry tasks queued by earlier product runs until
both streams are idle. Recovered offers are written to
<export.dir>/retries_<timestamp>.json. Requires redis.enabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := setup(cmd, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.Service.DrainRetries(cmd.Context())
			if report != nil {
				log.Infof("🎉 Processed %d tasks: %d recovered, %d requeued, %d dropped",
					report.Processed, report.Recovered, report.Requeued, report.Dropped)
			}
			if err != nil {
				return fmt.Errorf("retry drain failed: %w", err)
			}
			return nil
		},
	}
}
