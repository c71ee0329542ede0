package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/ratebook/internal/loadtest"
)

func (a *app) newLoadTestCommand() *cobra.Command {
	cfg := loadtest.Config{}
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Submit generated ratings to a running server and verify them",
		Long: `Generates owners and items for the configured domain, PUTs random ratings
to a running server with concurrent workers, then reads every owner back and
reports ratings that differ.

Examples:
  ratebook loadtest --url http://localhost:9080
  ratebook --domain boardgames loadtest --owners 200 --items 500 --workers 16`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.Domain = a.domain
			stats, err := loadtest.Run(cmd.Context(), cfg, a.log.Named("loadtest"))
			if stats != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "submitted %d, created %d, updated %d, failed %d, mismatched %d in %s\n",
					stats.Submitted, stats.Created, stats.Updated, stats.Failed, stats.Mismatched,
					stats.Duration.Round(time.Millisecond))
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	f.IntVar(&cfg.Owners, "owners", loadtest.DefaultOwners, "number of generated owners")
	f.IntVar(&cfg.Items, "items", loadtest.DefaultItems, "number of generated items")
	f.IntVar(&cfg.Workers, "workers", 0, "concurrent requests (default CPU cores * 2)")
	f.DurationVar(&cfg.Timeout, "timeout", loadtest.DefaultTimeout, "HTTP request timeout")
	f.StringVar(&cfg.OutputFile, "output", "", "write the generated ratings to this document")
	return cmd
}
