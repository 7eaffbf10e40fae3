package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/V-SK/moltboard/internal/dashboard"
	"github.com/V-SK/moltboard/internal/normalize"
	"github.com/V-SK/moltboard/internal/render"
)

const defaultSearchLimit = 20

func newSearchCommand() *cobra.Command {
	var (
		limit     int
		serverURL string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search posts through a running moltboard server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if serverURL != "" {
				cfg.Dashboard.ServerURL = serverURL
			}

			query := strings.Join(args, " ")
			source := dashboard.NewHTTPSource(cfg.Dashboard.ServerURL, cfg.Dashboard.RequestTimeout)
			body, err := source.Search(cmd.Context(), query, limit)
			if err != nil {
				return fmt.Errorf("search %q: %w", query, err)
			}

			posts := normalize.Posts(body)
			out := render.Posts(fmt.Sprintf("Search: %s", query), posts, limit, cfg.Upstream.SiteURL, time.Now())
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", defaultSearchLimit, "maximum number of results")
	cmd.Flags().StringVar(&serverURL, "server", "", "moltboard server URL (overrides dashboard.server_url)")

	return cmd
}
