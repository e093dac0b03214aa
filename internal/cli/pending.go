package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/llehouerou/lastcord/internal/errmsg"
	"github.com/llehouerou/lastcord/internal/scrobble"
)

func newPendingCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Inspect and resubmit scrobbles that failed",
	}

	cmd.AddCommand(newPendingListCmd(app), newPendingFlushCmd(app))

	return cmd
}

func newPendingListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued scrobbles, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pending, err := app.state.GetPendingScrobbles(cmd.Context())
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "no pending scrobbles")
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tPLAYED\tTRACK\tATTEMPTS\tLAST ERROR")
			for _, p := range pending {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s - %s\t%d\t%s\n",
					p.ID, humanize.Time(p.Timestamp), p.Artist, p.Track, p.Attempts, p.LastError)
			}
			return tw.Flush()
		},
	}
}

func newPendingFlushCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Resubmit queued scrobbles now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !app.cfg.HasLastfmConfig() {
				return fmt.Errorf("lastfm.api_key and lastfm.api_secret are not configured")
			}
			client, _, err := app.sessionClient(cmd.Context(), app.httpClient())
			if err != nil {
				return failed(errmsg.OpLastfmRetry, "", err)
			}

			sbc := app.cfg.GetScrobbleConfig()
			retrier := scrobble.NewRetrier(scrobble.RetrierConfig{
				Submitter:   client,
				Queue:       app.state,
				History:     app.state,
				MaxAttempts: sbc.MaxAttempts,
				MaxAge:      sbc.MaxAge,
				CallTimeout: app.cfg.HTTPTimeout(),
				Logger:      app.logger,
			})
			res, err := retrier.Retry(cmd.Context())
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "submitted %d, failed %d, exhausted %d, expired %d\n",
				res.Succeeded, res.Failed, res.Skipped, res.Expired)
			return failed(errmsg.OpLastfmRetry, "", err)
		},
	}
}
