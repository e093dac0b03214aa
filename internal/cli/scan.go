package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/llehouerou/lastcord/internal/plugin"
	"github.com/llehouerou/lastcord/internal/scanner"
)

func newScanCmd(app *app) *cobra.Command {
	var (
		showAll bool
		process string
	)

	cmd := &cobra.Command{
		Use:   "scan [window-title]",
		Short: "Show what the rules extract from the open windows or from a given title",
		Long: "Lists running players once and tries every rule on them, disabled and shadowed ones\n" +
			"included. With a window title and --process, the rules are tried on that title instead.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var snapshot []scanner.Record
			if len(args) == 1 {
				if process == "" {
					return errors.New("--process is required with a window title")
				}
				snapshot = scanner.Dedup([]scanner.Record{{ProcessName: process, WindowTitle: args[0]}})
			} else {
				sc := app.cfg.GetScannerConfig()
				lister, closeLister, err := scanner.NewLister(scanner.Options{
					Command: sc.Command,
					Args:    sc.Args,
					Format:  sc.Format,
					Timeout: sc.CommandTimeout,
					MPRIS:   *sc.MPRIS,
					Logger:  app.logger,
				})
				if err != nil {
					return err
				}
				defer closeLister()
				snapshot = scanner.New(lister, sc.CommandTimeout, app.logger).Scan(cmd.Context())
			}

			rules := plugin.NewSet(app.state, nil, app.logger)
			if err := rules.Load(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			if showAll {
				_, _ = fmt.Fprintln(tw, "PROCESS\tWINDOW TITLE")
				for _, rec := range snapshot {
					_, _ = fmt.Fprintf(tw, "%s\t%s\n", rec.ProcessName, rec.WindowTitle)
				}
				_, _ = fmt.Fprintln(tw)
			}

			all := rules.Rules()
			if len(all) == 0 {
				_, _ = fmt.Fprintf(tw, "%d windows, no rules\n", len(snapshot))
				return tw.Flush()
			}

			result, ok, _ := plugin.Match(rules.Enabled(), snapshot)
			for _, r := range all {
				mark := " "
				if ok && r.ID == result.RuleID {
					mark = "*"
				}
				_, _ = fmt.Fprintf(tw, "%s %d\t%s\t%s\n", mark, r.ID, r.ProcessName, extracted(r, snapshot))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if !ok {
				_, err := fmt.Fprintln(out, "nothing playing")
				return err
			}
			_, err := fmt.Fprintf(out, "playing: %s - %s (rule %d, %s)\n",
				result.Artist, result.Title, result.RuleID, result.ProcessName)
			return err
		},
	}

	cmd.Flags().BoolVarP(&showAll, "all", "a", false, "Also list every window seen")
	cmd.Flags().StringVarP(&process, "process", "p", "", "Process name of the window title given as argument")

	return cmd
}

// extracted describes what r alone gets out of snapshot, so rules shadowed
// by an earlier one still show their result.
func extracted(r plugin.Rule, snapshot []scanner.Record) string {
	if !r.Enabled {
		return "disabled"
	}
	res, ok, _ := plugin.Match([]plugin.Rule{r}, snapshot)
	if !ok {
		return "no match"
	}
	return fmt.Sprintf("%s - %s", res.Artist, res.Title)
}
