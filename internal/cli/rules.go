package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/llehouerou/lastcord/internal/errmsg"
	"github.com/llehouerou/lastcord/internal/plugin"
)

func newRulesCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage the rules that recognize players",
	}

	cmd.AddCommand(
		newRulesListCmd(app),
		newRulesAddCmd(app),
		newRulesRemoveCmd(app),
		newRulesToggleCmd(app, true),
		newRulesToggleCmd(app, false),
		newRulesMoveCmd(app),
		newRulesImportCmd(app),
		newRulesExportCmd(app),
	)

	return cmd
}

// loadRules returns the stored rule set.
func (a *app) loadRules(cmd *cobra.Command) (*plugin.Set, error) {
	set := plugin.NewSet(a.state, nil, a.logger)
	if err := set.Load(cmd.Context()); err != nil {
		return nil, failed(errmsg.OpRuleLoad, "", err)
	}
	return set, nil
}

func parseRuleID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid rule id %q", arg)
	}
	return id, nil
}

func newRulesListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules in match order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, err := app.loadRules(cmd)
			if err != nil {
				return err
			}
			rules := set.Rules()
			if len(rules) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "no rules")
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tENABLED\tPROCESS\tPATTERN\tARTIST\tTITLE")
			for _, r := range rules {
				_, _ = fmt.Fprintf(tw, "%d\t%t\t%s\t%s\t%d\t%d\n",
					r.ID, r.Enabled, r.ProcessName, r.Pattern, r.ArtistGroup, r.TitleGroup)
			}
			return tw.Flush()
		},
	}
}

func newRulesAddCmd(app *app) *cobra.Command {
	var def plugin.Definition
	var disabled bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, err := app.loadRules(cmd)
			if err != nil {
				return err
			}
			def.Enabled = !disabled
			r, err := set.Add(cmd.Context(), def)
			if err != nil {
				return failed(errmsg.OpRuleAdd, def.ProcessName, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "added rule %d\n", r.ID)
			return err
		},
	}

	cmd.Flags().StringVar(&def.ProcessName, "process", "", "Process name, matched exactly")
	cmd.Flags().StringVar(&def.Pattern, "pattern", "", "Regular expression applied to the window title")
	cmd.Flags().IntVar(&def.ArtistGroup, "artist-group", 1, "Capture group holding the artist")
	cmd.Flags().IntVar(&def.TitleGroup, "title-group", 2, "Capture group holding the title")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Add the rule disabled")
	_ = cmd.MarkFlagRequired("process")
	_ = cmd.MarkFlagRequired("pattern")

	return cmd
}

func newRulesRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRuleID(args[0])
			if err != nil {
				return err
			}
			set, err := app.loadRules(cmd)
			if err != nil {
				return err
			}
			return failed(errmsg.OpRuleRemove, args[0], set.Remove(cmd.Context(), id))
		},
	}
}

func newRulesToggleCmd(app *app, enable bool) *cobra.Command {
	use, short, op := "disable <id>", "Stop matching with a rule", errmsg.OpRuleDisable
	if enable {
		use, short, op = "enable <id>", "Match with a rule again", errmsg.OpRuleEnable
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRuleID(args[0])
			if err != nil {
				return err
			}
			set, err := app.loadRules(cmd)
			if err != nil {
				return err
			}
			if enable {
				err = set.Enable(cmd.Context(), id)
			} else {
				err = set.Disable(cmd.Context(), id)
			}
			return failed(op, args[0], err)
		},
	}
}

func newRulesMoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <position>",
		Short: "Change a rule's priority (position 1 is tried first)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRuleID(args[0])
			if err != nil {
				return err
			}
			pos, err := strconv.Atoi(args[1])
			if err != nil || pos < 1 {
				return fmt.Errorf("invalid position %q", args[1])
			}
			set, err := app.loadRules(cmd)
			if err != nil {
				return err
			}
			return failed(errmsg.OpRuleMove, args[0], set.Move(cmd.Context(), id, pos-1))
		},
	}
}

func newRulesImportCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import [path...]",
		Short: "Import plugin files (JSON or TOML) or directories of them",
		Long:  "Import appends the rules of each plugin file. Directories are read in name order. Without arguments the configured plugin_dir is used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				if app.cfg.PluginDir == "" {
					return fmt.Errorf("no path given and plugin_dir is not configured")
				}
				paths = []string{app.cfg.PluginDir}
			}

			var defs []plugin.Definition
			for _, path := range paths {
				d, err := readPlugins(path)
				if err != nil {
					return failed(errmsg.OpRuleImport, path, err)
				}
				defs = append(defs, d...)
			}

			set, err := app.loadRules(cmd)
			if err != nil {
				return err
			}
			for _, def := range defs {
				if _, err := set.Add(cmd.Context(), def); err != nil {
					return failed(errmsg.OpRuleAdd, def.ProcessName, err)
				}
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d rules\n", len(defs))
			return err
		},
	}
}

func readPlugins(path string) ([]plugin.Definition, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return plugin.ReadDir(path)
	}
	return plugin.ReadFile(path)
}

func newRulesExportCmd(app *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every rule as a TOML plugin file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, err := app.loadRules(cmd)
			if err != nil {
				return err
			}
			data, err := plugin.ExportTOML(plugin.Definitions(set.Rules()))
			if err != nil {
				return failed(errmsg.OpRuleExport, "", err)
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return failed(errmsg.OpRuleExport, output, os.WriteFile(output, data, 0o644))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")

	return cmd
}
