// Package cli is lastcord's command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/llehouerou/lastcord/internal/config"
	"github.com/llehouerou/lastcord/internal/logging"
	"github.com/llehouerou/lastcord/internal/state"
)

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// app holds what every command needs once flags are parsed.
type app struct {
	configPath string
	dbPath     string

	cfg    *config.Config
	state  state.Interface
	logger *slog.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	app := &app{logger: slog.New(slog.DiscardHandler)}

	rootCmd := &cobra.Command{
		Use:           "lastcord",
		Short:         "Scrobble what your desktop players show and mirror it to Discord",
		Long:          "lastcord watches window titles and media players, extracts the playing track with user rules, scrobbles it to Last.fm and shows it as your Discord status.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipSetup] != "" {
				return nil
			}
			return app.open()
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return app.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "Config file (default: ~/.config/lastcord/config.toml and ./config.toml)")
	rootCmd.PersistentFlags().StringVar(&app.dbPath, "db", "", "State database (default: $XDG_DATA_HOME/lastcord/lastcord.db)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(app),
		newWatchCmd(app),
		newScanCmd(app),
		newRulesCmd(app),
		newAuthCmd(app),
		newPendingCmd(app),
		newHistoryCmd(app),
	)

	return rootCmd
}

// skipSetup marks commands that need neither config nor state.
const skipSetup = "lastcord/skip-setup"

func (a *app) open() error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFile(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	if cfg.Log.Stderr {
		a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logging.ParseLevel(cfg.LogLevel()),
		}))
	}

	var mgr *state.Manager
	if a.dbPath != "" {
		mgr, err = state.OpenPath(a.dbPath)
	} else {
		mgr, err = state.Open()
	}
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	a.state = mgr
	return nil
}

func (a *app) close() error {
	if a.state == nil {
		return nil
	}
	err := a.state.Close()
	a.state = nil
	return err
}
