package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/llehouerou/lastcord/internal/logging"
	"github.com/llehouerou/lastcord/internal/ui/status"
)

func newRunCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the agent in the foreground",
		Long:  "Run scans for players, scrobbles detected tracks and keeps the Discord status up to date until interrupted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger, closer, err := app.setupLogging(true)
			if err != nil {
				return err
			}
			defer closer.Close()

			w, err := app.wire(ctx, logger)
			if err != nil {
				logger.Error("startup failed", "error", err)
				return err
			}
			defer w.close()

			return w.run(ctx)
		},
	}
}

func newWatchCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the agent with a live status view",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// The view owns the terminal; logs only go to the file.
			logger, closer, err := app.setupLogging(false)
			if err != nil {
				return err
			}
			defer closer.Close()

			w, err := app.wire(ctx, logger)
			if err != nil {
				return err
			}
			defer w.close()

			sub := w.bus.Subscribe()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			var wg sync.WaitGroup
			var runErr error
			wg.Go(func() {
				runErr = w.run(ctx)
			})

			p := tea.NewProgram(status.New(sub, "lastcord"), tea.WithAltScreen(), tea.WithContext(ctx))
			_, viewErr := p.Run()
			cancel()
			wg.Wait()

			if errors.Is(viewErr, tea.ErrProgramKilled) {
				viewErr = nil
			}
			return errors.Join(viewErr, runErr)
		},
	}
}

func (a *app) setupLogging(stderr bool) (*slog.Logger, io.Closer, error) {
	logger, closer, err := logging.Setup(logging.Options{
		Level:  a.cfg.LogLevel(),
		Dir:    a.cfg.Log.Dir,
		Stderr: stderr,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("set up logging: %w", err)
	}
	a.logger = logger
	return logger, closer, nil
}
