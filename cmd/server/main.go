package main

import (
	"context"
	"database/sql"

	"grappling-rank/internal/constants"
	fxmodules "grappling-rank/internal/fx"
	"grappling-rank/internal/scheduler"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runDaemon),
	).Run()
}

func runDaemon(
	lc fx.Lifecycle,
	sched *scheduler.Scheduler,
	db *sql.DB,
	logger zerolog.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info().Msg("rating daemon starting")
			return sched.Start()
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down rating daemon")

			shutdownCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
			defer cancel()

			stopped := make(chan struct{})
			go func() {
				sched.Stop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-shutdownCtx.Done():
				logger.Warn().Msg("scheduler did not stop before the shutdown deadline")
			}

			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}
			logger.Info().Msg("rating daemon stopped gracefully")
			return nil
		},
	})
}
