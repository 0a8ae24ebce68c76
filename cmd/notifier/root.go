package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/itszoriel/munlink-sub001/modules"
	"github.com/itszoriel/munlink-sub001/modules/notifications/delivery"
	"github.com/itszoriel/munlink-sub001/pkg/application"
	"github.com/itszoriel/munlink-sub001/pkg/composables"
	"github.com/itszoriel/munlink-sub001/pkg/configuration"
	"github.com/itszoriel/munlink-sub001/pkg/eventbus"
)

// notifier runs the notification outbox worker standalone, without the HTTP
// server, so delivery can be scaled or scheduled independently.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifier",
		Short: "Notification outbox delivery worker",
	}
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newOnceCmd())
	return cmd
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll and deliver continuously until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			worker, pool, err := buildWorker(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			err = worker.Run(composables.WithPool(ctx, pool))
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
}

func newOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Drain everything currently eligible and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			worker, pool, err := buildWorker(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			processed, err := worker.RunOnce(composables.WithPool(ctx, pool))
			configuration.Use().Logger().WithField("processed", processed).Info("notifier drain finished")
			return err
		},
	}
}

func buildWorker(ctx context.Context) (*delivery.Worker, *pgxpool.Pool, error) {
	conf := configuration.Use()
	logger := conf.Logger()

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(connectCtx, conf.Database.Opts)
	if err != nil {
		return nil, nil, err
	}

	app := application.New(pool, logger, eventbus.NewEventPublisher(logger))
	if err := modules.Load(app); err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := app.Migrations().Apply(connectCtx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	processor := app.Service(delivery.Processor{}).(*delivery.Processor)
	worker := delivery.NewWorker(processor, delivery.WorkerOptions{
		PollInterval:      conf.Notifications.PollInterval,
		BatchSize:         conf.Notifications.BatchSize,
		Lease:             conf.Notifications.Lease,
		MaxAttempts:       conf.Notifications.MaxAttempts,
		ObserveDepthEvery: conf.Notifications.ObserveDepthEvery,
		Logger:            logger,
	})
	return worker, pool, nil
}
