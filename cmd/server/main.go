package main

import (
	"context"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/itszoriel/munlink-sub001/internal/server"
	"github.com/itszoriel/munlink-sub001/modules"
	"github.com/itszoriel/munlink-sub001/modules/notifications/delivery"
	"github.com/itszoriel/munlink-sub001/pkg/application"
	"github.com/itszoriel/munlink-sub001/pkg/composables"
	"github.com/itszoriel/munlink-sub001/pkg/configuration"
	"github.com/itszoriel/munlink-sub001/pkg/eventbus"
	"github.com/itszoriel/munlink-sub001/pkg/logging"
	"github.com/itszoriel/munlink-sub001/pkg/metrics"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		cleanup := logging.SetupTracing(
			context.Background(),
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.TempoURL,
		)
		defer cleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to " + conf.OpenTelemetry.TempoURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}

	app := application.New(pool, logger, eventbus.NewEventPublisher(logger))
	if err := modules.Load(app); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}
	if err := app.Migrations().Apply(ctx, pool); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}

	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	if conf.Notifications.WorkerEnabled {
		startNotificationWorker(app, conf)
	}

	options := &server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	}
	serverInstance, err := server.Default(options)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}
	log.Printf("Listening on: %s://%s\n", conf.Scheme(), conf.SocketAddress)
	if err := serverInstance.Start(conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

func startNotificationWorker(app application.Application, conf *configuration.Configuration) {
	processor := app.Service(delivery.Processor{}).(*delivery.Processor)
	worker := delivery.NewWorker(processor, delivery.WorkerOptions{
		PollInterval:      conf.Notifications.PollInterval,
		BatchSize:         conf.Notifications.BatchSize,
		Lease:             conf.Notifications.Lease,
		MaxAttempts:       conf.Notifications.MaxAttempts,
		ObserveDepthEvery: conf.Notifications.ObserveDepthEvery,
		Logger:            app.Logger(),
	})

	workerCtx := composables.WithPool(context.Background(), app.Pool())
	go func() {
		if err := worker.Run(workerCtx); err != nil && workerCtx.Err() == nil {
			app.Logger().WithError(err).Error("notification worker stopped")
		}
	}()
}
