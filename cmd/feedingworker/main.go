// Command feedingworker consumes feeding.Requested messages, computes the
// happiness delta, and publishes feeding.Completed.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/ovation22/triplederby-workers/internal/bus"
	"github.com/ovation22/triplederby-workers/internal/config"
	"github.com/ovation22/triplederby-workers/internal/domain/feeding"
	"github.com/ovation22/triplederby-workers/internal/logging"
	"github.com/ovation22/triplederby-workers/internal/metrics"
	"github.com/ovation22/triplederby-workers/internal/platform/database"
	"github.com/ovation22/triplederby-workers/internal/platform/migrations"
	"github.com/ovation22/triplederby-workers/internal/platform/workerapp"
	"github.com/ovation22/triplederby-workers/internal/replay"
)

const serviceName = "feedingworker"

func main() {
	log := logging.NewFromEnv(serviceName)

	if err := run(context.Background()); err != nil {
		log.WithError(err).Fatal("feedingworker exited with error")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	zlog := zerolog.New(os.Stdout).With().Timestamp().Str("service", serviceName).Logger()

	db, err := database.Open(ctx, cfg.ConnectionStrings.Postgres)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := migrations.Apply(db.DB, cfg.MigrationsPath); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	queue := cfg.Consumer.Queue
	if queue == "" {
		queue = "feeding-requests"
	}
	adapter, err := workerapp.BuildAdapter(cfg, workerapp.QueueTopology{Queue: queue, DeadLetter: true})
	if err != nil {
		return fmt.Errorf("build broker adapter: %w", err)
	}

	met := metrics.New(serviceName)
	publisher := bus.NewRoutingPublisher(adapter, cfg.Routing)

	store := feeding.NewStore(db)
	processor := feeding.NewProcessor(store, publisher, zlog)

	consumer := &bus.Consumer[feeding.Requested]{
		Adapter:   adapter,
		Config:    cfg.Consumer,
		Processor: processor,
		Logger:    zlog,
		Metrics:   met,
		Service:   serviceName,
	}

	reaper := &replay.Reaper{
		Store:      store,
		Interval:   cfg.ReaperInterval,
		StuckAfter: cfg.StuckInProgressAfter,
		Logger:     zlog,
	}

	app := &workerapp.App{
		Service:   serviceName,
		Config:    cfg,
		Logger:    zlog,
		Consumers: []workerapp.Startable{consumer},
		Reaper:    reaper.Run,
	}
	return app.Run(ctx)
}
