// Command replayctl is the operator CLI for replaying individual or bulk
// non-terminal requests in a single domain, via replay.Aggregate.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/ovation22/triplederby-workers/internal/bus"
	"github.com/ovation22/triplederby-workers/internal/config"
	"github.com/ovation22/triplederby-workers/internal/domain/breeding"
	"github.com/ovation22/triplederby-workers/internal/domain/feeding"
	"github.com/ovation22/triplederby-workers/internal/domain/racing"
	"github.com/ovation22/triplederby-workers/internal/domain/training"
	"github.com/ovation22/triplederby-workers/internal/platform/database"
	"github.com/ovation22/triplederby-workers/internal/platform/workerapp"
	"github.com/ovation22/triplederby-workers/internal/replay"
)

// queueNames mirrors the default queue each <domain>worker binds to, so
// replayctl republishes onto the same destination that worker consumes.
var queueNames = map[replay.ServiceType]string{
	replay.ServiceBreeding: "breeding-requests",
	replay.ServiceFeeding:  "feeding-requests",
	replay.ServiceTraining: "training-requests",
	replay.ServiceRacing:   "racing-requests",
}

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageError(errors.New("expected: replayctl <one|all> <breeding|feeding|training|racing> [request-id]"))
	}
	command, serviceArg := args[0], args[1]

	serviceType, err := parseServiceType(serviceArg)
	if err != nil {
		return usageError(err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Open(ctx, cfg.ConnectionStrings.Postgres)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	zlog := zerolog.New(io.Discard)

	adapter, err := workerapp.BuildAdapter(cfg, workerapp.QueueTopology{Queue: queueNames[serviceType]})
	if err != nil {
		return fmt.Errorf("build broker adapter: %w", err)
	}
	if err := adapter.Connect(ctx); err != nil {
		return fmt.Errorf("connect broker: %w", err)
	}
	defer adapter.Disconnect(ctx)

	publisher := bus.NewRoutingPublisher(adapter, cfg.Routing)
	controller := buildController(serviceType, db, publisher, zlog)
	aggregate := replay.NewAggregate()
	aggregate.Register(serviceType, controller)

	switch command {
	case "one":
		if len(args) < 3 {
			return usageError(errors.New("replayctl one <service> <request-id>"))
		}
		if err := aggregate.ReplayOne(ctx, serviceType, args[2]); err != nil {
			return fmt.Errorf("replay %s %s: %w", serviceType, args[2], err)
		}
		fmt.Printf("replayed %s request %s\n", serviceType, args[2])
		return nil
	case "all":
		fs := flag.NewFlagSet("all", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		parallelFlag := fs.Int("parallel", cfg.ReplayMaxParallel, "max concurrent replays")
		if err := fs.Parse(args[2:]); err != nil {
			return usageError(err)
		}
		count, err := aggregate.ReplayAll(ctx, serviceType, *parallelFlag)
		if err != nil {
			return fmt.Errorf("replay all %s: %w", serviceType, err)
		}
		fmt.Printf("replayed %d %s request(s)\n", count, serviceType)
		return nil
	default:
		return usageError(fmt.Errorf("unknown command %q", command))
	}
}

func parseServiceType(s string) (replay.ServiceType, error) {
	switch strings.ToLower(s) {
	case "breeding":
		return replay.ServiceBreeding, nil
	case "feeding":
		return replay.ServiceFeeding, nil
	case "training":
		return replay.ServiceTraining, nil
	case "racing":
		return replay.ServiceRacing, nil
	default:
		return "", fmt.Errorf("unknown service %q; want breeding, feeding, training, or racing", s)
	}
}

func buildController(t replay.ServiceType, db *sqlx.DB, publisher *bus.RoutingPublisher, logger zerolog.Logger) *replay.Controller {
	var replayer replay.Replayer
	switch t {
	case replay.ServiceBreeding:
		replayer = breeding.NewStore(db)
	case replay.ServiceFeeding:
		replayer = feeding.NewStore(db)
	case replay.ServiceTraining:
		replayer = training.NewStore(db)
	case replay.ServiceRacing:
		replayer = racing.NewStore(db)
	}
	return &replay.Controller{Replayer: replayer, Publisher: publisher, Logger: logger}
}

func usageError(err error) error {
	return fmt.Errorf("%w\nusage: replayctl <one|all> <breeding|feeding|training|racing> [request-id] [-parallel N]", err)
}
