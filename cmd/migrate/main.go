package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	mongoMigration "healthmatch/internal/migrations/mongo"
	postgresMigration "healthmatch/internal/migrations/postgres"
	"healthmatch/pkg/config"
)

const (
	JobName          = "migrate"
	migrationTimeout = 120 * time.Second
)

// step is one store migration; steps run in order and stop at the first failure.
type step struct {
	name string
	run  func(ctx context.Context) error
}

func main() {
	direction := flag.String("direction", postgresMigration.DirectionUp, "postgres migration direction: up or down")
	flag.Parse()

	cfg := config.Load(JobName)

	if err := run(cfg, *direction); err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}
	cfg.Log.Info("Migration completed successfully")
}

// run connects the stores, migrates them and closes the connections before returning.
func run(cfg *config.Config, direction string) error {
	defer cfg.GracefulShutdown()

	ctx, cancel := context.WithTimeout(context.Background(), migrationTimeout)
	defer cancel()

	cfg.Log.Info("Starting migration job", "store_driver", cfg.StoreDriver)

	var steps []step
	if cfg.StoreDriver == config.StoreDriverPostgres {
		cfg.SetPostgres()
		steps = append(steps, step{name: "postgres", run: func(context.Context) error {
			return postgresMigration.RunMigrations(cfg.Client.Postgres, direction, cfg.Log)
		}})
	}

	// notifications are always stored in Mongo
	cfg.SetMongo()
	steps = append(steps, step{name: "mongo", run: func(ctx context.Context) error {
		return mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log)
	}})

	return runSteps(ctx, steps)
}

func runSteps(ctx context.Context, steps []step) error {
	for _, s := range steps {
		if err := s.run(ctx); err != nil {
			return fmt.Errorf("%s migration: %w", s.name, err)
		}
	}
	return nil
}
