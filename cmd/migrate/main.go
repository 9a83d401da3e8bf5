package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/i474232898/rain-prediction-api/internal/config"
	"github.com/i474232898/rain-prediction-api/internal/migrate"
	mongostore "github.com/i474232898/rain-prediction-api/internal/store/mongo"
	"github.com/i474232898/rain-prediction-api/internal/store/postgres"
)

func main() {
	verifyOnly := flag.Bool("verify-only", false, "skip the copy and only reconcile the two stores")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall batch deadline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pgStore, err := postgres.Connect(ctx, cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pgStore.Close()

	docStore, disconnect, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("failed to connect to mongodb: %v", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := disconnect(disconnectCtx); err != nil {
			log.Printf("error disconnecting from mongodb: %v", err)
		}
	}()

	// Apply the schema contracts before copying so the migrated documents
	// are validated the same way API writes are.
	docStore.EnsureSchemas(ctx)

	migrator := migrate.New(pgStore, docStore)

	if !*verifyOnly {
		report, err := migrator.Run(ctx)
		if err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		log.Printf("migration %s completed: %d locations, %d observations, %d predictions in %s",
			report.RunID, report.Locations, report.Observations, report.Predictions,
			report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	}

	verification, err := migrator.Verify(ctx)
	if err != nil {
		log.Fatalf("verification failed: %v", err)
	}
	if !verification.OK() {
		for _, issue := range verification.Issues {
			log.Printf("verify: %s", issue)
		}
		log.Fatal("verification found mismatches between the two stores")
	}
	log.Println("verify: both stores reconcile")
}
