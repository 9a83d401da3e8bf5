package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/i474232898/rain-prediction-api/internal/config"
	"github.com/i474232898/rain-prediction-api/internal/predict"
	"github.com/i474232898/rain-prediction-api/internal/scheduler"
)

func main() {
	post := flag.Bool("post", false, "record the outcome as a prediction through the API")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	model, err := predict.LoadModel(cfg.ModelPath)
	if err != nil {
		log.Fatalf("failed to load model: %v", err)
	}

	// Shared HTTP client for API calls.
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}
	client := predict.NewClient(httpClient, cfg.APIBaseURL)

	runner := predict.NewRunner(client, model)
	runner.Post = *post

	// One-shot unless an interval is configured.
	if cfg.PredictInterval <= 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if _, err := runner.RunOnce(ctx); err != nil {
			log.Fatalf("prediction failed: %v", err)
		}
		return
	}

	sched := scheduler.New("prediction", cfg.PredictInterval, func(ctx context.Context) error {
		_, err := runner.RunOnce(ctx)
		return err
	})
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Wait for termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
}
