package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Job is a unit of periodic work run under a bounded context.
type Job func(ctx context.Context) error

// Scheduler periodically runs a named job at a fixed interval.
type Scheduler struct {
	scheduler *gocron.Scheduler
	name      string
	interval  time.Duration
	job       Job
}

// New creates a new Scheduler.
func New(name string, interval time.Duration, job Job) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		name:      name,
		interval:  interval,
		job:       job,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		log.Printf("scheduler: running %s job", s.name)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.job(ctx); err != nil {
			log.Printf("scheduler: %s job failed: %v", s.name, err)
			return
		}
		log.Printf("scheduler: completed %s job", s.name)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
