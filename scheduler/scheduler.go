package scheduler

import (
	"context"
	"log"
	"time"

	"mse_backend_project/services"

	"github.com/go-co-op/gocron"
)

// Scheduler runs the data pipeline on a daily schedule.
type Scheduler struct {
	cron     *gocron.Scheduler
	pipeline *services.Pipeline
}

// NewScheduler creates a scheduler for the given pipeline.
func NewScheduler(pipeline *services.Pipeline) *Scheduler {
	return &Scheduler{
		cron:     gocron.NewScheduler(time.Local),
		pipeline: pipeline,
	}
}

// Start registers the daily refresh job and starts the scheduler.
// refreshAt is a HH:MM wall-clock time.
func (s *Scheduler) Start(ctx context.Context, refreshAt string) {
	log.Println("Starting scheduler...")

	_, err := s.cron.Every(1).Day().At(refreshAt).Do(func() {
		log.Println("Scheduled pipeline run starting...")
		if err := s.pipeline.Run(ctx); err != nil {
			log.Printf("Error in scheduled pipeline run: %v", err)
		}
	})
	if err != nil {
		log.Printf("Error registering refresh job: %v", err)
		return
	}

	s.cron.StartAsync()
	log.Printf("Scheduler started, daily refresh at %s", refreshAt)
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}
