package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/skyroute-io/skyroute/internal/catalog"
)

// Scheduler periodically re-reads the catalog store into a fresh snapshot,
// picking up administrative pricing/catalog changes made out of band.
type Scheduler struct {
	scheduler *gocron.Scheduler
	catalog   *catalog.Catalog
	interval  time.Duration
}

// New creates a new Scheduler.
func New(cat *catalog.Catalog, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		catalog:   cat,
		interval:  interval,
	}
}

// Start schedules the periodic refresh and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		if err := s.catalog.Refresh(); err != nil {
			// Keep serving the previous snapshot.
			log.Printf("scheduler: catalog refresh failed: %v", err)
			return
		}
		log.Println("scheduler: catalog snapshot refreshed")
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
