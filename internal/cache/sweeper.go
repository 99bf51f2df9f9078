package cache

import (
	"context"
	"log"
	"time"
)

// Sweeper periodically prunes started events out of every user's cache
// records. Runs are idempotent, so the deployment assumption is simply that
// one instance owns the schedule.
type Sweeper struct {
	service  *Service
	interval time.Duration
}

func NewSweeper(service *Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{service: service, interval: interval}
}

// Start launches the sweep loop. It stops when ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		log.Printf("🧹 Cache sweeper started (interval: %s)", s.interval)
		for {
			select {
			case <-ctx.Done():
				log.Println("Cache sweeper stopped")
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()
}

func (s *Sweeper) runOnce(ctx context.Context) {
	touched, err := s.service.SweepExpired(ctx)
	if err != nil {
		log.Printf("Cache sweep failed: %v", err)
		return
	}
	if touched > 0 {
		log.Printf("🧹 Cache sweep pruned started events from %d user records", touched)
	}
}
