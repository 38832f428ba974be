package usecase

import (
	"context"
	"time"

	"SerialWatch/internal/domain"
	"SerialWatch/internal/ports"
)

// Sweeper wires the interval driver with the fleet sweep use case.
type Sweeper struct {
	driver  ports.Scheduler
	service *Service
}

// NewSweeper returns a helper to start/stop recurring sweeps.
func NewSweeper(driver ports.Scheduler, service *Service) *Sweeper {
	return &Sweeper{driver: driver, service: service}
}

// Start registers the sweep with the provided scheduler.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.driver == nil || s.service == nil {
		return nil
	}

	job := func(time.Time) {
		if err := s.service.SweepAll(ctx, domain.SearchAll); err != nil {
			s.service.warn("sweep run failed", "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Sweeper) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
