package coupons

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/petrolink/fuelhub/pkg/logger"
)

// Sweeper periodically expires coupons whose expiry has passed.
type Sweeper struct {
	service  *Service
	schedule string
	log      *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewSweeper builds a sweeper running on the given cron schedule. An empty
// schedule defaults to once a minute.
func NewSweeper(service *Service, schedule string, log *logger.Logger) *Sweeper {
	if log == nil {
		log = logger.NewDefault("coupon-sweeper")
	}
	if schedule == "" {
		schedule = "@every 1m"
	}
	return &Sweeper{service: service, schedule: schedule, log: log}
}

func (s *Sweeper) Name() string { return "coupon-sweeper" }

// Start schedules the sweep. Starting twice is a no-op.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.sweep(ctx) }); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.running = true
	s.log.WithField("schedule", s.schedule).Info("coupon expiry sweeper started")
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.running = false
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	expired, err := s.service.ExpireDue(ctx, time.Now().UTC())
	if err != nil {
		s.log.WithError(err).Warn("coupon expiry sweep failed")
		return
	}
	if expired > 0 {
		s.log.WithField("expired", expired).Info("coupon expiry sweep finished")
	}
}
