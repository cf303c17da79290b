package payments

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// OverdueSweeper runs SweepOverdue on a cron schedule. It is meant to run in
// a single worker process so installments are never marked late twice.
type OverdueSweeper struct {
	service *Service
	logger  *zap.Logger
	config  OverdueSweeperConfig

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// OverdueSweeperConfig configures the sweep schedule
type OverdueSweeperConfig struct {
	Schedule string
}

// DefaultOverdueSweeperConfig runs the sweep once an hour.
func DefaultOverdueSweeperConfig() OverdueSweeperConfig {
	return OverdueSweeperConfig{Schedule: "0 0 * * * *"}
}

// NewOverdueSweeper creates a sweeper around the payments service.
func NewOverdueSweeper(service *Service, logger *zap.Logger, config OverdueSweeperConfig) *OverdueSweeper {
	if config.Schedule == "" {
		config.Schedule = DefaultOverdueSweeperConfig().Schedule
	}
	return &OverdueSweeper{
		service: service,
		logger:  logger,
		config:  config,
		cron:    cron.New(cron.WithSeconds()),
	}
}

// Start begins the periodic overdue sweep.
func (s *OverdueSweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("overdue sweeper already running")
	}

	_, err := s.cron.AddFunc(s.config.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule overdue sweep: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("Overdue payment sweeper started", zap.String("schedule", s.config.Schedule))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *OverdueSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("Overdue payment sweeper stopped")
}

// Sweep marks overdue installments once.
func (s *OverdueSweeper) Sweep(ctx context.Context) {
	if _, err := s.service.SweepOverdue(ctx); err != nil {
		s.logger.Error("Overdue payment sweep failed", zap.Error(err))
	}
}
