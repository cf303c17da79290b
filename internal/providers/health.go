package providers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// HealthMonitor is the single writer of provider health status. It probes
// every registered invoker on a cron schedule and classifies each provider
// from the probe result plus its rolling success rate. Dispatch never mutates
// health; it only appends attempt outcomes.
type HealthMonitor struct {
	router *Router
	repo   Repository
	logger *zap.Logger
	config HealthMonitorConfig

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// HealthMonitorConfig configures classification thresholds
type HealthMonitorConfig struct {
	Schedule       string
	ProbeTimeout   time.Duration
	DegradedBelow  float64
	UnhealthyBelow float64
}

// DefaultHealthMonitorConfig returns default thresholds
func DefaultHealthMonitorConfig() HealthMonitorConfig {
	return HealthMonitorConfig{
		Schedule:       "0 */2 * * * *",
		ProbeTimeout:   5 * time.Second,
		DegradedBelow:  0.95,
		UnhealthyBelow: 0.50,
	}
}

// NewHealthMonitor creates a health monitor bound to the router's invokers.
func NewHealthMonitor(router *Router, repo Repository, logger *zap.Logger, config HealthMonitorConfig) *HealthMonitor {
	if config.Schedule == "" {
		config.Schedule = DefaultHealthMonitorConfig().Schedule
	}
	if config.ProbeTimeout == 0 {
		config.ProbeTimeout = 5 * time.Second
	}
	return &HealthMonitor{
		router: router,
		repo:   repo,
		logger: logger,
		config: config,
		cron:   cron.New(cron.WithSeconds()),
	}
}

// Start begins the periodic health sweep.
func (m *HealthMonitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("health monitor already running")
	}

	_, err := m.cron.AddFunc(m.config.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		m.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule health sweep: %w", err)
	}

	m.cron.Start()
	m.running = true
	m.logger.Info("Provider health monitor started", zap.String("schedule", m.config.Schedule))
	return nil
}

// Stop halts the sweep schedule and waits for a running sweep to finish.
func (m *HealthMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	<-m.cron.Stop().Done()
	m.running = false
	m.logger.Info("Provider health monitor stopped")
}

// Sweep probes every configured provider once and persists its classification.
func (m *HealthMonitor) Sweep(ctx context.Context) {
	configs, err := m.repo.ListAll(ctx)
	if err != nil {
		m.logger.Error("Health sweep failed to list providers", zap.Error(err))
		return
	}

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		health := m.classify(ctx, cfg)
		if health == cfg.Health {
			continue
		}
		if err := m.repo.SetHealth(ctx, cfg.ID, health); err != nil {
			m.logger.Error("Failed to persist provider health",
				zap.String("provider", cfg.Name), zap.Error(err))
			continue
		}
		m.logger.Info("Provider health changed",
			zap.String("capability", string(cfg.Capability)),
			zap.String("provider", cfg.Name),
			zap.String("from", string(cfg.Health)),
			zap.String("to", string(health)))
	}
}

func (m *HealthMonitor) classify(ctx context.Context, cfg *ProviderConfig) HealthStatus {
	inv, ok := m.router.invoker(cfg.Name)
	if !ok {
		// Configured but not wired in this process; leave classification to
		// the rolling success rate alone.
		return classifyByRate(cfg.SuccessRate, m.config)
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.config.ProbeTimeout)
	defer cancel()

	if err := inv.HealthCheck(probeCtx); err != nil {
		m.logger.Warn("Provider health probe failed",
			zap.String("provider", cfg.Name), zap.Error(err))
		return HealthUnhealthy
	}

	return classifyByRate(cfg.SuccessRate, m.config)
}

func classifyByRate(rate float64, config HealthMonitorConfig) HealthStatus {
	switch {
	case rate < config.UnhealthyBelow:
		return HealthUnhealthy
	case rate < config.DegradedBelow:
		return HealthDegraded
	default:
		return HealthHealthy
	}
}
