package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SOMET1010/montoitv6-sub000/pkg/errs"
)

// Router dispatches capability requests across interchangeable providers in
// priority order, skipping unhealthy ones and failing over on error. It never
// reorders providers mid-dispatch; cost-based reordering is a separate
// administrative action.
type Router struct {
	repo           Repository
	logger         *zap.Logger
	attemptTimeout time.Duration
	costFloor      float64

	mu       sync.RWMutex
	invokers map[string]Invoker
}

// RouterConfig configures the failover router
type RouterConfig struct {
	AttemptTimeout   time.Duration
	SuccessRateFloor float64
}

// NewRouter creates a failover router
func NewRouter(repo Repository, logger *zap.Logger, cfg RouterConfig) *Router {
	if cfg.AttemptTimeout == 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	if cfg.SuccessRateFloor == 0 {
		cfg.SuccessRateFloor = 0.90
	}
	return &Router{
		repo:           repo,
		logger:         logger,
		attemptTimeout: cfg.AttemptTimeout,
		costFloor:      cfg.SuccessRateFloor,
		invokers:       make(map[string]Invoker),
	}
}

// RegisterInvoker binds a concrete provider client to its configured name.
func (r *Router) RegisterInvoker(inv Invoker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invokers[inv.Name()] = inv
}

func (r *Router) invoker(name string) (Invoker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.invokers[name]
	return inv, ok
}

// Dispatch invokes the lowest-priority-number enabled, non-unhealthy provider
// for the capability, failing over down the chain on error. Every attempt is
// recorded append-only and folded into the provider's rolling metrics. Each
// provider is tried at most once per dispatch.
func (r *Router) Dispatch(ctx context.Context, capability Capability, req Request) (*Response, error) {
	configs, err := r.repo.ListByCapability(ctx, capability)
	if err != nil {
		return nil, fmt.Errorf("failed to load provider chain for %s: %w", capability, err)
	}

	chain := eligibleChain(configs)
	if len(chain) == 0 {
		return nil, &errs.AllProvidersExhaustedError{Capability: string(capability), Attempts: 0}
	}

	dispatchID := uuid.New()
	attempts := 0

	for _, cfg := range chain {
		inv, ok := r.invoker(cfg.Name)
		if !ok {
			r.logger.Warn("Provider configured but no invoker registered",
				zap.String("capability", string(capability)),
				zap.String("provider", cfg.Name))
			continue
		}

		attempts++
		resp, attemptErr := r.attempt(ctx, dispatchID, cfg, inv, req)
		if attemptErr == nil {
			return resp, nil
		}

		r.logger.Warn("Provider attempt failed, trying next in chain",
			zap.String("capability", string(capability)),
			zap.String("provider", cfg.Name),
			zap.Error(attemptErr))
	}

	return nil, &errs.AllProvidersExhaustedError{Capability: string(capability), Attempts: attempts}
}

func (r *Router) attempt(ctx context.Context, dispatchID uuid.UUID, cfg *ProviderConfig, inv Invoker, req Request) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
	defer cancel()

	start := time.Now()
	resp, err := inv.Invoke(attemptCtx, req)
	latency := float64(time.Since(start).Milliseconds())

	if attemptCtx.Err() == context.DeadlineExceeded {
		err = &errs.TimeoutError{Op: fmt.Sprintf("%s dispatch via %s", cfg.Capability, cfg.Name), Budget: r.attemptTimeout}
	} else if err != nil {
		err = &errs.ProviderError{Provider: cfg.Name, Err: err}
	}

	r.recordOutcome(ctx, dispatchID, cfg, err == nil, latency, err)

	if err != nil {
		return nil, err
	}
	resp.Provider = cfg.Name
	return resp, nil
}

// recordOutcome appends the attempt and updates rolling metrics. Bookkeeping
// failures are logged, never surfaced; they must not fail the dispatch.
func (r *Router) recordOutcome(ctx context.Context, dispatchID uuid.UUID, cfg *ProviderConfig, succeeded bool, latencyMs float64, attemptErr error) {
	attempt := &DispatchAttempt{
		ID:         uuid.New(),
		DispatchID: dispatchID,
		ProviderID: cfg.ID,
		Capability: cfg.Capability,
		Succeeded:  succeeded,
		LatencyMs:  latencyMs,
		AttemptAt:  time.Now(),
	}
	if attemptErr != nil {
		attempt.ErrorText = attemptErr.Error()
	}

	if err := r.repo.RecordAttempt(ctx, attempt); err != nil {
		r.logger.Warn("Failed to record dispatch attempt", zap.Error(err))
	}
	if err := r.repo.UpdateRollingMetrics(ctx, cfg.ID, succeeded, latencyMs); err != nil {
		r.logger.Warn("Failed to update rolling metrics", zap.Error(err))
	}
}

// eligibleChain filters to enabled, non-unhealthy providers. The repository
// returns rows ordered by priority so the chain order is the dispatch order.
func eligibleChain(configs []*ProviderConfig) []*ProviderConfig {
	chain := make([]*ProviderConfig, 0, len(configs))
	for _, cfg := range configs {
		if cfg.Enabled && cfg.Health != HealthUnhealthy {
			chain = append(chain, cfg)
		}
	}
	return chain
}

// OptimizeCosts reorders the capability's priorities so that, among providers
// meeting the success-rate floor, the cheapest unit cost comes first.
// Providers below the floor keep their relative order after the qualifying
// group. Explicit admin action only; dispatch never triggers it.
func (r *Router) OptimizeCosts(ctx context.Context, capability Capability) error {
	configs, err := r.repo.ListByCapability(ctx, capability)
	if err != nil {
		return fmt.Errorf("failed to load providers for cost optimization: %w", err)
	}

	ordered := CostOptimizedOrder(configs, r.costFloor)

	for rank, cfg := range ordered {
		priority := rank + 1
		if cfg.Priority == priority {
			continue
		}
		if err := r.repo.SetPriority(ctx, cfg.ID, priority); err != nil {
			return fmt.Errorf("failed to apply optimized priority for %s: %w", cfg.Name, err)
		}
		r.logger.Info("Provider priority reordered by cost",
			zap.String("capability", string(capability)),
			zap.String("provider", cfg.Name),
			zap.Int("old_priority", cfg.Priority),
			zap.Int("new_priority", priority))
	}

	return nil
}

// CostOptimizedOrder computes the new provider order: qualifying providers
// (success rate at or above the floor) sorted by ascending unit cost, then the
// rest in their existing priority order. Pure so it can be tested directly.
func CostOptimizedOrder(configs []*ProviderConfig, successRateFloor float64) []*ProviderConfig {
	qualifying := make([]*ProviderConfig, 0, len(configs))
	remaining := make([]*ProviderConfig, 0, len(configs))
	for _, cfg := range configs {
		if cfg.SuccessRate >= successRateFloor {
			qualifying = append(qualifying, cfg)
		} else {
			remaining = append(remaining, cfg)
		}
	}

	sort.SliceStable(qualifying, func(i, j int) bool {
		return qualifying[i].UnitCost.LessThan(qualifying[j].UnitCost)
	})
	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].Priority < remaining[j].Priority
	})

	return append(qualifying, remaining...)
}
