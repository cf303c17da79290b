package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/SOMET1010/montoitv6-sub000/pkg/errs"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListByCapability(ctx context.Context, capability Capability) ([]*ProviderConfig, error) {
	args := m.Called(ctx, capability)
	return args.Get(0).([]*ProviderConfig), args.Error(1)
}

func (m *MockRepository) ListAll(ctx context.Context) ([]*ProviderConfig, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*ProviderConfig), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*ProviderConfig, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ProviderConfig), args.Error(1)
}

func (m *MockRepository) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	args := m.Called(ctx, id, enabled)
	return args.Error(0)
}

func (m *MockRepository) SetPriority(ctx context.Context, id uuid.UUID, priority int) error {
	args := m.Called(ctx, id, priority)
	return args.Error(0)
}

func (m *MockRepository) SetHealth(ctx context.Context, id uuid.UUID, health HealthStatus) error {
	args := m.Called(ctx, id, health)
	return args.Error(0)
}

func (m *MockRepository) RecordAttempt(ctx context.Context, attempt *DispatchAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockRepository) ListAttempts(ctx context.Context, since time.Time, limit int) ([]*DispatchAttempt, error) {
	args := m.Called(ctx, since, limit)
	return args.Get(0).([]*DispatchAttempt), args.Error(1)
}

func (m *MockRepository) UpdateRollingMetrics(ctx context.Context, id uuid.UUID, succeeded bool, latencyMs float64) error {
	args := m.Called(ctx, id, succeeded, latencyMs)
	return args.Error(0)
}

// stubInvoker fails or succeeds deterministically and counts calls
type stubInvoker struct {
	name  string
	err   error
	calls int
}

func (s *stubInvoker) Name() string { return s.name }

func (s *stubInvoker) Invoke(ctx context.Context, req Request) (*Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &Response{Data: map[string]string{"ok": "true"}}, nil
}

func (s *stubInvoker) HealthCheck(ctx context.Context) error { return s.err }

func smsConfig(name string, priority int, health HealthStatus, enabled bool) *ProviderConfig {
	return &ProviderConfig{
		ID:          uuid.New(),
		Capability:  CapabilitySMS,
		Name:        name,
		Priority:    priority,
		Enabled:     enabled,
		Health:      health,
		SuccessRate: 0.99,
		UnitCost:    decimal.NewFromFloat(0.01),
		UpdatedAt:   time.Now(),
	}
}

func newTestRouter(repo Repository) *Router {
	return NewRouter(repo, zap.NewNop(), RouterConfig{AttemptTimeout: time.Second})
}

func TestDispatch_FailsOverToThirdProvider(t *testing.T) {
	repo := new(MockRepository)
	configs := []*ProviderConfig{
		smsConfig("orange_sms", 1, HealthHealthy, true),
		smsConfig("mtn_sms", 2, HealthHealthy, true),
		smsConfig("aws_sns", 3, HealthHealthy, true),
	}
	repo.On("ListByCapability", mock.Anything, CapabilitySMS).Return(configs, nil)
	repo.On("RecordAttempt", mock.Anything, mock.Anything).Return(nil)
	repo.On("UpdateRollingMetrics", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	router := newTestRouter(repo)
	first := &stubInvoker{name: "orange_sms", err: errors.New("gateway down")}
	second := &stubInvoker{name: "mtn_sms", err: errors.New("gateway down")}
	third := &stubInvoker{name: "aws_sns"}
	router.RegisterInvoker(first)
	router.RegisterInvoker(second)
	router.RegisterInvoker(third)

	resp, err := router.Dispatch(context.Background(), CapabilitySMS, Request{Operation: "send"})

	assert.NoError(t, err)
	assert.Equal(t, "aws_sns", resp.Provider)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 1, third.calls)

	// Exactly two failed attempts and one success recorded.
	failed, succeeded := 0, 0
	for _, call := range repo.Calls {
		if call.Method != "RecordAttempt" {
			continue
		}
		attempt := call.Arguments.Get(1).(*DispatchAttempt)
		if attempt.Succeeded {
			succeeded++
		} else {
			failed++
		}
	}
	assert.Equal(t, 2, failed)
	assert.Equal(t, 1, succeeded)
}

func TestDispatch_SkipsUnhealthyAndDisabledProviders(t *testing.T) {
	repo := new(MockRepository)
	configs := []*ProviderConfig{
		smsConfig("orange_sms", 1, HealthUnhealthy, true),
		smsConfig("mtn_sms", 2, HealthHealthy, false),
		smsConfig("aws_sns", 3, HealthDegraded, true),
	}
	repo.On("ListByCapability", mock.Anything, CapabilitySMS).Return(configs, nil)
	repo.On("RecordAttempt", mock.Anything, mock.Anything).Return(nil)
	repo.On("UpdateRollingMetrics", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	router := newTestRouter(repo)
	skipped := &stubInvoker{name: "orange_sms"}
	disabled := &stubInvoker{name: "mtn_sms"}
	degraded := &stubInvoker{name: "aws_sns"}
	router.RegisterInvoker(skipped)
	router.RegisterInvoker(disabled)
	router.RegisterInvoker(degraded)

	resp, err := router.Dispatch(context.Background(), CapabilitySMS, Request{Operation: "send"})

	assert.NoError(t, err)
	assert.Equal(t, "aws_sns", resp.Provider)
	assert.Zero(t, skipped.calls)
	assert.Zero(t, disabled.calls)
}

func TestDispatch_AllProvidersExhausted(t *testing.T) {
	repo := new(MockRepository)
	configs := []*ProviderConfig{
		smsConfig("orange_sms", 1, HealthHealthy, true),
		smsConfig("mtn_sms", 2, HealthHealthy, true),
	}
	repo.On("ListByCapability", mock.Anything, CapabilitySMS).Return(configs, nil)
	repo.On("RecordAttempt", mock.Anything, mock.Anything).Return(nil)
	repo.On("UpdateRollingMetrics", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	router := newTestRouter(repo)
	first := &stubInvoker{name: "orange_sms", err: errors.New("down")}
	second := &stubInvoker{name: "mtn_sms", err: errors.New("down")}
	router.RegisterInvoker(first)
	router.RegisterInvoker(second)

	_, err := router.Dispatch(context.Background(), CapabilitySMS, Request{Operation: "send"})

	var exhausted *errs.AllProvidersExhaustedError
	assert.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, exhausted.Attempts)
	assert.True(t, errs.IsRetryable(err))
	// Each provider tried at most once within a single dispatch.
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestDispatch_NoEligibleProviders(t *testing.T) {
	repo := new(MockRepository)
	configs := []*ProviderConfig{
		smsConfig("orange_sms", 1, HealthUnhealthy, true),
	}
	repo.On("ListByCapability", mock.Anything, CapabilitySMS).Return(configs, nil)

	router := newTestRouter(repo)
	_, err := router.Dispatch(context.Background(), CapabilitySMS, Request{Operation: "send"})

	var exhausted *errs.AllProvidersExhaustedError
	assert.ErrorAs(t, err, &exhausted)
	assert.Zero(t, exhausted.Attempts)
}

func TestCostOptimizedOrder(t *testing.T) {
	cheapReliable := smsConfig("cheap_reliable", 3, HealthHealthy, true)
	cheapReliable.UnitCost = decimal.NewFromFloat(0.005)
	cheapReliable.SuccessRate = 0.97

	pricyReliable := smsConfig("pricy_reliable", 1, HealthHealthy, true)
	pricyReliable.UnitCost = decimal.NewFromFloat(0.05)
	pricyReliable.SuccessRate = 0.99

	cheapFlaky := smsConfig("cheap_flaky", 2, HealthDegraded, true)
	cheapFlaky.UnitCost = decimal.NewFromFloat(0.001)
	cheapFlaky.SuccessRate = 0.60

	ordered := CostOptimizedOrder([]*ProviderConfig{pricyReliable, cheapFlaky, cheapReliable}, 0.90)

	// Cheapest provider above the floor leads; below-floor providers trail in
	// their prior priority order regardless of cost.
	assert.Equal(t, "cheap_reliable", ordered[0].Name)
	assert.Equal(t, "pricy_reliable", ordered[1].Name)
	assert.Equal(t, "cheap_flaky", ordered[2].Name)
}

func TestHealthClassification(t *testing.T) {
	config := DefaultHealthMonitorConfig()
	assert.Equal(t, HealthHealthy, classifyByRate(0.99, config))
	assert.Equal(t, HealthDegraded, classifyByRate(0.80, config))
	assert.Equal(t, HealthUnhealthy, classifyByRate(0.20, config))
}
