package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/SOMET1010/montoitv6-sub000/internal/leases"
	"github.com/SOMET1010/montoitv6-sub000/pkg/errs"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, payment *RentPayment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*RentPayment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RentPayment), args.Error(1)
}

func (m *MockRepository) ListByLease(ctx context.Context, leaseID uuid.UUID) ([]RentPayment, error) {
	args := m.Called(ctx, leaseID)
	return args.Get(0).([]RentPayment), args.Error(1)
}

func (m *MockRepository) ListByPayer(ctx context.Context, payerID uuid.UUID, limit int) ([]RentPayment, error) {
	args := m.Called(ctx, payerID, limit)
	return args.Get(0).([]RentPayment), args.Error(1)
}

func (m *MockRepository) MarkPaid(ctx context.Context, id uuid.UUID, method Method, reference string, paidAt time.Time) error {
	args := m.Called(ctx, id, method, reference, paidAt)
	return args.Error(0)
}

func (m *MockRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	args := m.Called(ctx, asOf)
	return args.Get(0).(int64), args.Error(1)
}

type MockLeaseRepository struct {
	mock.Mock
}

func (m *MockLeaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*leases.Lease, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*leases.Lease), args.Error(1)
}

func (m *MockLeaseRepository) MarkSigned(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func signedLease() *leases.Lease {
	return &leases.Lease{
		ID:         uuid.New(),
		LandlordID: uuid.New(),
		TenantID:   uuid.New(),
		Status:     leases.StatusSigned,
	}
}

func TestScheduleInstallment_PayerIsTenant(t *testing.T) {
	repo := new(MockRepository)
	leaseRepo := new(MockLeaseRepository)
	service := NewService(repo, leaseRepo, zap.NewNop())

	lease := signedLease()
	leaseRepo.On("GetByID", mock.Anything, lease.ID).Return(lease, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(p *RentPayment) bool {
		return p.PayerID == lease.TenantID && p.Status == StatusDue
	})).Return(nil)

	payment, err := service.ScheduleInstallment(context.Background(), lease.ID,
		decimal.NewFromInt(250000), time.Now().Add(30*24*time.Hour))

	assert.NoError(t, err)
	assert.Equal(t, lease.TenantID, payment.PayerID)
	repo.AssertExpectations(t)
}

func TestScheduleInstallment_RejectsUnsignedLease(t *testing.T) {
	repo := new(MockRepository)
	leaseRepo := new(MockLeaseRepository)
	service := NewService(repo, leaseRepo, zap.NewNop())

	lease := signedLease()
	lease.Status = leases.StatusDraft
	leaseRepo.On("GetByID", mock.Anything, lease.ID).Return(lease, nil)

	_, err := service.ScheduleInstallment(context.Background(), lease.ID,
		decimal.NewFromInt(250000), time.Now())

	var validation *errs.ValidationError
	assert.ErrorAs(t, err, &validation)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestScheduleInstallment_RejectsNonPositiveAmount(t *testing.T) {
	repo := new(MockRepository)
	leaseRepo := new(MockLeaseRepository)
	service := NewService(repo, leaseRepo, zap.NewNop())

	lease := signedLease()
	leaseRepo.On("GetByID", mock.Anything, lease.ID).Return(lease, nil)

	_, err := service.ScheduleInstallment(context.Background(), lease.ID, decimal.Zero, time.Now())

	var validation *errs.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestRecordPayment_TriggersScoreRecompute(t *testing.T) {
	repo := new(MockRepository)
	leaseRepo := new(MockLeaseRepository)
	service := NewService(repo, leaseRepo, zap.NewNop())

	paymentID := uuid.New()
	payerID := uuid.New()
	payment := &RentPayment{
		ID:      paymentID,
		PayerID: payerID,
		Status:  StatusPaid,
		DueAt:   time.Now().Add(24 * time.Hour),
	}
	repo.On("MarkPaid", mock.Anything, paymentID, MethodMobileMoney, "OM-123", mock.Anything).Return(nil)
	repo.On("GetByID", mock.Anything, paymentID).Return(payment, nil)

	var recomputedFor uuid.UUID
	var reason string
	service.SetScoreRecomputeHook(func(_ context.Context, id uuid.UUID, r string) {
		recomputedFor = id
		reason = r
	})

	_, err := service.RecordPayment(context.Background(), paymentID, MethodMobileMoney, "OM-123")

	assert.NoError(t, err)
	assert.Equal(t, payerID, recomputedFor)
	assert.Contains(t, reason, "on time")
}

func TestRecordPayment_RejectsUnknownMethod(t *testing.T) {
	repo := new(MockRepository)
	leaseRepo := new(MockLeaseRepository)
	service := NewService(repo, leaseRepo, zap.NewNop())

	_, err := service.RecordPayment(context.Background(), uuid.New(), Method("barter"), "")

	var validation *errs.ValidationError
	assert.ErrorAs(t, err, &validation)
	repo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordPayment_AlreadySettled(t *testing.T) {
	repo := new(MockRepository)
	leaseRepo := new(MockLeaseRepository)
	service := NewService(repo, leaseRepo, zap.NewNop())

	paymentID := uuid.New()
	repo.On("MarkPaid", mock.Anything, paymentID, MethodCash, "", mock.Anything).Return(ErrNotFound)

	_, err := service.RecordPayment(context.Background(), paymentID, MethodCash, "")

	assert.ErrorIs(t, err, ErrNotFound)
}
