package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/SOMET1010/montoitv6-sub000/internal/leases"
	"github.com/SOMET1010/montoitv6-sub000/pkg/errs"
)

// Service manages rent installments on signed leases.
type Service struct {
	repo      Repository
	leaseRepo leases.Repository
	logger    *zap.Logger
	recompute func(ctx context.Context, payerID uuid.UUID, reason string)
}

func NewService(repo Repository, leaseRepo leases.Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		leaseRepo: leaseRepo,
		logger:    logger,
	}
}

// SetScoreRecomputeHook registers the callback invoked after a payment is
// recorded, so payment timeliness flows back into the payer's trust score.
func (s *Service) SetScoreRecomputeHook(hook func(ctx context.Context, payerID uuid.UUID, reason string)) {
	s.recompute = hook
}

// ScheduleInstallment creates a due installment on a signed lease. The tenant
// is always the payer.
func (s *Service) ScheduleInstallment(ctx context.Context, leaseID uuid.UUID, amount decimal.Decimal, dueAt time.Time) (*RentPayment, error) {
	lease, err := s.leaseRepo.GetByID(ctx, leaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lease: %w", err)
	}
	if !lease.Signed() {
		return nil, errs.NewValidation("installments can only be scheduled on a signed lease")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, errs.NewValidation("installment amount must be positive", "amount")
	}

	now := time.Now()
	payment := &RentPayment{
		ID:        uuid.New(),
		LeaseID:   lease.ID,
		PayerID:   lease.TenantID,
		Amount:    amount,
		Status:    StatusDue,
		DueAt:     dueAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, err
	}

	s.logger.Info("Rent installment scheduled",
		zap.String("payment_id", payment.ID.String()),
		zap.String("lease_id", lease.ID.String()),
		zap.Time("due_at", dueAt))
	return payment, nil
}

// RecordPayment marks an installment paid and refreshes the payer's trust
// score. The score refresh is best effort and never fails the payment.
func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID, method Method, reference string) (*RentPayment, error) {
	switch method {
	case MethodMobileMoney, MethodBankTransfer, MethodCash:
	default:
		return nil, errs.NewValidation("unknown payment method", "method")
	}

	paidAt := time.Now()
	if err := s.repo.MarkPaid(ctx, id, method, reference, paidAt); err != nil {
		return nil, err
	}
	payment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Rent payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("payer_id", payment.PayerID.String()),
		zap.String("method", string(method)))

	if s.recompute != nil {
		onTime := "late"
		if !paidAt.After(payment.DueAt) {
			onTime = "on time"
		}
		s.recompute(ctx, payment.PayerID, fmt.Sprintf("rent payment recorded %s", onTime))
	}
	return payment, nil
}

func (s *Service) GetPayment(ctx context.Context, id uuid.UUID) (*RentPayment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListLeasePayments(ctx context.Context, leaseID uuid.UUID) ([]RentPayment, error) {
	return s.repo.ListByLease(ctx, leaseID)
}

func (s *Service) ListPayerPayments(ctx context.Context, payerID uuid.UUID, limit int) ([]RentPayment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListByPayer(ctx, payerID, limit)
}

// SweepOverdue marks unpaid installments past their due date as late.
// Called by the scheduled worker.
func (s *Service) SweepOverdue(ctx context.Context) (int64, error) {
	count, err := s.repo.MarkOverdue(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("Overdue rent installments marked late", zap.Int64("count", count))
	}
	return count, nil
}
