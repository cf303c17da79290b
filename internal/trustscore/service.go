package trustscore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SOMET1010/montoitv6-sub000/internal/events"
)

// Service recomputes and serves trust scores.
type Service struct {
	repo    Repository
	signals SignalSource
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(repo Repository, signals SignalSource, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		signals: signals,
		logger:  logger,
		now:     time.Now,
	}
}

// GetCurrentScore returns the stored score, computing a first one when the
// subject has never been scored.
func (s *Service) GetCurrentScore(ctx context.Context, subjectID uuid.UUID) (*Score, error) {
	score, err := s.repo.GetScore(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if score != nil {
		return score, nil
	}
	return s.Recompute(ctx, subjectID, "initial score")
}

// Recompute gathers fresh signals, scores them and persists the new value
// with a history entry. Safe to call repeatedly.
func (s *Service) Recompute(ctx context.Context, subjectID uuid.UUID, reason string) (*Score, error) {
	inputs, err := s.signals.Collect(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to collect trust signals: %w", err)
	}

	now := s.now()
	total, breakdown := Compute(inputs, now)

	previous, err := s.repo.GetScore(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	oldTotal := 0
	if previous != nil {
		oldTotal = previous.Total
	}

	score := &Score{
		SubjectID: subjectID,
		Total:     total,
		Tier:      TierFor(total),
		Breakdown: breakdown,
		UpdatedAt: now,
	}
	entry := &HistoryEntry{
		ID:         uuid.New(),
		SubjectID:  subjectID,
		OldTotal:   oldTotal,
		NewTotal:   total,
		Reason:     reason,
		RecordedAt: now,
	}
	if err := s.repo.SaveScore(ctx, score, entry); err != nil {
		return nil, err
	}

	s.logger.Info("Trust score recomputed",
		zap.String("subject_id", subjectID.String()),
		zap.Int("old_total", oldTotal),
		zap.Int("new_total", total),
		zap.String("tier", string(score.Tier)),
		zap.String("reason", reason))

	return score, nil
}

// GetHistory lists recent score changes, newest first.
func (s *Service) GetHistory(ctx context.Context, subjectID uuid.UUID, limit int) ([]HistoryEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListHistory(ctx, subjectID, limit)
}

// OnStageTransition recomputes the subject's score after a verification stage
// changes. Registered on the event bus at startup.
func (s *Service) OnStageTransition(ctx context.Context, evt events.StageTransition) {
	reason := fmt.Sprintf("%s stage moved from %s to %s", evt.Stage, evt.FromStatus, evt.ToStatus)
	if _, err := s.Recompute(ctx, evt.SubjectID, reason); err != nil {
		s.logger.Error("Failed to recompute trust score after stage transition",
			zap.String("subject_id", evt.SubjectID.String()),
			zap.String("stage", evt.Stage),
			zap.Error(err))
	}
}
