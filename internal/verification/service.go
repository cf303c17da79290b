package verification

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SOMET1010/montoitv6-sub000/internal/events"
	"github.com/SOMET1010/montoitv6-sub000/pkg/errs"
)

// IdentityRegistry is the national-ID registry contract (ONECI).
type IdentityRegistry interface {
	Verify(ctx context.Context, fullName, documentNumber, dateOfBirth string) (*RegistryResult, error)
}

// HealthRegistry is the health-insurance registry contract (CNAM).
type HealthRegistry interface {
	Verify(ctx context.Context, fullName, memberNumber string) (bool, error)
}

// FaceMatcher runs the asynchronous biometric check to a terminal result. The
// acceptance threshold on the match score is applied here, by the caller, not
// inside the matcher.
type FaceMatcher interface {
	Verify(ctx context.Context, documentImageURL, selfieURL string) (*FaceMatchResult, error)
}

// Service is the per-subject verification state machine. Stage writes for one
// subject are serialized through per-subject/stage locks; a second request
// while one is in flight fails with ConflictError instead of racing writes.
type Service struct {
	repo          Repository
	identity      IdentityRegistry
	health        HealthRegistry
	face          FaceMatcher
	bus           *events.Bus
	logger        *zap.Logger
	minMatchScore float64
	callTimeout   time.Duration
	locks         *stageLocks
}

// ServiceConfig holds verification policy knobs. CallTimeout bounds a single
// registry round trip; the biometric polling loop carries its own deadline.
type ServiceConfig struct {
	MinMatchScore float64
	CallTimeout   time.Duration
}

// NewService creates the verification service
func NewService(repo Repository, identity IdentityRegistry, health HealthRegistry, face FaceMatcher, bus *events.Bus, logger *zap.Logger, cfg ServiceConfig) *Service {
	if cfg.MinMatchScore == 0 {
		cfg.MinMatchScore = 0.70
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	return &Service{
		repo:          repo,
		identity:      identity,
		health:        health,
		face:          face,
		bus:           bus,
		logger:        logger,
		minMatchScore: cfg.MinMatchScore,
		callTimeout:   cfg.CallTimeout,
		locks:         newStageLocks(),
	}
}

var documentNumberPattern = regexp.MustCompile(`^[A-Z]{0,2}[0-9]{9,11}$`)
var memberNumberPattern = regexp.MustCompile(`^[0-9]{8,12}$`)

// RequestStageVerification validates the evidence, runs the stage's verifier
// and persists the outcome. A timed-out or failed external call leaves the
// stage pending; it is retryable and never a definitive negative result.
func (s *Service) RequestStageVerification(ctx context.Context, subjectID uuid.UUID, stage Stage, evidence Evidence) (*CertificationStatus, error) {
	if !ValidStage(stage) {
		return nil, errs.NewValidation("unknown verification stage", string(stage))
	}
	if err := validateEvidence(stage, evidence); err != nil {
		return nil, err
	}

	if !s.locks.tryAcquire(subjectID, stage) {
		return nil, errs.NewConflict("verification", fmt.Sprintf("%s verification already in flight for subject", stage))
	}
	defer s.locks.release(subjectID, stage)

	record, err := s.repo.GetOrCreate(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load verification record: %w", err)
	}

	prior := record.StageOf(stage)
	if prior == StatusVerified {
		return nil, errs.NewValidation("stage already verified; request a reset before re-verifying", string(stage))
	}

	update, err := s.runStageVerifier(ctx, stage, evidence)
	if err != nil {
		// Retryable failures (timeouts, exhausted providers) leave the record
		// pending and surface to the caller as "try again".
		s.logger.Warn("Stage verification call failed",
			zap.String("subject_id", subjectID.String()),
			zap.String("stage", string(stage)),
			zap.Error(err))
		return nil, err
	}

	update.fullyCertified = record.FullyCertified || (stage == StageIdentity && update.status == StatusVerified)
	if err := s.repo.ApplyStageUpdate(ctx, subjectID, stage, update.toStageUpdate(evidence)); err != nil {
		return nil, fmt.Errorf("failed to persist stage outcome: %w", err)
	}

	s.recordTransition(ctx, subjectID, stage, prior, update.status, update.reason)

	return s.GetCertificationStatus(ctx, subjectID)
}

type stageOutcome struct {
	status         StageStatus
	reference      string
	sessionID      string
	matchScore     *float64
	reason         string
	fullyCertified bool
}

func (o stageOutcome) toStageUpdate(evidence Evidence) StageUpdate {
	return StageUpdate{
		Status:          o.status,
		Reference:       o.reference,
		SessionID:       o.sessionID,
		MatchScore:      o.matchScore,
		RejectionReason: o.reason,
		FullyCertified:  o.fullyCertified,
		Evidence:        evidence,
	}
}

func (s *Service) runStageVerifier(ctx context.Context, stage Stage, evidence Evidence) (stageOutcome, error) {
	switch stage {
	case StageIdentity:
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
		result, err := s.identity.Verify(callCtx, evidence.FullName, evidence.DocumentNumber, evidence.DateOfBirth)
		if err != nil {
			return stageOutcome{}, err
		}
		if !result.Verified {
			return stageOutcome{status: StatusRejected, reason: "identity did not match national registry records"}, nil
		}
		return stageOutcome{status: StatusVerified, reference: result.ReferenceNumber}, nil

	case StageHealth:
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
		verified, err := s.health.Verify(callCtx, evidence.FullName, evidence.MemberNumber)
		if err != nil {
			return stageOutcome{}, err
		}
		if !verified {
			return stageOutcome{status: StatusRejected, reason: "member number not found in health-insurance registry"}, nil
		}
		return stageOutcome{status: StatusVerified, reference: evidence.MemberNumber}, nil

	case StageBiometric:
		result, err := s.face.Verify(ctx, evidence.DocumentFrontURL, evidence.SelfieURL)
		if err != nil {
			return stageOutcome{}, err
		}
		score := result.MatchScore
		outcome := stageOutcome{sessionID: result.SessionID, matchScore: &score}
		if !result.Verified {
			outcome.status = StatusRejected
			outcome.reason = result.Reason
			if outcome.reason == "" {
				outcome.reason = "liveness check failed"
			}
			return outcome, nil
		}
		if score < s.minMatchScore {
			outcome.status = StatusRejected
			outcome.reason = fmt.Sprintf("face match score %.2f below acceptance threshold", score)
			return outcome, nil
		}
		outcome.status = StatusVerified
		return outcome, nil
	}

	return stageOutcome{}, errs.NewValidation("unknown verification stage", string(stage))
}

// GetCertificationStatus is a pure read of the tri-state snapshot plus the
// derived fully-certified flag.
func (s *Service) GetCertificationStatus(ctx context.Context, subjectID uuid.UUID) (*CertificationStatus, error) {
	record, err := s.repo.GetOrCreate(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load verification record: %w", err)
	}
	return &CertificationStatus{
		SubjectID:       record.SubjectID,
		IdentityStatus:  record.IdentityStatus,
		HealthStatus:    record.HealthStatus,
		BiometricStatus: record.BiometricStatus,
		FullyCertified:  record.IdentityStatus == StatusVerified,
		RejectionReason: record.RejectionReason,
	}, nil
}

// ResetStage clears a verified or rejected stage back to pending. This is the
// only path that regresses a verified stage; every reset is audited.
func (s *Service) ResetStage(ctx context.Context, subjectID uuid.UUID, stage Stage, requestedBy uuid.UUID) error {
	if !ValidStage(stage) {
		return errs.NewValidation("unknown verification stage", string(stage))
	}

	if !s.locks.tryAcquire(subjectID, stage) {
		return errs.NewConflict("verification", fmt.Sprintf("%s verification in flight for subject", stage))
	}
	defer s.locks.release(subjectID, stage)

	record, err := s.repo.GetOrCreate(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("failed to load verification record: %w", err)
	}

	prior := record.StageOf(stage)
	if prior == StatusPending {
		return nil
	}

	if err := s.repo.ResetStage(ctx, subjectID, stage); err != nil {
		return fmt.Errorf("failed to reset stage: %w", err)
	}

	s.recordTransition(ctx, subjectID, stage, prior, StatusPending,
		fmt.Sprintf("re-verification requested by %s", requestedBy))
	return nil
}

func (s *Service) recordTransition(ctx context.Context, subjectID uuid.UUID, stage Stage, from, to StageStatus, reason string) {
	event := &StageEvent{
		ID:         uuid.New(),
		SubjectID:  subjectID,
		Stage:      stage,
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
		OccurredAt: time.Now(),
	}
	if err := s.repo.AppendEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to append verification event", zap.Error(err))
	}

	s.bus.Publish(ctx, events.StageTransition{
		SubjectID:  subjectID,
		Stage:      string(stage),
		FromStatus: string(from),
		ToStatus:   string(to),
		OccurredAt: event.OccurredAt,
	})
}

func validateEvidence(stage Stage, evidence Evidence) error {
	var missing []string

	switch stage {
	case StageIdentity:
		if evidence.FullName == "" {
			missing = append(missing, "full_name")
		}
		if evidence.DocumentNumber == "" {
			missing = append(missing, "document_number")
		}
		if evidence.DateOfBirth == "" {
			missing = append(missing, "date_of_birth")
		}
		if evidence.DocumentFrontURL == "" {
			missing = append(missing, "document_front_url")
		}
		if len(missing) > 0 {
			return errs.NewValidation("incomplete identity evidence", missing...)
		}
		if !documentNumberPattern.MatchString(evidence.DocumentNumber) {
			return errs.NewValidation("document number format is invalid", "document_number")
		}
		if _, err := time.Parse("2006-01-02", evidence.DateOfBirth); err != nil {
			return errs.NewValidation("date of birth must be YYYY-MM-DD", "date_of_birth")
		}

	case StageHealth:
		if evidence.FullName == "" {
			missing = append(missing, "full_name")
		}
		if evidence.MemberNumber == "" {
			missing = append(missing, "member_number")
		}
		if len(missing) > 0 {
			return errs.NewValidation("incomplete health-registry evidence", missing...)
		}
		if !memberNumberPattern.MatchString(evidence.MemberNumber) {
			return errs.NewValidation("member number format is invalid", "member_number")
		}

	case StageBiometric:
		if evidence.DocumentFrontURL == "" {
			missing = append(missing, "document_front_url")
		}
		if evidence.SelfieURL == "" {
			missing = append(missing, "selfie_url")
		}
		if len(missing) > 0 {
			return errs.NewValidation("incomplete biometric evidence", missing...)
		}
	}

	return nil
}
