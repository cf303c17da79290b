package cev

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/SOMET1010/montoitv6-sub000/internal/leases"
	"github.com/SOMET1010/montoitv6-sub000/internal/trustscore"
	"github.com/SOMET1010/montoitv6-sub000/internal/verification"
	"github.com/SOMET1010/montoitv6-sub000/pkg/errs"
	"github.com/SOMET1010/montoitv6-sub000/pkg/workflows"
)

// CertificationStatusProvider reports a party's verification standing.
type CertificationStatusProvider interface {
	GetCertificationStatus(ctx context.Context, subjectID uuid.UUID) (*verification.CertificationStatus, error)
}

// ScoreProvider reports a party's current trust score.
type ScoreProvider interface {
	GetCurrentScore(ctx context.Context, subjectID uuid.UUID) (*trustscore.Score, error)
}

// AuthorityClient submits document bundles to the certification authority.
type AuthorityClient interface {
	Submit(ctx context.Context, req *Request) (referenceNumber string, err error)
}

// Notifier informs a party of a request milestone. Delivery failures are the
// notifier's problem, never the workflow's.
type Notifier interface {
	Notify(ctx context.Context, recipient uuid.UUID, template string, params map[string]string)
}

// CertificateArchiver stores the printable certificate sheet after issuance.
// Best effort only; issuance never fails on archiving.
type CertificateArchiver interface {
	Archive(ctx context.Context, req *Request)
}

// Config carries the workflow policy knobs. DocumentsWindow and
// CertificateTTL are fallbacks applied when the authority's decision omits
// the deadline or expiry.
type Config struct {
	ScoreFloor      int
	Fee             decimal.Decimal
	DocumentsWindow time.Duration
	CertificateTTL  time.Duration
}

// Service runs the lease certification workflow.
type Service struct {
	repo      Repository
	leaseRepo leases.Repository
	statuses  CertificationStatusProvider
	scores    ScoreProvider
	authority AuthorityClient
	notifier  Notifier
	archiver  CertificateArchiver
	machine   *workflows.StateMachine
	config    Config
	logger    *zap.Logger
}

// SetCertificateArchiver wires the post-issuance archiving hook.
func (s *Service) SetCertificateArchiver(archiver CertificateArchiver) {
	s.archiver = archiver
}

func NewService(
	repo Repository,
	leaseRepo leases.Repository,
	statuses CertificationStatusProvider,
	scores ScoreProvider,
	authority AuthorityClient,
	notifier Notifier,
	config Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		leaseRepo: leaseRepo,
		statuses:  statuses,
		scores:    scores,
		authority: authority,
		notifier:  notifier,
		machine:   NewStateMachine(),
		config:    config,
		logger:    logger,
	}
}

// CheckPrerequisites reports whether a certification request may be created
// for the lease. Fails closed: any check that cannot be evaluated blocks.
func (s *Service) CheckPrerequisites(ctx context.Context, leaseID uuid.UUID) (*PrerequisiteReport, error) {
	lease, err := s.leaseRepo.GetByID(ctx, leaseID)
	if err != nil {
		return nil, err
	}

	missing := []string{}
	if !lease.Signed() {
		missing = append(missing, "lease not signed")
	}

	parties := []struct {
		id   uuid.UUID
		name string
	}{
		{lease.LandlordID, "landlord"},
		{lease.TenantID, "tenant"},
	}
	for _, party := range parties {
		status, err := s.statuses.GetCertificationStatus(ctx, party.id)
		if err != nil {
			return nil, fmt.Errorf("failed to check %s certification: %w", party.name, err)
		}
		if !status.FullyCertified {
			missing = append(missing, party.name+" not certified")
		}

		score, err := s.scores.GetCurrentScore(ctx, party.id)
		if err != nil {
			return nil, fmt.Errorf("failed to check %s trust score: %w", party.name, err)
		}
		if score.Total < s.config.ScoreFloor {
			missing = append(missing, fmt.Sprintf("%s trust score below %d", party.name, s.config.ScoreFloor))
		}
	}

	return &PrerequisiteReport{Valid: len(missing) == 0, Missing: missing}, nil
}

// CreateRequest opens a certification request for the lease. Prerequisites
// must pass and a lease can only carry one request in flight.
func (s *Service) CreateRequest(ctx context.Context, leaseID uuid.UUID) (*Request, error) {
	report, err := s.CheckPrerequisites(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if !report.Valid {
		return nil, &errs.ValidationError{
			Message: "certification prerequisites not met",
			Fields:  report.Missing,
		}
	}

	existing, err := s.repo.GetActiveByLease(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errs.NewConflict("certification request", "lease already has a request in progress")
	}

	lease, err := s.leaseRepo.GetByID(ctx, leaseID)
	if err != nil {
		return nil, err
	}

	req := &Request{
		ID:         uuid.New(),
		LeaseID:    leaseID,
		LandlordID: lease.LandlordID,
		TenantID:   lease.TenantID,
		Status:     StatusPendingDocuments,
		Documents:  map[DocumentSlot]string{},
		Fee:        s.config.Fee,
		Version:    1,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("Certification request created",
		zap.String("request_id", req.ID.String()),
		zap.String("lease_id", leaseID.String()))
	return req, nil
}

// AttachDocument writes one slot. Attaching never changes the request status.
func (s *Service) AttachDocument(ctx context.Context, requestID uuid.UUID, slot DocumentSlot, url string) error {
	if !ValidSlot(slot) {
		return &errs.ValidationError{Message: "unknown document slot", Fields: []string{string(slot)}}
	}
	if url == "" {
		return &errs.ValidationError{Message: "document url is required", Fields: []string{"url"}}
	}

	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Status != StatusPendingDocuments && req.Status != StatusDocumentsRequested {
		return errs.NewConflict("certification request",
			fmt.Sprintf("documents cannot be attached while status is %s", req.Status))
	}

	return s.repo.SetDocument(ctx, requestID, slot, url)
}

// Submit sends the bundle to the certification authority. From
// pending_documents it opens the authority case; from documents_requested it
// resubmits and the request returns to under_review. A failed authority call
// leaves the status untouched.
func (s *Service) Submit(ctx context.Context, requestID uuid.UUID) (*Request, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case StatusPendingDocuments, StatusDocumentsRequested:
	default:
		return nil, errs.NewConflict("certification request",
			fmt.Sprintf("request cannot be submitted while status is %s", req.Status))
	}

	if missing := req.MissingRequiredSlots(); len(missing) > 0 {
		return nil, &errs.IncompleteDocumentsError{Missing: missing}
	}

	reference, err := s.authority.Submit(ctx, req)
	if err != nil {
		s.logger.Error("Authority submission failed",
			zap.String("request_id", req.ID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to submit to certification authority: %w", err)
	}

	from := req.Status
	if from == StatusPendingDocuments {
		req.Status = StatusSubmitted
	} else {
		req.Status = StatusUnderReview
		req.RequestedDocuments = nil
		req.DocumentsDeadline = nil
	}
	req.AuthorityReference = &reference
	if err := s.repo.Transition(ctx, req, from); err != nil {
		return nil, err
	}

	s.logger.Info("Certification request submitted",
		zap.String("request_id", req.ID.String()),
		zap.String("authority_reference", reference))
	s.notifyParties(ctx, req, "cev_submitted", map[string]string{
		"reference": reference,
	})
	return req, nil
}

// ApplyAuthorityDecision moves the request per the authority's callback. It
// is the only path that can reach issued.
func (s *Service) ApplyAuthorityDecision(ctx context.Context, requestID uuid.UUID, decision *Decision) (*Request, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	target, err := s.decisionTarget(req, decision)
	if err != nil {
		return nil, err
	}

	from := req.Status
	req.Status = target
	switch decision.Outcome {
	case OutcomeDocumentsRequested:
		req.RequestedDocuments = decision.RequestedDocuments
		req.DocumentsDeadline = decision.DocumentsDeadline
		if req.DocumentsDeadline == nil && s.config.DocumentsWindow > 0 {
			deadline := time.Now().Add(s.config.DocumentsWindow)
			req.DocumentsDeadline = &deadline
		}
	case OutcomeIssued:
		req.CertificateNumber = &decision.CertificateNumber
		req.IssuedAt = decision.IssuedAt
		if req.IssuedAt == nil {
			now := time.Now()
			req.IssuedAt = &now
		}
		req.ExpiresAt = decision.ExpiresAt
		if req.ExpiresAt == nil && s.config.CertificateTTL > 0 {
			expires := req.IssuedAt.Add(s.config.CertificateTTL)
			req.ExpiresAt = &expires
		}
		if decision.VerificationURL != "" {
			req.VerificationURL = &decision.VerificationURL
		}
		if decision.QRPayload != "" {
			req.QRPayload = &decision.QRPayload
		}
	case OutcomeRejected:
		req.RejectionReason = &decision.Reason
		req.RejectionDetail = decision.Detail
	}

	if err := s.repo.Transition(ctx, req, from); err != nil {
		return nil, err
	}

	s.logger.Info("Authority decision applied",
		zap.String("request_id", req.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(target)))

	switch decision.Outcome {
	case OutcomeDocumentsRequested:
		s.notifyParties(ctx, req, "cev_documents_requested", map[string]string{
			"documents": fmt.Sprintf("%v", decision.RequestedDocuments),
		})
	case OutcomeIssued:
		if s.archiver != nil {
			s.archiver.Archive(ctx, req)
		}
		s.notifyParties(ctx, req, "cev_issued", map[string]string{
			"certificate_number": decision.CertificateNumber,
		})
	case OutcomeRejected:
		s.notifyParties(ctx, req, "cev_rejected", map[string]string{
			"reason": decision.Reason,
		})
	}

	if decision.Outcome == OutcomeRejected {
		return req, &errs.AuthorityRejectionError{Reason: decision.Reason}
	}
	return req, nil
}

// GetRequest returns the request by id.
func (s *Service) GetRequest(ctx context.Context, requestID uuid.UUID) (*Request, error) {
	return s.repo.GetByID(ctx, requestID)
}

// GetRequestForLease returns the lease's in-flight request, or nil.
func (s *Service) GetRequestForLease(ctx context.Context, leaseID uuid.UUID) (*Request, error) {
	return s.repo.GetActiveByLease(ctx, leaseID)
}

func (s *Service) decisionTarget(req *Request, decision *Decision) (Status, error) {
	var target Status
	switch decision.Outcome {
	case OutcomeUnderReview:
		target = StatusUnderReview
	case OutcomeDocumentsRequested:
		target = StatusDocumentsRequested
	case OutcomeApproved:
		target = StatusApproved
	case OutcomeIssued:
		target = StatusIssued
	case OutcomeRejected:
		target = StatusRejected
	default:
		return "", &errs.ValidationError{
			Message: "unknown decision outcome",
			Fields:  []string{string(decision.Outcome)},
		}
	}

	if !s.machine.CanTransition(string(req.Status), string(target)) {
		return "", errs.NewConflict("certification request",
			fmt.Sprintf("decision %s is not applicable while status is %s", decision.Outcome, req.Status))
	}
	if decision.Outcome == OutcomeIssued && decision.CertificateNumber == "" {
		return "", &errs.ValidationError{
			Message: "issuance requires a certificate number",
			Fields:  []string{"certificate_number"},
		}
	}
	return target, nil
}

func (s *Service) notifyParties(ctx context.Context, req *Request, template string, params map[string]string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, req.LandlordID, template, params)
	s.notifier.Notify(ctx, req.TenantID, template, params)
}
