package cev

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
	"github.com/SOMET1010/montoitv6-sub000/internal/trustscore"
	"github.com/SOMET1010/montoitv6-sub000/internal/verification"
	"github.com/SOMET1010/montoitv6-sub000/pkg/errs"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, req *Request) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Request), args.Error(1)
}

func (m *MockRepository) GetActiveByLease(ctx context.Context, leaseID uuid.UUID) (*Request, error) {
	args := m.Called(ctx, leaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Request), args.Error(1)
}

func (m *MockRepository) SetDocument(ctx context.Context, id uuid.UUID, slot DocumentSlot, url string) error {
	args := m.Called(ctx, id, slot, url)
	return args.Error(0)
}

func (m *MockRepository) Transition(ctx context.Context, req *Request, from Status) error {
	args := m.Called(ctx, req, from)
	return args.Error(0)
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

type MockStatusProvider struct {
	mock.Mock
}

func (m *MockStatusProvider) GetCertificationStatus(ctx context.Context, subjectID uuid.UUID) (*verification.CertificationStatus, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verification.CertificationStatus), args.Error(1)
}

type MockScoreProvider struct {
	mock.Mock
}

func (m *MockScoreProvider) GetCurrentScore(ctx context.Context, subjectID uuid.UUID) (*trustscore.Score, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trustscore.Score), args.Error(1)
}

type MockAuthorityClient struct {
	mock.Mock
}

func (m *MockAuthorityClient) Submit(ctx context.Context, req *Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type testHarness struct {
	repo      *MockRepository
	leaseRepo *MockLeaseRepository
	statuses  *MockStatusProvider
	scores    *MockScoreProvider
	authority *MockAuthorityClient
	service   *Service
}

func newHarness() *testHarness {
	h := &testHarness{
		repo:      new(MockRepository),
		leaseRepo: new(MockLeaseRepository),
		statuses:  new(MockStatusProvider),
		scores:    new(MockScoreProvider),
		authority: new(MockAuthorityClient),
	}
	h.service = NewService(
		h.repo, h.leaseRepo, h.statuses, h.scores, h.authority, nil,
		Config{ScoreFloor: 50, Fee: decimal.NewFromInt(15000)},
		zap.NewNop(),
	)
	return h
}

func signedLease(landlordID, tenantID uuid.UUID) *leases.Lease {
	return &leases.Lease{
		ID:         uuid.New(),
		LandlordID: landlordID,
		TenantID:   tenantID,
		Status:     leases.StatusSigned,
	}
}

func certified() *verification.CertificationStatus {
	return &verification.CertificationStatus{FullyCertified: true}
}

func scoreOf(total int) *trustscore.Score {
	return &trustscore.Score{Total: total, Tier: trustscore.TierFor(total)}
}

func requestWithDocuments(slots ...DocumentSlot) *Request {
	req := &Request{
		ID:         uuid.New(),
		LeaseID:    uuid.New(),
		LandlordID: uuid.New(),
		TenantID:   uuid.New(),
		Status:     StatusPendingDocuments,
		Documents:  map[DocumentSlot]string{},
		Version:    1,
	}
	for _, slot := range slots {
		req.Documents[slot] = "https://cdn.montoit.ci/docs/" + string(slot) + ".pdf"
	}
	return req
}

func TestCheckPrerequisites_UnsignedLease(t *testing.T) {
	h := newHarness()
	landlordID, tenantID := uuid.New(), uuid.New()
	lease := signedLease(landlordID, tenantID)
	lease.Status = leases.StatusPendingSignature

	h.leaseRepo.On("GetByID", mock.Anything, lease.ID).Return(lease, nil)
	h.statuses.On("GetCertificationStatus", mock.Anything, mock.Anything).Return(certified(), nil)
	h.scores.On("GetCurrentScore", mock.Anything, mock.Anything).Return(scoreOf(80), nil)

	report, err := h.service.CheckPrerequisites(context.Background(), lease.ID)
	assert.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Contains(t, report.Missing, "lease not signed")
}

func TestCheckPrerequisites_AllSatisfied(t *testing.T) {
	h := newHarness()
	lease := signedLease(uuid.New(), uuid.New())

	h.leaseRepo.On("GetByID", mock.Anything, lease.ID).Return(lease, nil)
	h.statuses.On("GetCertificationStatus", mock.Anything, mock.Anything).Return(certified(), nil)
	h.scores.On("GetCurrentScore", mock.Anything, mock.Anything).Return(scoreOf(65), nil)

	report, err := h.service.CheckPrerequisites(context.Background(), lease.ID)
	assert.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Missing)
}

func TestCheckPrerequisites_UncertifiedPartyAndLowScore(t *testing.T) {
	h := newHarness()
	landlordID, tenantID := uuid.New(), uuid.New()
	lease := signedLease(landlordID, tenantID)

	h.leaseRepo.On("GetByID", mock.Anything, lease.ID).Return(lease, nil)
	h.statuses.On("GetCertificationStatus", mock.Anything, landlordID).Return(certified(), nil)
	h.statuses.On("GetCertificationStatus", mock.Anything, tenantID).
		Return(&verification.CertificationStatus{FullyCertified: false}, nil)
	h.scores.On("GetCurrentScore", mock.Anything, landlordID).Return(scoreOf(80), nil)
	h.scores.On("GetCurrentScore", mock.Anything, tenantID).Return(scoreOf(30), nil)

	report, err := h.service.CheckPrerequisites(context.Background(), lease.ID)
	assert.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Contains(t, report.Missing, "tenant not certified")
	assert.Contains(t, report.Missing, "tenant trust score below 50")
	assert.NotContains(t, report.Missing, "landlord not certified")
}

func TestCreateRequest_BlockedWhenPrerequisitesFail(t *testing.T) {
	h := newHarness()
	lease := signedLease(uuid.New(), uuid.New())
	lease.Status = leases.StatusDraft

	h.leaseRepo.On("GetByID", mock.Anything, lease.ID).Return(lease, nil)
	h.statuses.On("GetCertificationStatus", mock.Anything, mock.Anything).Return(certified(), nil)
	h.scores.On("GetCurrentScore", mock.Anything, mock.Anything).Return(scoreOf(80), nil)

	_, err := h.service.CreateRequest(context.Background(), lease.ID)
	var validation *errs.ValidationError
	assert.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Fields, "lease not signed")
	h.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateRequest_RejectsSecondInFlightRequest(t *testing.T) {
	h := newHarness()
	lease := signedLease(uuid.New(), uuid.New())

	h.leaseRepo.On("GetByID", mock.Anything, lease.ID).Return(lease, nil)
	h.statuses.On("GetCertificationStatus", mock.Anything, mock.Anything).Return(certified(), nil)
	h.scores.On("GetCurrentScore", mock.Anything, mock.Anything).Return(scoreOf(80), nil)
	h.repo.On("GetActiveByLease", mock.Anything, lease.ID).
		Return(requestWithDocuments(), nil)

	_, err := h.service.CreateRequest(context.Background(), lease.ID)
	var conflict *errs.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestSubmit_FailsWithMissingSlotNamed(t *testing.T) {
	h := newHarness()
	req := requestWithDocuments(
		SlotLandlordIDFront, SlotLandlordIDBack,
		SlotTenantIDFront, SlotTenantIDBack,
		SlotPropertyTitle, SlotPropertyPhoto,
	)
	h.repo.On("GetByID", mock.Anything, req.ID).Return(req, nil)

	_, err := h.service.Submit(context.Background(), req.ID)
	var incomplete *errs.IncompleteDocumentsError
	assert.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []string{string(SlotSignedLease)}, incomplete.Missing)
	h.authority.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestSubmit_SucceedsOnceAllRequiredSlotsAttached(t *testing.T) {
	h := newHarness()
	req := requestWithDocuments(RequiredSlots...)
	h.repo.On("GetByID", mock.Anything, req.ID).Return(req, nil)
	h.authority.On("Submit", mock.Anything, req).Return("ANSUT-2026-00042", nil)
	h.repo.On("Transition", mock.Anything, req, StatusPendingDocuments).Return(nil)

	result, err := h.service.Submit(context.Background(), req.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusSubmitted, result.Status)
	assert.Equal(t, "ANSUT-2026-00042", *result.AuthorityReference)
}

func TestSubmit_FeeProofIsOptional(t *testing.T) {
	h := newHarness()
	req := requestWithDocuments(RequiredSlots...)
	assert.Empty(t, req.Documents[SlotFeeProof])

	h.repo.On("GetByID", mock.Anything, req.ID).Return(req, nil)
	h.authority.On("Submit", mock.Anything, req).Return("ANSUT-2026-00043", nil)
	h.repo.On("Transition", mock.Anything, req, StatusPendingDocuments).Return(nil)

	_, err := h.service.Submit(context.Background(), req.ID)
	assert.NoError(t, err)
}

func TestSubmit_AuthorityFailureLeavesStatusUntouched(t *testing.T) {
	h := newHarness()
	req := requestWithDocuments(RequiredSlots...)
	h.repo.On("GetByID", mock.Anything, req.ID).Return(req, nil)
	h.authority.On("Submit", mock.Anything, req).Return("", assert.AnError)

	_, err := h.service.Submit(context.Background(), req.ID)
	assert.Error(t, err)
	h.repo.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything)
}

func TestAttachDocument_DoesNotChangeStatus(t *testing.T) {
	h := newHarness()
	req := requestWithDocuments()
	h.repo.On("GetByID", mock.Anything, req.ID).Return(req, nil)
	h.repo.On("SetDocument", mock.Anything, req.ID, SlotSignedLease, "https://cdn/lease.pdf").Return(nil)

	err := h.service.AttachDocument(context.Background(), req.ID, SlotSignedLease, "https://cdn/lease.pdf")
	assert.NoError(t, err)
	h.repo.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything)
}

func TestAttachDocument_RejectsUnknownSlot(t *testing.T) {
	h := newHarness()
	err := h.service.AttachDocument(context.Background(), uuid.New(), "passport_scan", "https://cdn/x.pdf")
	var validation *errs.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestApplyAuthorityDecision_ApproveThenIssue(t *testing.T) {
	h := newHarness()
	req := requestWithDocuments(RequiredSlots...)
	req.Status = StatusUnderReview

	h.repo.On("GetByID", mock.Anything, req.ID).Return(req, nil)
	h.repo.On("Transition", mock.Anything, req, StatusUnderReview).Return(nil)

	result, err := h.service.ApplyAuthorityDecision(context.Background(), req.ID, &Decision{
		Outcome: OutcomeApproved,
	})
	assert.NoError(t, err)
	assert.Equal(t, StatusApproved, result.Status)

	h.repo.ExpectedCalls = nil
	h.repo.On("GetByID", mock.Anything, req.ID).Return(req, nil)
	h.repo.On("Transition", mock.Anything, req, StatusApproved).Return(nil)

	result, err = h.service.ApplyAuthorityDecision(context.Background(), req.ID, &Decision{
		Outcome:           OutcomeIssued,
		CertificateNumber: "CEV-CI-2026-0001",
		VerificationURL:   "https://certificats.montoit.ci/CEV-CI-2026-0001",
		QRPayload:         "https://certificats.montoit.ci/CEV-CI-2026-0001?sig=9f2a",
	})
	assert.NoError(t, err)
	assert.Equal(t, StatusIssued, result.Status)
	assert.Equal(t, "CEV-CI-2026-0001", *result.CertificateNumber)
	assert.Equal(t, "https://certificats.montoit.ci/CEV-CI-2026-0001?sig=9f2a", *result.QRPayload)
}

func TestApplyAuthorityDecision_IssuedRequiresApprovedFirst(t *testing.T) {
	h := newHarness()
	req := requestWithDocuments(RequiredSlots...)
	req.Status = StatusUnderReview
	h.repo.On("GetByID", mock.Anything, req.ID).Return(req, nil)

	_, err := h.service.ApplyAuthorityDecision(context.Background(), req.ID, &Decision{
		Outcome:           OutcomeIssued,
		CertificateNumber: "CEV-CI-2026-0002",
	})
	var conflict *errs.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestApplyAuthorityDecision_RejectionIsSurfaced(t *testing.T) {
	h := newHarness()
	req := requestWithDocuments(RequiredSlots...)
	req.Status = StatusUnderReview
	h.repo.On("GetByID", mock.Anything, req.ID).Return(req, nil)
	h.repo.On("Transition", mock.Anything, req, StatusUnderReview).Return(nil)

	result, err := h.service.ApplyAuthorityDecision(context.Background(), req.ID, &Decision{
		Outcome: OutcomeRejected,
		Reason:  "property title could not be authenticated",
	})
	var rejection *errs.AuthorityRejectionError
	assert.ErrorAs(t, err, &rejection)
	assert.Equal(t, StatusRejected, result.Status)
	assert.Equal(t, "property title could not be authenticated", *result.RejectionReason)
}

func TestApplyAuthorityDecision_DefaultsDeadlineAndExpiry(t *testing.T) {
	h := newHarness()
	h.service = NewService(
		h.repo, h.leaseRepo, h.statuses, h.scores, h.authority, nil,
		Config{
			ScoreFloor:      50,
			Fee:             decimal.NewFromInt(15000),
			DocumentsWindow: 7 * 24 * time.Hour,
			CertificateTTL:  365 * 24 * time.Hour,
		},
		zap.NewNop(),
	)

	req := requestWithDocuments(RequiredSlots...)
	req.Status = StatusUnderReview
	h.repo.On("GetByID", mock.Anything, req.ID).Return(req, nil)
	h.repo.On("Transition", mock.Anything, req, StatusUnderReview).Return(nil)

	result, err := h.service.ApplyAuthorityDecision(context.Background(), req.ID, &Decision{
		Outcome:            OutcomeDocumentsRequested,
		RequestedDocuments: []string{"fee_proof"},
	})
	assert.NoError(t, err)
	assert.NotNil(t, result.DocumentsDeadline)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), *result.DocumentsDeadline, time.Minute)

	issued := requestWithDocuments(RequiredSlots...)
	issued.Status = StatusApproved
	h.repo.ExpectedCalls = nil
	h.repo.On("GetByID", mock.Anything, issued.ID).Return(issued, nil)
	h.repo.On("Transition", mock.Anything, issued, StatusApproved).Return(nil)

	result, err = h.service.ApplyAuthorityDecision(context.Background(), issued.ID, &Decision{
		Outcome:           OutcomeIssued,
		CertificateNumber: "CEV-CI-2026-0003",
	})
	assert.NoError(t, err)
	assert.NotNil(t, result.IssuedAt)
	assert.NotNil(t, result.ExpiresAt)
	assert.WithinDuration(t, result.IssuedAt.Add(365*24*time.Hour), *result.ExpiresAt, time.Second)
}

func TestApplyAuthorityDecision_DocumentsRequestedLoopsBack(t *testing.T) {
	h := newHarness()
	req := requestWithDocuments(RequiredSlots...)
	req.Status = StatusUnderReview
	h.repo.On("GetByID", mock.Anything, req.ID).Return(req, nil)
	h.repo.On("Transition", mock.Anything, req, StatusUnderReview).Return(nil)

	result, err := h.service.ApplyAuthorityDecision(context.Background(), req.ID, &Decision{
		Outcome:            OutcomeDocumentsRequested,
		RequestedDocuments: []string{"property_title"},
	})
	assert.NoError(t, err)
	assert.Equal(t, StatusDocumentsRequested, result.Status)
	assert.Equal(t, []string{"property_title"}, result.RequestedDocuments)

	h.repo.ExpectedCalls = nil
	h.repo.On("GetByID", mock.Anything, req.ID).Return(req, nil)
	h.authority.On("Submit", mock.Anything, req).Return("ANSUT-2026-00044", nil)
	h.repo.On("Transition", mock.Anything, req, StatusDocumentsRequested).Return(nil)

	result, err = h.service.Submit(context.Background(), req.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusUnderReview, result.Status)
	assert.Nil(t, result.RequestedDocuments)
}
