package documents

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/SOMET1010/montoitv6-sub000/internal/cev"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, doc *Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Document), args.Error(1)
}

func (m *MockRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Document, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]Document), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type stubBlobStore struct {
	uploadedKey  string
	uploadedSize int
}

func (s *stubBlobStore) Upload(ctx context.Context, bucket, key string, body io.Reader) (string, error) {
	b, _ := io.ReadAll(body)
	s.uploadedKey = key
	s.uploadedSize = len(b)
	return "https://cdn.montoit.ci/" + key, nil
}

func (s *stubBlobStore) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	return nil, nil
}

func (s *stubBlobStore) Delete(ctx context.Context, bucket, key string) error {
	return nil
}

func (s *stubBlobStore) GetPresignedURL(ctx context.Context, bucket, key string, expiration time.Duration) (string, error) {
	return "", nil
}

// unreachableDB opens a pool pointed at a closed port, so every query fails
// fast without a server.
func unreachableDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("postgres", "host=127.0.0.1 port=9 user=montoit dbname=montoit sslmode=disable connect_timeout=1")
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestArchive_StoresSheetAndWarnsOnAddressLookupFailure(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(d *Document) bool {
		return d.Type == TypeCertificate
	})).Return(nil)

	blobs := &stubBlobStore{}
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	service := NewService(repo, blobs, "montoit-documents", logger)
	archiver := NewCertificateArchiver(service, unreachableDB(t), "ANSUT", logger)

	number := "CEV-CI-2026-0001"
	issuedAt := time.Now()
	expiresAt := issuedAt.Add(365 * 24 * time.Hour)
	qr := "https://certificats.montoit.ci/CEV-CI-2026-0001?sig=9f2a"
	archiver.Archive(context.Background(), &cev.Request{
		ID:                uuid.New(),
		LeaseID:           uuid.New(),
		LandlordID:        uuid.New(),
		TenantID:          uuid.New(),
		Status:            cev.StatusIssued,
		CertificateNumber: &number,
		IssuedAt:          &issuedAt,
		ExpiresAt:         &expiresAt,
		QRPayload:         &qr,
	})

	assert.Positive(t, blobs.uploadedSize)
	assert.Contains(t, blobs.uploadedKey, string(TypeCertificate))
	assert.Equal(t, 1, logs.FilterMessage("Failed to look up property address for certificate sheet").Len())
	repo.AssertExpectations(t)
}
