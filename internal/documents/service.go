package documents

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SOMET1010/montoitv6-sub000/pkg/errs"
	"github.com/SOMET1010/montoitv6-sub000/pkg/storage"
)

// Service stores evidence documents and hands back stable URLs. All workflow
// modules reference documents by URL only.
type Service struct {
	repo   Repository
	blobs  storage.S3Client
	bucket string
	logger *zap.Logger
}

func NewService(repo Repository, blobs storage.S3Client, bucket string, logger *zap.Logger) *Service {
	return &Service{repo: repo, blobs: blobs, bucket: bucket, logger: logger}
}

type UploadRequest struct {
	OwnerID     uuid.UUID
	Type        DocumentType
	FileName    string
	ContentType string
	SizeBytes   int64
	Body        io.Reader
}

func (s *Service) Upload(ctx context.Context, req UploadRequest) (*Document, error) {
	if !ValidType(req.Type) {
		return nil, &errs.ValidationError{Message: "unknown document type", Fields: []string{string(req.Type)}}
	}
	if req.FileName == "" {
		return nil, &errs.ValidationError{Message: "file name is required", Fields: []string{"file_name"}}
	}

	id := uuid.New()
	key := fmt.Sprintf("%s/%s/%s%s", req.OwnerID, req.Type, id, path.Ext(req.FileName))
	url, err := s.blobs.Upload(ctx, s.bucket, key, req.Body)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		ID:          id,
		OwnerID:     req.OwnerID,
		Type:        req.Type,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		URL:         url,
		UploadedAt:  time.Now(),
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		// The blob is orphaned if the row fails; best effort cleanup.
		if delErr := s.blobs.Delete(ctx, s.bucket, key); delErr != nil {
			s.logger.Warn("Failed to clean up orphaned blob",
				zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}

	s.logger.Info("Document uploaded",
		zap.String("document_id", id.String()),
		zap.String("owner_id", req.OwnerID.String()),
		zap.String("type", string(req.Type)))
	return doc, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Document, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// PresignedURL returns a short-lived direct link to the document body.
func (s *Service) PresignedURL(ctx context.Context, id uuid.UUID, expiration time.Duration) (string, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return s.blobs.GetPresignedURL(ctx, s.bucket, keyFromURL(doc), expiration)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, s.bucket, keyFromURL(doc)); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func keyFromURL(doc *Document) string {
	return fmt.Sprintf("%s/%s/%s%s", doc.OwnerID, doc.Type, doc.ID, path.Ext(doc.FileName))
}
