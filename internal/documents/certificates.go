package documents

import (
	"bytes"
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/SOMET1010/montoitv6-sub000/internal/cev"
	"github.com/SOMET1010/montoitv6-sub000/pkg/pdf"
)

// CertificateArchiver renders the issued-certificate sheet and stores it with
// the landlord's documents. Archiving is best effort; issuance never waits on
// it or fails because of it.
type CertificateArchiver struct {
	service       *Service
	db            *sqlx.DB
	authorityName string
	logger        *zap.Logger
}

func NewCertificateArchiver(service *Service, db *sqlx.DB, authorityName string, logger *zap.Logger) *CertificateArchiver {
	return &CertificateArchiver{
		service:       service,
		db:            db,
		authorityName: authorityName,
		logger:        logger,
	}
}

func (a *CertificateArchiver) Archive(ctx context.Context, req *cev.Request) {
	data := pdf.CertificateData{
		AuthorityName: a.authorityName,
		LandlordName:  a.lookupName(ctx, req.LandlordID),
		TenantName:    a.lookupName(ctx, req.TenantID),
	}
	if req.CertificateNumber != nil {
		data.CertificateNumber = *req.CertificateNumber
	}
	if req.AuthorityReference != nil {
		data.AuthorityReference = *req.AuthorityReference
	}
	if req.IssuedAt != nil {
		data.IssuedAt = *req.IssuedAt
	}
	if req.ExpiresAt != nil {
		data.ExpiresAt = *req.ExpiresAt
	}
	if req.VerificationURL != nil {
		data.VerificationURL = *req.VerificationURL
	}
	if req.QRPayload != nil {
		data.QRPayload = *req.QRPayload
	}
	if err := a.db.GetContext(ctx, &data.PropertyAddress, `
		SELECT COALESCE(p.address, '')
		FROM leases l
		JOIN properties p ON p.id = l.property_id
		WHERE l.id = $1`, req.LeaseID); err != nil {
		a.logger.Warn("Failed to look up property address for certificate sheet",
			zap.String("request_id", req.ID.String()), zap.Error(err))
	}

	rendered, err := pdf.RenderCertificate(data)
	if err != nil {
		a.logger.Warn("Failed to render certificate sheet",
			zap.String("request_id", req.ID.String()), zap.Error(err))
		return
	}

	_, err = a.service.Upload(ctx, UploadRequest{
		OwnerID:     req.LandlordID,
		Type:        TypeCertificate,
		FileName:    data.CertificateNumber + ".pdf",
		ContentType: "application/pdf",
		SizeBytes:   int64(len(rendered)),
		Body:        bytes.NewReader(rendered),
	})
	if err != nil {
		a.logger.Warn("Failed to archive certificate sheet",
			zap.String("request_id", req.ID.String()), zap.Error(err))
		return
	}
	a.logger.Info("Certificate sheet archived",
		zap.String("request_id", req.ID.String()),
		zap.String("certificate_number", data.CertificateNumber),
		zap.Duration("validity", data.ExpiresAt.Sub(data.IssuedAt)))
}

func (a *CertificateArchiver) lookupName(ctx context.Context, userID uuid.UUID) string {
	var name string
	if err := a.db.GetContext(ctx, &name, `SELECT full_name FROM users WHERE id = $1`, userID); err != nil {
		return userID.String()
	}
	return name
}

var _ cev.CertificateArchiver = (*CertificateArchiver)(nil)
