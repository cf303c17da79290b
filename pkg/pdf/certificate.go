package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/boombuler/barcode/qr"
	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/barcode"
)

// CertificateData is everything printed on the certificate sheet.
type CertificateData struct {
	CertificateNumber  string
	AuthorityName      string
	AuthorityReference string
	LandlordName       string
	TenantName         string
	PropertyAddress    string
	IssuedAt           time.Time
	ExpiresAt          time.Time
	VerificationURL    string
	QRPayload          string
}

// RenderCertificate lays out the issued-certificate summary sheet as a PDF.
func RenderCertificate(data CertificateData) ([]byte, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetTitle("Certificat Electronique de Verification", false)
	doc.SetAuthor(data.AuthorityName, false)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(0, 12, "Certificat Electronique de Verification", "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 11)
	doc.CellFormat(0, 8, fmt.Sprintf("Delivre par %s", data.AuthorityName), "", 1, "C", false, 0, "")
	doc.Ln(8)

	doc.SetFont("Helvetica", "B", 13)
	doc.CellFormat(0, 9, fmt.Sprintf("Certificat N %s", data.CertificateNumber), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 11)
	doc.Ln(2)

	rows := [][2]string{
		{"Reference autorite", data.AuthorityReference},
		{"Bailleur", data.LandlordName},
		{"Locataire", data.TenantName},
		{"Bien", data.PropertyAddress},
		{"Date d'emission", data.IssuedAt.Format("02/01/2006")},
		{"Date d'expiration", data.ExpiresAt.Format("02/01/2006")},
	}
	for _, row := range rows {
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(55, 8, row[0], "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 11)
		doc.CellFormat(0, 8, row[1], "", 1, "L", false, 0, "")
	}

	if data.QRPayload != "" {
		doc.Ln(6)
		key := barcode.RegisterQR(doc, data.QRPayload, qr.M, qr.Unicode)
		x, y := doc.GetXY()
		barcode.Barcode(doc, key, x, y, 32, 32, false)
		doc.SetY(y + 34)
		doc.SetFont("Helvetica", "I", 9)
		doc.CellFormat(0, 6, "Scannez pour verifier ce certificat", "", 1, "L", false, 0, "")
	}

	if data.VerificationURL != "" {
		doc.Ln(4)
		doc.SetFont("Helvetica", "I", 10)
		doc.CellFormat(0, 7, fmt.Sprintf("Verifier l'authenticite: %s", data.VerificationURL), "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
