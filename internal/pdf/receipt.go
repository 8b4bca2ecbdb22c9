package pdf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/yeqown/go-qrcode"

	"estate-backend/internal/models"
	"estate-backend/internal/timeutil"
)

// ReceiptRenderer draws rent receipts to local PDF files. The QR code links
// to the public verification endpoint keyed by the barcode reference.
type ReceiptRenderer struct {
	OutputDir     string
	VerifyBaseURL string
}

func NewReceiptRenderer(outputDir, verifyBaseURL string) *ReceiptRenderer {
	return &ReceiptRenderer{OutputDir: outputDir, VerifyBaseURL: verifyBaseURL}
}

// Render produces the receipt PDF and returns its path. The caller removes
// the file after upload.
func (r *ReceiptRenderer) Render(rc *models.RentReceipt, tenant *models.Tenant, propertyAddress string) (string, error) {
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	qrPath := filepath.Join(r.OutputDir, fmt.Sprintf("%s-qr.png", rc.ReferenceNumber))
	verifyURL := fmt.Sprintf("%s/api/receipts/verify/%s", r.VerifyBaseURL, rc.BarcodeReference)
	qrc, err := qrcode.New(verifyURL)
	if err != nil {
		return "", fmt.Errorf("failed to build QR code: %w", err)
	}
	if err := qrc.Save(qrPath); err != nil {
		return "", fmt.Errorf("failed to save QR code: %w", err)
	}
	defer os.Remove(qrPath)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Rent Payment Receipt", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", timeutil.Now().Format("02-Jan-2006 03:04 PM")), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Receipt Details", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("Receipt No: %s", rc.ReferenceNumber), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Context: %s", rc.PaymentContext), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Tenant: %s", tenant.FullName), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Property: %s", propertyAddress), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Cycle: %s to %s",
		rc.CycleStart.Format("02-Jan-2006"), rc.CycleEnd.Format("02-Jan-2006")), "LB", 0, "L", false, 0, "")
	status := "BALANCE OUTSTANDING"
	if rc.FullyPaid {
		status = "FULLY PAID"
	}
	pdf.CellFormat(95, 7, fmt.Sprintf("Status: %s", status), "RB", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Payment Summary", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(63, 7, "Rent Amount", "1", 0, "C", true, 0, "")
	pdf.CellFormat(63, 7, "Amount Paid", "1", 0, "C", true, 0, "")
	pdf.CellFormat(64, 7, "Remaining Balance", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(63, 7, rc.RentAmount.StringFixed(2), "1", 0, "C", false, 0, "")
	pdf.CellFormat(63, 7, rc.AmountPaid.StringFixed(2), "1", 0, "C", false, 0, "")
	pdf.CellFormat(64, 7, rc.RemainingBalance.StringFixed(2), "1", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.ImageOptions(qrPath, 80, pdf.GetY(), 50, 50, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	pdf.SetY(pdf.GetY() + 52)
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(190, 5, "Scan to verify this receipt", "", 1, "C", false, 0, "")
	pdf.CellFormat(190, 5, rc.BarcodeReference, "", 1, "C", false, 0, "")

	outPath := filepath.Join(r.OutputDir, fmt.Sprintf("%s.pdf", rc.ReferenceNumber))
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return "", fmt.Errorf("failed to write receipt PDF: %w", err)
	}
	return outPath, nil
}
