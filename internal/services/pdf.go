package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/domain"
)

type PDFService struct{}

func NewPDFService() *PDFService {
	return &PDFService{}
}

// GeneratePDF renders a completed simplification to outPath. Only completed
// results carry generated text, so callers gate on the result status first.
func (s *PDFService) GeneratePDF(sessionID string, result domain.Result, createdAt time.Time, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure pdf directory: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Prescription %s", sessionID), false)
	pdf.SetAuthor("health-assistant", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Simplified Prescription")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 6, fmt.Sprintf("Created: %s", createdAt.Local().Format("02/01/2006 15:04")))
	pdf.Ln(12)

	s.writeSection(pdf, "Original text", result.OriginalText)
	pdf.Ln(8)
	s.writeSection(pdf, "Plain language", result.SimplifiedText)
	pdf.Ln(8)
	s.writeSection(pdf, "Notice", result.Disclaimer)

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}

	return nil
}

func (s *PDFService) writeSection(pdf *gofpdf.Fpdf, title, content string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, title)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)

	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pdf.MultiCell(0, 6, line, "", "L", false)
	}
}
