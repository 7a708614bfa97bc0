// Package ocr turns scanned exam PDFs into page-indexed markdown text.
//
// Two Google Cloud backends are supported behind one interface:
//
//   - "vision": Cloud Vision document text detection, requested in
//     windows of up to 5 pages per call to stay inside the synchronous
//     API limit.
//   - "documentai": a Document AI OCR processor, one call per document.
//
// Required Environment Variables:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//
// Pages are numbered from 1 at this boundary regardless of how the
// backend indexes them internally.
package ocr

import (
	"context"
	"io"
	"time"
)

// MaxFileSizeBytes is the maximum PDF size accepted for processing (20MB).
const MaxFileSizeBytes = 20 * 1024 * 1024

// Page is one physical page of the scanned document.
type Page struct {
	// Number is the 1-indexed physical page number.
	Number int `json:"number"`

	// Markdown is the page text as returned by the provider.
	Markdown string `json:"markdown"`
}

// Result contains OCR output with processing metadata.
type Result struct {
	Pages              []Page        `json:"pages"`
	PageCount          int           `json:"page_count"`
	ProcessedAt        time.Time     `json:"processed_at"`
	ProcessingDuration time.Duration `json:"processing_duration"`
}

// Service defines the interface for OCR text extraction services.
type Service interface {
	// ProcessPDF extracts per-page text from a PDF document.
	ProcessPDF(ctx context.Context, pdfData io.Reader) ([]Page, error)

	// ProcessPDFWithMetadata extracts per-page text with processing metadata.
	ProcessPDFWithMetadata(ctx context.Context, pdfData io.Reader) (*Result, error)
}

// Text concatenates the markdown of a page range (inclusive, 1-indexed)
// with blank-line separators. Page numbers outside the slice are skipped.
func Text(pages []Page, from, to int) string {
	var out string
	for _, p := range pages {
		if p.Number < from || p.Number > to {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += p.Markdown
	}
	return out
}

func validatePDF(pdfBytes []byte) error {
	if len(pdfBytes) > MaxFileSizeBytes {
		return ErrPDFTooLarge
	}
	if len(pdfBytes) < 4 || string(pdfBytes[:4]) != "%PDF" {
		return ErrInvalidPDF
	}
	return nil
}
