package ocr

import (
	"errors"
	"fmt"
)

// Common OCR processing errors
var (
	// ErrPDFTooLarge is returned when the PDF exceeds the maximum file size limit.
	ErrPDFTooLarge = errors.New("PDF file size exceeds the maximum limit (20MB)")

	// ErrInvalidPDF is returned when the provider rejects the document or
	// the data is not a valid PDF.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrUnavailable is returned on transport failures after the retry
	// is exhausted.
	ErrUnavailable = errors.New("OCR service unavailable")

	// ErrMissingCredentials is returned when neither GOOGLE_APPLICATION_CREDENTIALS
	// nor GOOGLE_CREDENTIALS environment variables are configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrEmptyDocument is returned when the PDF contains no readable text.
	ErrEmptyDocument = errors.New("document contains no readable text")
)

// OCRError wraps errors with additional context about the OCR processing failure.
type OCRError struct {
	// Op is the operation that failed (e.g., "ProcessPDF").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *OCRError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapOCRError wraps an error as an OCRError if it isn't already one.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err // Already wrapped
	}

	return &OCRError{Op: op, Err: err, Details: details}
}
