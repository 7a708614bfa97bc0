package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"pyqbank/internal/logger"

	"github.com/rs/zerolog"
)

const (
	// visionPagesPerRequest is the Cloud Vision synchronous limit.
	visionPagesPerRequest = 5

	// retryBackoff is the pause before the single transport retry.
	retryBackoff = 10 * time.Second
)

// GoogleVisionService implements Service using the Cloud Vision API.
// Documents longer than five pages are fetched in successive
// per-page-window requests against the same inline PDF.
type GoogleVisionService struct {
	client *vision.ImageAnnotatorClient
	log    zerolog.Logger
}

// NewGoogleVisionService creates a new OCR service with credentials from
// the environment.
func NewGoogleVisionService(ctx context.Context) (*GoogleVisionService, error) {
	const op = "NewGoogleVisionService"

	var client *vision.ImageAnnotatorClient
	var err error

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return &GoogleVisionService{
		client: client,
		log:    logger.WithComponent("ocr-vision"),
	}, nil
}

// NewGoogleVisionServiceWithClient creates a service with an explicit
// client (for testing).
func NewGoogleVisionServiceWithClient(client *vision.ImageAnnotatorClient) *GoogleVisionService {
	return &GoogleVisionService{
		client: client,
		log:    logger.WithComponent("ocr-vision"),
	}
}

// ProcessPDF extracts per-page text from a PDF document.
func (g *GoogleVisionService) ProcessPDF(ctx context.Context, pdfData io.Reader) ([]Page, error) {
	result, err := g.ProcessPDFWithMetadata(ctx, pdfData)
	if err != nil {
		return nil, err
	}
	return result.Pages, nil
}

// ProcessPDFWithMetadata extracts per-page text with processing metadata.
func (g *GoogleVisionService) ProcessPDFWithMetadata(ctx context.Context, pdfData io.Reader) (*Result, error) {
	const op = "ProcessPDFWithMetadata"
	startTime := time.Now()

	pdfBytes, err := io.ReadAll(pdfData)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to read PDF data")
	}
	if err := validatePDF(pdfBytes); err != nil {
		return nil, WrapOCRError(op, err, fmt.Sprintf("file size: %d bytes", len(pdfBytes)))
	}

	var pages []Page
	totalPages := -1

	// Fetch page windows until the reported total is covered.
	for first := 1; totalPages < 0 || first <= totalPages; first += visionPagesPerRequest {
		window := make([]int32, 0, visionPagesPerRequest)
		for p := first; p < first+visionPagesPerRequest; p++ {
			if totalPages >= 0 && p > totalPages {
				break
			}
			window = append(window, int32(p))
		}

		fileResp, err := g.annotateWindow(ctx, pdfBytes, window)
		if err != nil {
			return nil, WrapOCRError(op, err, fmt.Sprintf("pages %d-%d", first, first+len(window)-1))
		}

		if totalPages < 0 {
			totalPages = int(fileResp.TotalPages)
			g.log.Debug().Int("total_pages", totalPages).Msg("Document page count reported by Vision")
		}

		for i, pageResp := range fileResp.Responses {
			if pageResp.Error != nil {
				return nil, WrapOCRError(op, ErrUnavailable, fmt.Sprintf("page %d: %s", first+i, pageResp.Error.Message))
			}
			number := first + i
			if pageResp.Context != nil && pageResp.Context.PageNumber > 0 {
				number = int(pageResp.Context.PageNumber)
			}
			text := ""
			if pageResp.FullTextAnnotation != nil {
				text = pageResp.FullTextAnnotation.Text
			}
			pages = append(pages, Page{Number: number, Markdown: text})
		}
	}

	if allBlank(pages) {
		return nil, WrapOCRError(op, ErrEmptyDocument, "")
	}

	return &Result{
		Pages:              pages,
		PageCount:          len(pages),
		ProcessedAt:        time.Now(),
		ProcessingDuration: time.Since(startTime),
	}, nil
}

// annotateWindow sends one BatchAnnotateFiles request for the given
// page numbers, retrying once after a backoff on transport failure.
func (g *GoogleVisionService) annotateWindow(ctx context.Context, pdfBytes []byte, pageNumbers []int32) (*visionpb.AnnotateFileResponse, error) {
	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  pdfBytes,
					MimeType: "application/pdf",
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				Pages: pageNumbers,
			},
		},
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			g.log.Warn().Err(lastErr).Msg("Vision request failed, retrying after backoff")
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := g.client.BatchAnnotateFiles(ctx, req)
		if err != nil {
			if isRejection(err) {
				return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
			}
			lastErr = err
			continue
		}
		if len(resp.Responses) == 0 {
			lastErr = fmt.Errorf("no response from Vision API")
			continue
		}
		fileResp := resp.Responses[0]
		if fileResp.Error != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPDF, fileResp.Error.Message)
		}
		return fileResp, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// isRejection distinguishes provider rejections of the document itself
// from transport faults worth retrying.
func isRejection(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "INVALID_ARGUMENT") ||
		strings.Contains(msg, "unsupported") ||
		strings.Contains(msg, "cannot be processed")
}

func allBlank(pages []Page) bool {
	for _, p := range pages {
		if strings.TrimSpace(p.Markdown) != "" {
			return false
		}
	}
	return true
}

// Close closes the underlying Vision client.
func (g *GoogleVisionService) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
