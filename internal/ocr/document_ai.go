package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"pyqbank/internal/logger"

	"github.com/rs/zerolog"
)

// DocumentAIConfig configures the Document AI OCR backend.
type DocumentAIConfig struct {
	ProjectID   string
	Location    string // "us", "eu", ...
	ProcessorID string
	Timeout     time.Duration
}

// DocumentAIService implements Service using a Document AI OCR
// processor. The whole document is processed in one call; per-page text
// is recovered from the layout text anchors.
type DocumentAIService struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIService creates a service with credentials from the
// environment. Requires GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID.
func NewDocumentAIService(ctx context.Context) (*DocumentAIService, error) {
	const op = "NewDocumentAIService"

	config := DocumentAIConfig{
		ProjectID:   os.Getenv("GOOGLE_CLOUD_PROJECT"),
		Location:    os.Getenv("GOOGLE_CLOUD_LOCATION"),
		ProcessorID: os.Getenv("DOCUMENT_AI_PROCESSOR_ID"),
		Timeout:     120 * time.Second,
	}
	if config.ProjectID == "" {
		return nil, WrapOCRError(op, ErrMissingCredentials, "GOOGLE_CLOUD_PROJECT is required")
	}
	if config.ProcessorID == "" {
		return nil, WrapOCRError(op, ErrMissingCredentials, "DOCUMENT_AI_PROCESSOR_ID is required")
	}
	if config.Location == "" {
		config.Location = "us"
	}

	var clientOptions []option.ClientOption
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(clientOptions) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return &DocumentAIService{
		client: client,
		config: config,
		log:    logger.WithComponent("ocr-documentai"),
	}, nil
}

// NewDocumentAIServiceWithConfig creates a service with explicit config
// and client (for testing).
func NewDocumentAIServiceWithConfig(config DocumentAIConfig, client *documentai.DocumentProcessorClient) *DocumentAIService {
	return &DocumentAIService{
		client: client,
		config: config,
		log:    logger.WithComponent("ocr-documentai"),
	}
}

// ProcessPDF extracts per-page text from a PDF document.
func (d *DocumentAIService) ProcessPDF(ctx context.Context, pdfData io.Reader) ([]Page, error) {
	result, err := d.ProcessPDFWithMetadata(ctx, pdfData)
	if err != nil {
		return nil, err
	}
	return result.Pages, nil
}

// ProcessPDFWithMetadata extracts per-page text with processing metadata.
func (d *DocumentAIService) ProcessPDFWithMetadata(ctx context.Context, pdfData io.Reader) (*Result, error) {
	const op = "ProcessPDFWithMetadata"
	startTime := time.Now()

	pdfBytes, err := io.ReadAll(pdfData)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to read PDF data")
	}
	if err := validatePDF(pdfBytes); err != nil {
		return nil, WrapOCRError(op, err, fmt.Sprintf("file size: %d bytes", len(pdfBytes)))
	}

	processCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: d.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  pdfBytes,
				MimeType: "application/pdf",
			},
		},
	}

	resp, err := d.processWithRetry(processCtx, req)
	if err != nil {
		return nil, WrapOCRError(op, err, "")
	}
	if resp.Document == nil {
		return nil, WrapOCRError(op, ErrUnavailable, "no document in response")
	}

	pages := pagesFromDocument(resp.Document)
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

// processWithRetry calls ProcessDocument, retrying once after a backoff
// on transport failure. Provider rejections are not retried.
func (d *DocumentAIService) processWithRetry(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			d.log.Warn().Err(lastErr).Msg("Document AI request failed, retrying after backoff")
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := d.client.ProcessDocument(ctx, req)
		if err != nil {
			if strings.Contains(err.Error(), "INVALID_ARGUMENT") {
				return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
			}
			lastErr = err
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (d *DocumentAIService) processorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		d.config.ProjectID, d.config.Location, d.config.ProcessorID)
}

// pagesFromDocument slices the document's full text into pages using
// the layout text anchors.
func pagesFromDocument(doc *documentaipb.Document) []Page {
	text := doc.Text
	pages := make([]Page, 0, len(doc.Pages))
	for i, page := range doc.Pages {
		number := i + 1
		if page.PageNumber > 0 {
			number = int(page.PageNumber)
		}
		pages = append(pages, Page{
			Number:   number,
			Markdown: anchorText(text, page.Layout),
		})
	}
	return pages
}

func anchorText(text string, layout *documentaipb.Document_Page_Layout) string {
	if layout == nil || layout.TextAnchor == nil {
		return ""
	}
	var sb strings.Builder
	for _, seg := range layout.TextAnchor.TextSegments {
		start := int(seg.StartIndex)
		end := int(seg.EndIndex)
		if start < 0 || end > len(text) || start >= end {
			continue
		}
		sb.WriteString(text[start:end])
	}
	return sb.String()
}

// Close closes the underlying Document AI client.
func (d *DocumentAIService) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}
