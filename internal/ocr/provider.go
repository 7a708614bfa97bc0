package ocr

import (
	"context"
	"fmt"
)

// New selects an OCR backend by name. Supported providers: "vision"
// (default behaviour of the pipeline) and "documentai".
func New(ctx context.Context, provider string) (Service, error) {
	switch provider {
	case "", "vision":
		return NewGoogleVisionService(ctx)
	case "documentai":
		return NewDocumentAIService(ctx)
	default:
		return nil, fmt.Errorf("ocr: unknown provider %q", provider)
	}
}
