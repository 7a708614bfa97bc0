package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pyqbank/internal/config"
	"pyqbank/internal/envelope"
	"pyqbank/internal/llm"
	"pyqbank/internal/ocr"
	"pyqbank/pkg/models"
)

// structuredSuffix names the post-extraction question file,
// e.g. upsc_2024_structured_for_frontend.json.
const structuredSuffix = "structured_for_frontend"

// loadConfig loads the environment-backed configuration. Every
// subcommand goes through here so flag handling stays thin.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfig, err)
	}
	return cfg, nil
}

// validateExamYear checks the shared --exam/--year flags.
func validateExamYear(exam string, year int) error {
	if exam != models.ExamUPSC && exam != models.ExamUPPSC {
		return fmt.Errorf("%w: --exam must be %s or %s, got %q",
			config.ErrConfig, models.ExamUPSC, models.ExamUPPSC, exam)
	}
	if year < 1990 || year > 2100 {
		return fmt.Errorf("%w: --year %d is out of range", config.ErrConfig, year)
	}
	return nil
}

// newLLMClient builds the completion client for a provider after
// validating its API key.
func newLLMClient(cfg *config.Config, provider string) (llm.Client, error) {
	if err := cfg.RequireLLM(provider); err != nil {
		return nil, err
	}
	retry := llm.RetryConfig{MaxAttempts: cfg.MaxRetries}
	if provider == "grok" {
		return llm.NewGrok(cfg.XAIAPIKey, retry), nil
	}
	return llm.NewOpenAI(cfg.OpenAIAPIKey, retry), nil
}

// newOCRService builds the configured OCR backend.
func newOCRService(ctx context.Context, cfg *config.Config) (ocr.Service, error) {
	if err := cfg.RequireOCR(); err != nil {
		return nil, err
	}
	service, err := ocr.New(ctx, cfg.OCRProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create OCR service: %w", err)
	}
	return service, nil
}

// openPDF validates and opens a PDF argument.
func openPDF(path string, log zerolog.Logger) (*os.File, os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: PDF file not found: %s", config.ErrConfig, path)
		}
		return nil, nil, fmt.Errorf("error accessing PDF file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, nil, fmt.Errorf("%w: path is not a regular file: %s", config.ErrConfig, path)
	}
	if info.Size() == 0 {
		return nil, nil, fmt.Errorf("%w: PDF file is empty: %s", config.ErrConfig, path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		log.Warn().
			Str("file", path).
			Msg("File does not have .pdf extension")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open PDF file: %w", err)
	}
	return file, info, nil
}

// signalContext creates a context cancelled by SIGINT/SIGTERM, with an
// optional overall timeout.
func signalContext(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx := context.Background()
	cancel := func() {}
	if timeoutSecs > 0 {
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, sigCancel := context.WithCancel(ctx)
	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, cancelling")
			sigCancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		sigCancel()
		cancel()
	}
}

// questionFilePath builds the conventional JSON filename for a stage,
// e.g. json_files/upsc_2024_structured_for_frontend.json.
func questionFilePath(dir, exam string, year int, suffix string) string {
	name := fmt.Sprintf("%s_%d_%s.json", strings.ToLower(exam), year, suffix)
	return filepath.Join(dir, name)
}

// resumeCheckpoint prefers a previously checkpointed output envelope
// over the freshly built one, so a restarted run continues from the
// recorded batch progress instead of re-annotating finished batches.
// A checkpoint for a different question set is ignored.
func resumeCheckpoint(outPath string, fresh *models.Envelope, log zerolog.Logger) *models.Envelope {
	saved, err := envelope.Read(outPath)
	if err != nil {
		return fresh
	}
	if len(saved.Questions) != len(fresh.Questions) {
		log.Warn().
			Str("file", outPath).
			Int("checkpoint_questions", len(saved.Questions)).
			Int("current_questions", len(fresh.Questions)).
			Msg("Existing checkpoint does not match the extracted set, restarting annotation")
		return fresh
	}
	log.Info().
		Str("file", outPath).
		Str("progress", saved.Metadata.BatchProgress).
		Msg("Found existing annotation checkpoint, resuming")
	return saved
}
