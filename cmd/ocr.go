package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pyqbank/internal/logger"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [pdf-file]",
	Short: "Extract per-page markdown text from a scanned PDF",
	Long: `Run the configured OCR backend over a PDF and print the extracted
text, one markdown section per page.

The backend is selected by OCR_PROVIDER: "vision" (Google Cloud
Vision, the default) or "documentai" (Google Document AI). Both need
Google Cloud credentials via GOOGLE_APPLICATION_CREDENTIALS or
GOOGLE_CREDENTIALS.`,
	Example: `  # Print extracted text to stdout
  pyqbank ocr upsc_2024_gs1.pdf

  # Save to a markdown file
  pyqbank ocr upsc_2024_gs1.pdf -o upsc_2024_gs1.md`,
	Args: cobra.ExactArgs(1),
	RunE: runOCRCmd,
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().Int("timeout", 600, "Processing timeout in seconds")
}

func runOCRCmd(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr-cmd")

	outputPath, _ := cmd.Flags().GetString("output")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	pdfPath := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(timeoutSecs, log)
	defer cancel()

	service, err := newOCRService(ctx, cfg)
	if err != nil {
		return err
	}

	pdfFile, info, err := openPDF(pdfPath, log)
	if err != nil {
		return err
	}
	defer pdfFile.Close()

	log.Info().
		Str("file", pdfPath).
		Int64("size", info.Size()).
		Str("provider", cfg.OCRProvider).
		Msg("Starting OCR")

	start := time.Now()
	result, err := service.ProcessPDFWithMetadata(ctx, pdfFile)
	if err != nil {
		log.Error().Err(err).Msg("OCR failed")
		return fmt.Errorf("OCR failed: %w", err)
	}

	log.Info().
		Int("pages", result.PageCount).
		Dur("duration", time.Since(start)).
		Msg("OCR completed")

	var sb strings.Builder
	for _, page := range result.Pages {
		fmt.Fprintf(&sb, "## Page %d\n\n%s\n\n", page.Number, strings.TrimSpace(page.Markdown))
	}

	if outputPath == "" {
		_, err = os.Stdout.WriteString(sb.String())
		return err
	}
	if err := os.WriteFile(outputPath, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().
		Str("output_file", outputPath).
		Int("bytes", sb.Len()).
		Msg("OCR text written")
	return nil
}
