package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pyqbank/internal/answerkey"
	"pyqbank/internal/envelope"
	"pyqbank/internal/extract"
	"pyqbank/internal/logger"
	"pyqbank/pkg/models"
)

var extractCmd = &cobra.Command{
	Use:   "extract [pdf-file]",
	Short: "Extract question records from a scanned question paper",
	Long: `OCR the PDF, then extract canonical question records from the text
in windows of pages, one LLM call per window.

Embedded options are separated into the structured option map, the
official answer key (when compiled in for the exam and year) overrides
the extracted answers, and the result is written as a JSON question
file. Missing question numbers are reported so they can be repaired
with the repair subcommand.`,
	Example: `  # Extract UPSC Prelims 2024 GS Paper I
  pyqbank extract upsc_2024_gs1.pdf --exam UPSC --year 2024 --paper "GS-I"

  # Limit pages during a trial run
  pyqbank extract upsc_2024_gs1.pdf --exam UPSC --year 2024 --max-pages 10`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("exam", "", "Exam identifier: UPSC or UPPSC (required)")
	extractCmd.Flags().Int("year", 0, "Exam year (required)")
	extractCmd.Flags().String("paper", "", "Paper label, e.g. GS-I")
	extractCmd.Flags().String("section", "", "Section label for multi-section papers")
	extractCmd.Flags().StringP("output", "o", "", "Output JSON file (default: <json-dir>/<exam>_<year>_structured_for_frontend.json)")
	extractCmd.Flags().Int("max-pages", 0, "Process at most this many pages (0 = all)")
	extractCmd.Flags().Int("expected", 0, "Highest expected question number (default: from the answer key)")
	extractCmd.Flags().Int("timeout", 3600, "Overall timeout in seconds")
	_ = extractCmd.MarkFlagRequired("exam")
	_ = extractCmd.MarkFlagRequired("year")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract-cmd")

	exam, _ := cmd.Flags().GetString("exam")
	year, _ := cmd.Flags().GetInt("year")
	paper, _ := cmd.Flags().GetString("paper")
	section, _ := cmd.Flags().GetString("section")
	outputPath, _ := cmd.Flags().GetString("output")
	maxPages, _ := cmd.Flags().GetInt("max-pages")
	expected, _ := cmd.Flags().GetInt("expected")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	pdfPath := args[0]

	if err := validateExamYear(exam, year); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if outputPath == "" {
		outputPath = questionFilePath(cfg.JSONDir, exam, year, structuredSuffix)
	}
	if expected == 0 {
		expected = answerkey.Expected(exam, year)
	}

	ctx, cancel := signalContext(timeoutSecs, log)
	defer cancel()

	ocrService, err := newOCRService(ctx, cfg)
	if err != nil {
		return err
	}
	llmClient, err := newLLMClient(cfg, "openai")
	if err != nil {
		return err
	}

	pdfFile, _, err := openPDF(pdfPath, log)
	if err != nil {
		return err
	}
	defer pdfFile.Close()

	extractor := extract.New(ocrService, llmClient, extract.Config{
		Exam:      exam,
		Year:      year,
		Paper:     paper,
		Section:   section,
		SourcePDF: pdfPath,
		ChunkSize: cfg.ChunkSize,
		MaxPages:  maxPages,
		Expected:  expected,
		Model:     cfg.OpenAIModel,
	})

	start := time.Now()
	report, err := extractor.ExtractFromPDF(ctx, pdfFile)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	mismatches := answerkey.Stamp(report.Questions)

	env := models.NewEnvelope(exam, year, report.Questions)
	env.Metadata.Section = section
	if err := envelope.Write(outputPath, env); err != nil {
		return err
	}

	log.Info().
		Str("output_file", outputPath).
		Int("extracted", len(report.Questions)).
		Int("expected", report.Expected).
		Ints("missing", report.Missing).
		Int("key_mismatches", mismatches).
		Dur("duration", time.Since(start)).
		Msg("Extraction run finished")

	if report.ChunksFailed > 0 || len(report.Missing) > 0 {
		return fmt.Errorf("%w: %d chunks failed, %d questions missing",
			errPartial, report.ChunksFailed, len(report.Missing))
	}
	return nil
}
