package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pyqbank/internal/annotate"
	"pyqbank/internal/answerkey"
	"pyqbank/internal/config"
	"pyqbank/internal/envelope"
	"pyqbank/internal/extract"
	"pyqbank/internal/logger"
	"pyqbank/internal/options"
	"pyqbank/internal/store"
	"pyqbank/pkg/models"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline [pdf-file]",
	Short: "Run the full paper-to-database pipeline for one exam year",
	Long: `Run every stage for one question paper: OCR and extraction, option
separation, answer-key stamping, LLM annotation, and database upload.

Each stage writes its JSON file under the configured json directory,
so a failed run can be continued stage by stage with the individual
subcommands. The annotation stage checkpoints after every batch and
resumes automatically when its output file already exists.`,
	Example: `  pyqbank pipeline upsc_2024_gs1.pdf --exam UPSC --year 2024 --paper "GS-I"

  # Annotate with OpenAI and stop before the database
  pyqbank pipeline upsc_2024_gs1.pdf --exam UPSC --year 2024 \
      --provider openai --skip-upload`,
	Args: cobra.ExactArgs(1),
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(pipelineCmd)

	pipelineCmd.Flags().String("exam", "", "Exam identifier: UPSC or UPPSC (required)")
	pipelineCmd.Flags().Int("year", 0, "Exam year (required)")
	pipelineCmd.Flags().String("paper", "", "Paper label, e.g. GS-I")
	pipelineCmd.Flags().String("section", "", "Section label for multi-section papers")
	pipelineCmd.Flags().String("provider", "grok", "Annotation LLM provider: grok or openai")
	pipelineCmd.Flags().Bool("skip-upload", false, "Stop after annotation, do not touch the database")
	pipelineCmd.Flags().Bool("replace", false, "Delete existing database rows for the exam and year first")
	pipelineCmd.Flags().Int("timeout", 0, "Overall timeout in seconds (0 = none)")
	_ = pipelineCmd.MarkFlagRequired("exam")
	_ = pipelineCmd.MarkFlagRequired("year")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("pipeline")

	exam, _ := cmd.Flags().GetString("exam")
	year, _ := cmd.Flags().GetInt("year")
	paper, _ := cmd.Flags().GetString("paper")
	section, _ := cmd.Flags().GetString("section")
	provider, _ := cmd.Flags().GetString("provider")
	skipUpload, _ := cmd.Flags().GetBool("skip-upload")
	replace, _ := cmd.Flags().GetBool("replace")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	pdfPath := args[0]

	if err := validateExamYear(exam, year); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var preset annotate.Preset
	switch provider {
	case "grok":
		preset = annotate.GrokPreset(cfg.GrokModel)
	case "openai":
		preset = annotate.OpenAIPreset(cfg.OpenAIModel)
	default:
		return fmt.Errorf("%w: unknown provider %q (expected grok or openai)", config.ErrConfig, provider)
	}

	// Fail on missing configuration before any expensive stage runs.
	if err := cfg.RequireOCR(); err != nil {
		return err
	}
	if err := cfg.RequireLLM("openai"); err != nil {
		return err
	}
	if err := cfg.RequireLLM(provider); err != nil {
		return err
	}
	if !skipUpload {
		if err := cfg.RequireDB(); err != nil {
			return err
		}
	}

	ctx, cancel := signalContext(timeoutSecs, log)
	defer cancel()

	partial := false
	start := time.Now()

	// Stage 1: OCR + extraction.
	extractedPath := questionFilePath(cfg.JSONDir, exam, year, structuredSuffix)

	ocrService, err := newOCRService(ctx, cfg)
	if err != nil {
		return err
	}
	extractClient, err := newLLMClient(cfg, "openai")
	if err != nil {
		return err
	}
	pdfFile, _, err := openPDF(pdfPath, log)
	if err != nil {
		return err
	}
	extractor := extract.New(ocrService, extractClient, extract.Config{
		Exam:      exam,
		Year:      year,
		Paper:     paper,
		Section:   section,
		SourcePDF: pdfPath,
		ChunkSize: cfg.ChunkSize,
		Expected:  answerkey.Expected(exam, year),
		Model:     cfg.OpenAIModel,
	})
	report, err := extractor.ExtractFromPDF(ctx, pdfFile)
	pdfFile.Close()
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	if report.ChunksFailed > 0 || len(report.Missing) > 0 {
		partial = true
		log.Warn().
			Int("chunks_failed", report.ChunksFailed).
			Ints("missing", report.Missing).
			Msg("Extraction incomplete, use the repair subcommand to recover gaps")
	}

	// Stage 2: option separation and answer-key stamping.
	sepReport := options.SeparateAll(report.Questions)
	if len(sepReport.ToFix) > 0 {
		partial = true
		log.Warn().
			Ints("to_fix", sepReport.ToFix).
			Msg("Questions still missing structured options")
	}
	mismatches := answerkey.Stamp(report.Questions)
	if mismatches > 0 {
		log.Warn().
			Int("key_mismatches", mismatches).
			Msg("Extracted answers overridden by the official key")
	}

	env := models.NewEnvelope(exam, year, report.Questions)
	env.Metadata.Section = section
	if err := envelope.Write(extractedPath, env); err != nil {
		return err
	}
	log.Info().
		Str("file", extractedPath).
		Int("questions", len(report.Questions)).
		Msg("Extraction stage committed")

	// Stage 3: annotation with batch checkpointing.
	analyzedPath := questionFilePath(cfg.JSONDir, exam, year, preset.OutputSuffix())

	annotateClient, err := newLLMClient(cfg, provider)
	if err != nil {
		return err
	}
	annotator := annotate.New(annotateClient, preset, annotate.Config{
		BatchSize:  cfg.BatchSize,
		BatchDelay: time.Duration(cfg.BatchDelaySecs) * time.Second,
	})
	annotEnv := resumeCheckpoint(analyzedPath, env, log)
	summary, err := annotator.Run(ctx, annotEnv, analyzedPath)
	if err != nil {
		return fmt.Errorf("annotation failed: %w", err)
	}
	if summary.Fallback > 0 {
		partial = true
		log.Warn().
			Int("fallback", summary.Fallback).
			Msg("Questions annotated with fallback placeholders")
	}
	log.Info().
		Str("file", analyzedPath).
		Int("annotated", summary.Annotated).
		Int("fallback", summary.Fallback).
		Msg("Annotation stage committed")

	// Stage 4: database upload.
	if skipUpload {
		log.Info().
			Dur("duration", time.Since(start)).
			Msg("Pipeline finished (upload skipped)")
		if partial {
			return errors.Join(errPartial, fmt.Errorf("pipeline completed with gaps"))
		}
		return nil
	}

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if replace {
		if _, err := db.DeleteExisting(ctx, exam, year); err != nil {
			return err
		}
	}
	result, err := db.UpsertBatch(ctx, annotEnv.Questions, store.DefaultUploadBatchSize)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	if len(result.Failed) > 0 {
		partial = true
	}

	log.Info().
		Int("uploaded", result.Succeeded).
		Int("upload_failed", len(result.Failed)).
		Dur("duration", time.Since(start)).
		Msg("Pipeline finished")

	if partial {
		return errors.Join(errPartial, fmt.Errorf("pipeline completed with gaps"))
	}
	return nil
}
