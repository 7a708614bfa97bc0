package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pyqbank/internal/answerkey"
	"pyqbank/internal/config"
	"pyqbank/internal/envelope"
	"pyqbank/internal/extract"
	"pyqbank/internal/logger"
)

var repairCmd = &cobra.Command{
	Use:   "repair [pdf-file]",
	Short: "Re-extract specific missing questions from known pages",
	Long: `Recover questions an extraction run missed. The operator names each
missing question number together with the pages believed to contain
it; the PDF is OCR'd once and one narrowly scoped LLM call is issued
per group of targets sharing a page list.

Recovered questions are merged into the input question file. Numbers
still missing after the run are reported so the operator can widen
the page ranges and retry.`,
	Example: `  # Questions 29 and 57 are missing; 29 is on pages 12-13, 57 on page 23
  pyqbank repair upsc_2024_gs1.pdf --exam UPSC --year 2024 \
      --in json_files/upsc_2024_structured_for_frontend.json \
      --targets "29:12,13;57:23"`,
	Args: cobra.ExactArgs(1),
	RunE: runRepair,
}

func init() {
	rootCmd.AddCommand(repairCmd)

	repairCmd.Flags().String("exam", "", "Exam identifier: UPSC or UPPSC (required)")
	repairCmd.Flags().Int("year", 0, "Exam year (required)")
	repairCmd.Flags().String("in", "", "Question file to repair (required)")
	repairCmd.Flags().StringP("output", "o", "", "Output JSON file (default: overwrite --in)")
	repairCmd.Flags().String("targets", "", `Targets as "number:page,page;number:page" (required)`)
	repairCmd.Flags().Int("timeout", 1800, "Overall timeout in seconds")
	_ = repairCmd.MarkFlagRequired("exam")
	_ = repairCmd.MarkFlagRequired("year")
	_ = repairCmd.MarkFlagRequired("in")
	_ = repairCmd.MarkFlagRequired("targets")
}

func runRepair(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("repair-cmd")

	exam, _ := cmd.Flags().GetString("exam")
	year, _ := cmd.Flags().GetInt("year")
	inPath, _ := cmd.Flags().GetString("in")
	outputPath, _ := cmd.Flags().GetString("output")
	targetSpec, _ := cmd.Flags().GetString("targets")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	pdfPath := args[0]

	if err := validateExamYear(exam, year); err != nil {
		return err
	}
	targets, err := extract.ParseTargets(targetSpec)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrConfig, err)
	}
	if outputPath == "" {
		outputPath = inPath
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	env, err := envelope.Read(inPath)
	if err != nil {
		return err
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
		SourcePDF: pdfPath,
		ChunkSize: cfg.ChunkSize,
		Model:     cfg.OpenAIModel,
	})
	repairer := extract.NewRepairer(extractor)

	report, err := repairer.Repair(ctx, pdfFile, targets)
	if err != nil {
		return fmt.Errorf("repair failed: %w", err)
	}

	answerkey.Stamp(report.Recovered)
	env.Questions = append(env.Questions, report.Recovered...)
	env.Questions, _ = extract.Dedupe(env.Questions)

	if err := envelope.Write(outputPath, env); err != nil {
		return err
	}

	log.Info().
		Str("output_file", outputPath).
		Int("recovered", len(report.Recovered)).
		Ints("unrecovered", report.Unrecovered).
		Msg("Repair run finished")

	if len(report.Unrecovered) > 0 {
		return fmt.Errorf("%w: %d questions still missing: %v",
			errPartial, len(report.Unrecovered), report.Unrecovered)
	}
	return nil
}
