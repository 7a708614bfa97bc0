package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pyqbank/internal/annotate"
	"pyqbank/internal/config"
	"pyqbank/internal/envelope"
	"pyqbank/internal/logger"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate [question-file]",
	Short: "Attach the pedagogical analysis to every question",
	Long: `Annotate each question with the two-tier analysis schema, batching
several questions per LLM call. The annotated file is rewritten after
every batch, so a killed run resumes from the last completed batch
when re-launched with the same arguments.

Questions whose annotation cannot be produced (provider outage,
unparseable reply) receive a placeholder block with parsing_status
"failed" and keep the raw reply for manual recovery; the run itself
never aborts on a bad batch.`,
	Example: `  # Annotate with Grok (default)
  pyqbank annotate json_files/upsc_2024_merged.json

  # Annotate with OpenAI instead
  pyqbank annotate json_files/upsc_2024_merged.json --provider openai`,
	Args: cobra.ExactArgs(1),
	RunE: runAnnotate,
}

func init() {
	rootCmd.AddCommand(annotateCmd)

	annotateCmd.Flags().String("provider", "grok", "LLM provider: grok or openai")
	annotateCmd.Flags().StringP("output", "o", "", "Output JSON file (default: <input>_<provider>_analyzed.json)")
	annotateCmd.Flags().Int("timeout", 0, "Overall timeout in seconds (0 = none)")
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("annotate-cmd")

	provider, _ := cmd.Flags().GetString("provider")
	outputPath, _ := cmd.Flags().GetString("output")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	inPath := args[0]

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
	if outputPath == "" {
		outputPath = annotatedPath(inPath, preset)
	}

	llmClient, err := newLLMClient(cfg, provider)
	if err != nil {
		return err
	}

	// Resume from the checkpointed output when it exists; otherwise
	// start from the input file.
	readPath := inPath
	if _, statErr := os.Stat(outputPath); statErr == nil {
		readPath = outputPath
		log.Info().
			Str("file", outputPath).
			Msg("Found existing output file, resuming")
	}
	env, err := envelope.Read(readPath)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(timeoutSecs, log)
	defer cancel()

	annotator := annotate.New(llmClient, preset, annotate.Config{
		BatchSize:  cfg.BatchSize,
		BatchDelay: time.Duration(cfg.BatchDelaySecs) * time.Second,
	})

	summary, err := annotator.Run(ctx, env, outputPath)
	if err != nil {
		return fmt.Errorf("annotation failed: %w", err)
	}

	log.Info().
		Str("output_file", outputPath).
		Int("annotated", summary.Annotated).
		Int("fallback", summary.Fallback).
		Int("resumed", summary.Resumed).
		Int("batches", summary.Batches).
		Msg("Annotation run finished")

	if summary.Fallback > 0 {
		return fmt.Errorf("%w: %d questions got fallback annotations", errPartial, summary.Fallback)
	}
	return nil
}

// annotatedPath derives the conventional output name, e.g.
// upsc_2024_merged.json -> upsc_2024_merged_grok_analyzed.json.
func annotatedPath(inPath string, preset annotate.Preset) string {
	base := strings.TrimSuffix(inPath, ".json")
	return fmt.Sprintf("%s_%s.json", base, preset.OutputSuffix())
}
