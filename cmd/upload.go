package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pyqbank/internal/envelope"
	"pyqbank/internal/logger"
	"pyqbank/internal/store"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [question-file]",
	Short: "Upsert a question file into the Postgres question bank",
	Long: `Upload the questions to the pyq_question_table, inserting new rows
and updating existing ones on the (exam, year, question_number) key.

Uploading the same file twice is idempotent: the second run updates
rows in place and the row count does not change. With --replace all
existing rows for the file's exam and year are deleted first.`,
	Example: `  # Upsert, updating any existing rows
  pyqbank upload json_files/upsc_2024_merged_grok_analyzed.json

  # Wipe the exam year and re-insert from scratch
  pyqbank upload json_files/upsc_2024_merged_grok_analyzed.json --replace

  # Validate rows without touching the database
  pyqbank upload json_files/upsc_2024_merged_grok_analyzed.json --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().Bool("replace", false, "Delete existing rows for the exam and year before inserting")
	uploadCmd.Flags().Bool("dry-run", false, "Build and validate rows without writing to the database")
	uploadCmd.Flags().Int("batch-size", store.DefaultUploadBatchSize, "Rows per upsert statement")
	uploadCmd.Flags().Int("timeout", 600, "Overall timeout in seconds")
}

func runUpload(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("upload-cmd")

	replace, _ := cmd.Flags().GetBool("replace")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	inPath := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	env, err := envelope.Read(inPath)
	if err != nil {
		return err
	}
	exam, year := env.Metadata.Exam, env.Metadata.Year

	if dryRun {
		bad := 0
		for _, q := range env.Questions {
			if _, err := store.RowFromQuestion(q); err != nil {
				log.Warn().
					Err(err).
					Int("question_number", q.QuestionNumber).
					Msg("Row would fail")
				bad++
			}
		}
		log.Info().
			Int("rows", len(env.Questions)).
			Int("invalid", bad).
			Msg("Dry run finished, database untouched")
		if bad > 0 {
			return fmt.Errorf("%w: %d rows would fail", errPartial, bad)
		}
		return nil
	}

	if err := cfg.RequireDB(); err != nil {
		return err
	}

	ctx, cancel := signalContext(timeoutSecs, log)
	defer cancel()

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	existing, err := db.CheckExisting(ctx, exam, year)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		if replace {
			if _, err := db.DeleteExisting(ctx, exam, year); err != nil {
				return err
			}
		} else {
			log.Info().
				Str("exam", exam).
				Int("year", year).
				Int("existing", len(existing)).
				Msg("Existing rows found, upsert will update them")
		}
	}

	result, err := db.UpsertBatch(ctx, env.Questions, batchSize)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	log.Info().
		Str("file", inPath).
		Int("succeeded", result.Succeeded).
		Int("failed", len(result.Failed)).
		Msg("Upload run finished")

	if len(result.Failed) > 0 {
		return fmt.Errorf("%w: %d rows failed to upsert", errPartial, len(result.Failed))
	}
	return nil
}
