// Package store uploads question records to the Postgres question bank.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"pyqbank/internal/logger"
	"pyqbank/pkg/models"
)

// ErrNoDatabase is returned when no connection string is configured.
var ErrNoDatabase = errors.New("no database URL configured")

// DefaultUploadBatchSize is the number of rows per upsert statement.
const DefaultUploadBatchSize = 25

// FailedRow records one row that could not be upserted.
type FailedRow struct {
	QuestionNumber int
	Err            error
}

// UploadResult summarizes one upsert run.
type UploadResult struct {
	Succeeded int
	Failed    []FailedRow
}

// Store wraps the question-bank table.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open connects to Postgres and ensures the table schema.
func Open(dsn string) (*Store, error) {
	const op = "Open"

	if dsn == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoDatabase)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := db.AutoMigrate(&QuestionRow{}); err != nil {
		return nil, fmt.Errorf("%s: migrate: %w", op, err)
	}
	return NewWithDB(db), nil
}

// NewWithDB wraps an existing connection, primarily for tests.
func NewWithDB(db *gorm.DB) *Store {
	return &Store{
		db:  db,
		log: logger.WithComponent("store"),
	}
}

// CheckExisting returns the question numbers already present for the
// exam and year, sorted ascending.
func (s *Store) CheckExisting(ctx context.Context, exam string, year int) ([]int, error) {
	var numbers []int
	err := s.db.WithContext(ctx).
		Model(&QuestionRow{}).
		Where("exam = ? AND year = ?", exam, year).
		Pluck("question_number", &numbers).Error
	if err != nil {
		return nil, fmt.Errorf("CheckExisting: %w", err)
	}
	sort.Ints(numbers)
	return numbers, nil
}

// DeleteExisting removes every row for the exam and year and returns
// how many were deleted.
func (s *Store) DeleteExisting(ctx context.Context, exam string, year int) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("exam = ? AND year = ?", exam, year).
		Delete(&QuestionRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("DeleteExisting: %w", res.Error)
	}
	s.log.Info().
		Str("exam", exam).
		Int("year", year).
		Int64("deleted", res.RowsAffected).
		Msg("Deleted existing rows")
	return res.RowsAffected, nil
}

// UpsertBatch writes the records in batches, inserting or updating on
// the (exam, year, question_number) key. Each batch commits in its own
// transaction; when a batch fails it is retried row by row so a single
// bad record cannot sink its batchmates.
func (s *Store) UpsertBatch(ctx context.Context, questions []*models.Question, batchSize int) (*UploadResult, error) {
	if batchSize <= 0 {
		batchSize = DefaultUploadBatchSize
	}

	result := &UploadResult{}
	rows := make([]*QuestionRow, 0, len(questions))
	for _, q := range questions {
		row, err := RowFromQuestion(q)
		if err != nil {
			result.Failed = append(result.Failed, FailedRow{QuestionNumber: q.QuestionNumber, Err: err})
			continue
		}
		rows = append(rows, row)
	}

	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		if err := s.upsert(ctx, batch); err == nil {
			result.Succeeded += len(batch)
			continue
		}

		// Batch failed, isolate the bad rows.
		for _, row := range batch {
			if err := s.upsert(ctx, []*QuestionRow{row}); err != nil {
				s.log.Warn().
					Err(err).
					Int("question_number", row.QuestionNumber).
					Msg("Row upsert failed")
				result.Failed = append(result.Failed, FailedRow{QuestionNumber: row.QuestionNumber, Err: err})
				continue
			}
			result.Succeeded++
		}
	}

	s.log.Info().
		Int("succeeded", result.Succeeded).
		Int("failed", len(result.Failed)).
		Msg("Upload completed")
	return result, nil
}

func (s *Store) upsert(ctx context.Context, rows []*QuestionRow) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "exam"}, {Name: "year"}, {Name: "question_number"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"paper", "section", "question_text", "options", "correct_answer",
				"subject", "primary_type", "secondary_type", "difficulty_level",
				"explanation", "learning_objectives", "question_strategy",
				"time_management", "options_analysis", "examiner_thought_process",
				"learning_insights", "tags", "key_concepts", "common_mistakes",
				"memory_hooks", "related_topics", "source_pdf", "page_range",
				"parsing_status", "updated_at",
			}),
		}).Create(rows).Error
	})
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
