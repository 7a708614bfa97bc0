package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Exam identifiers for the supported examination bodies.
const (
	ExamUPSC  = "UPSC"
	ExamUPPSC = "UPPSC"
)

// AnswerUnknown is the sentinel correct-answer value used when no
// authoritative answer key is available for a question.
const AnswerUnknown = "Unknown"

// Difficulty levels assigned by the annotator.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// MinQuestionTextLen is the minimum cleaned question text length for a
// record to be considered valid.
const MinQuestionTextLen = 10

// Question is the canonical record for one multiple-choice question.
//
// A question is created by the extractor, normalized by the option
// separator, stamped by the answer-key store, merged across partial
// files, annotated, and finally upserted into the database keyed by
// (exam, year, question_number).
type Question struct {
	// Core identifiers
	ID             string `json:"id"`
	Exam           string `json:"exam"`
	Year           int    `json:"year"`
	Paper          string `json:"paper,omitempty"`
	Section        string `json:"section,omitempty"`
	QuestionNumber int    `json:"question_number"`

	// Content
	QuestionText  string    `json:"question_text"`
	Options       OptionMap `json:"options"`
	CorrectAnswer string    `json:"correct_answer"`

	// Taxonomy (filled by the annotator)
	Subject         string `json:"subject,omitempty"`
	PrimaryType     string `json:"primary_type,omitempty"`
	SecondaryType   string `json:"secondary_type,omitempty"`
	DifficultyLevel string `json:"difficulty_level,omitempty"`

	// Provenance
	SourcePDF        string `json:"source_pdf,omitempty"`
	PageRange        string `json:"page_range,omitempty"`
	ExtractionOrder  int    `json:"extraction_order,omitempty"`
	ChunkNumber      int    `json:"chunk_number,omitempty"`
	ExtractionDate   string `json:"extraction_date,omitempty"`
	OptionsExtracted bool   `json:"options_extracted,omitempty"`
	MergeTimestamp   string `json:"merge_timestamp,omitempty"`
	SourceFile       string `json:"source_file,omitempty"`

	// Annotation block (absent until the annotator runs)
	StudentFacingAnalysis   *StudentAnalysis `json:"student_facing_analysis,omitempty"`
	DetailedBackendAnalysis *BackendAnalysis `json:"detailed_backend_analysis,omitempty"`
	ParsingStatus           string           `json:"parsing_status,omitempty"`
	RawLLMResponse          string           `json:"raw_llm_response,omitempty"`
	GrokAnalysisDate        string           `json:"grok_analysis_date,omitempty"`
	OpenAIAnalysisDate      string           `json:"openai_analysis_date,omitempty"`
}

// NewQuestion creates a question with a fresh stable ID and extraction
// timestamp. The ID is preserved across later pipeline stages.
func NewQuestion(exam string, year, number int) *Question {
	return &Question{
		ID:             uuid.NewString(),
		Exam:           exam,
		Year:           year,
		QuestionNumber: number,
		CorrectAnswer:  AnswerUnknown,
		ExtractionDate: time.Now().UTC().Format(time.RFC3339),
	}
}

// Validate checks the record invariants. Options are only checked when
// present: a freshly extracted record may carry its options embedded in
// the question text until the separator has run.
func (q *Question) Validate() error {
	if q.Exam != ExamUPSC && q.Exam != ExamUPPSC {
		return fmt.Errorf("invalid exam: %q", q.Exam)
	}
	if q.QuestionNumber <= 0 {
		return fmt.Errorf("question_number must be positive, got %d", q.QuestionNumber)
	}
	if len(strings.TrimSpace(q.QuestionText)) < MinQuestionTextLen {
		return fmt.Errorf("question_text too short (%d chars)", len(strings.TrimSpace(q.QuestionText)))
	}
	if q.Options.Len() > 0 {
		if err := q.Options.Validate(); err != nil {
			return err
		}
	}
	if q.CorrectAnswer != "" && q.CorrectAnswer != AnswerUnknown {
		if !isOptionLetter(q.CorrectAnswer) {
			return fmt.Errorf("invalid correct_answer: %q", q.CorrectAnswer)
		}
		if q.Options.Len() > 0 && !q.Options.Has(q.CorrectAnswer) {
			return fmt.Errorf("correct_answer %q is not an option key", q.CorrectAnswer)
		}
	}
	return nil
}

// HasCompleteOptions reports whether the record carries exactly four
// non-empty options, one per letter.
func (q *Question) HasCompleteOptions() bool {
	return q.Options.Validate() == nil
}

// Annotated reports whether the full annotation block is present.
func (q *Question) Annotated() bool {
	return q.StudentFacingAnalysis != nil && q.DetailedBackendAnalysis != nil
}

func isOptionLetter(s string) bool {
	switch s {
	case "A", "B", "C", "D":
		return true
	}
	return false
}
