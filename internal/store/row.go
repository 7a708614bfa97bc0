package store

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/datatypes"

	"pyqbank/pkg/models"
)

// Column widths for sized varchar columns. Longer values are truncated
// with an ellipsis rather than rejected by the database.
const (
	maxSubjectLen    = 100
	maxTypeLen       = 100
	maxDifficultyLen = 20
	maxAnswerLen     = 10
	maxSourceLen     = 255
)

// QuestionRow is the database shape of a question in pyq_question_table.
// Structured annotation fields are stored as JSONB so the platform can
// query into them.
type QuestionRow struct {
	ID             string `gorm:"column:id;primaryKey"`
	Exam           string `gorm:"column:exam;uniqueIndex:idx_exam_year_qnum;index:idx_exam_year"`
	Year           int    `gorm:"column:year;uniqueIndex:idx_exam_year_qnum;index:idx_exam_year"`
	QuestionNumber int    `gorm:"column:question_number;uniqueIndex:idx_exam_year_qnum"`
	Paper          string `gorm:"column:paper"`
	Section        string `gorm:"column:section"`

	QuestionText  string         `gorm:"column:question_text;type:text"`
	Options       datatypes.JSON `gorm:"column:options;type:jsonb"`
	CorrectAnswer string         `gorm:"column:correct_answer;size:10"`

	Subject         string `gorm:"column:subject;size:100"`
	PrimaryType     string `gorm:"column:primary_type;size:100"`
	SecondaryType   string `gorm:"column:secondary_type;size:100"`
	DifficultyLevel string `gorm:"column:difficulty_level;size:20"`

	Explanation        string `gorm:"column:explanation;type:text"`
	LearningObjectives string `gorm:"column:learning_objectives;type:text"`
	QuestionStrategy   string `gorm:"column:question_strategy;type:text"`
	TimeManagement     string `gorm:"column:time_management;size:100"`

	OptionsAnalysis        datatypes.JSON `gorm:"column:options_analysis;type:jsonb"`
	ExaminerThoughtProcess datatypes.JSON `gorm:"column:examiner_thought_process;type:jsonb"`
	LearningInsights       datatypes.JSON `gorm:"column:learning_insights;type:jsonb"`
	Tags                   datatypes.JSON `gorm:"column:tags;type:jsonb"`
	KeyConcepts            datatypes.JSON `gorm:"column:key_concepts;type:jsonb"`
	CommonMistakes         datatypes.JSON `gorm:"column:common_mistakes;type:jsonb"`
	MemoryHooks            datatypes.JSON `gorm:"column:memory_hooks;type:jsonb"`
	RelatedTopics          datatypes.JSON `gorm:"column:related_topics;type:jsonb"`

	SourcePDF     string `gorm:"column:source_pdf;size:255"`
	PageRange     string `gorm:"column:page_range;size:50"`
	ParsingStatus string `gorm:"column:parsing_status;size:20"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table used by the learning platform.
func (QuestionRow) TableName() string { return "pyq_question_table" }

// RowFromQuestion flattens a question record into its database row.
// Sized columns are truncated, annotation sub-objects are serialized to
// JSONB, and absent annotation tiers leave their columns NULL so
// database defaults apply.
func RowFromQuestion(q *models.Question) (*QuestionRow, error) {
	optionsJSON, err := json.Marshal(q.Options)
	if err != nil {
		return nil, err
	}

	row := &QuestionRow{
		ID:             q.ID,
		Exam:           q.Exam,
		Year:           q.Year,
		QuestionNumber: q.QuestionNumber,
		Paper:          q.Paper,
		Section:        q.Section,

		QuestionText:  q.QuestionText,
		Options:       optionsJSON,
		CorrectAnswer: truncate(q.CorrectAnswer, maxAnswerLen),

		Subject:         truncate(q.Subject, maxSubjectLen),
		PrimaryType:     truncate(q.PrimaryType, maxTypeLen),
		SecondaryType:   truncate(q.SecondaryType, maxTypeLen),
		DifficultyLevel: truncate(q.DifficultyLevel, maxDifficultyLen),

		SourcePDF:     truncate(q.SourcePDF, maxSourceLen),
		PageRange:     truncate(q.PageRange, 50),
		ParsingStatus: q.ParsingStatus,
	}

	if sa := q.StudentFacingAnalysis; sa != nil {
		row.Explanation = sa.Explanation
		row.LearningObjectives = sa.LearningObjectives
		row.QuestionStrategy = sa.QuestionStrategy
		row.TimeManagement = truncate(sa.TimeManagement, 100)
		if row.DifficultyLevel == "" {
			row.DifficultyLevel = truncate(sa.DifficultyLevel, maxDifficultyLen)
		}
		if row.KeyConcepts, err = marshalJSONB(sa.KeyConcepts); err != nil {
			return nil, err
		}
	}

	if ba := q.DetailedBackendAnalysis; ba != nil {
		if row.OptionsAnalysis, err = marshalJSONB(ba.OptionsAnalysis); err != nil {
			return nil, err
		}
		if row.ExaminerThoughtProcess, err = marshalJSONB(ba.ExaminerThoughtProcess); err != nil {
			return nil, err
		}
		if row.LearningInsights, err = marshalJSONB(ba.LearningInsights); err != nil {
			return nil, err
		}
		if row.CommonMistakes, err = marshalJSONB(ba.LearningInsights.CommonMistakes); err != nil {
			return nil, err
		}
		if row.MemoryHooks, err = marshalJSONB(ba.LearningInsights.MemoryHooks); err != nil {
			return nil, err
		}
		if row.RelatedTopics, err = marshalJSONB(ba.LearningInsights.RelatedTopics); err != nil {
			return nil, err
		}
		if row.Tags, err = marshalJSONB(tagsFromBackend(ba)); err != nil {
			return nil, err
		}
		if len(row.KeyConcepts) == 0 {
			if row.KeyConcepts, err = marshalJSONB(ba.LearningInsights.KeyConcepts); err != nil {
				return nil, err
			}
		}
	}

	return row, nil
}

// tagsFromBackend derives flat search tags from the taxonomy fields.
func tagsFromBackend(ba *models.BackendAnalysis) []string {
	var tags []string
	seen := make(map[string]bool)
	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		if tag == "" || tag == "Unknown" || seen[strings.ToLower(tag)] {
			return
		}
		seen[strings.ToLower(tag)] = true
		tags = append(tags, tag)
	}
	add(ba.QuestionNature.PrimaryType)
	add(ba.QuestionNature.SecondaryType)
	for _, topic := range ba.LearningInsights.RelatedTopics {
		add(topic)
	}
	return tags
}

// marshalJSONB serializes a value for a JSONB column, returning nil for
// empty collections so the column stays NULL.
func marshalJSONB(v any) (datatypes.JSON, error) {
	switch t := v.(type) {
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
	case map[string]models.OptionAnalysis:
		if len(t) == 0 {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// truncate shortens s to at most max bytes, never cutting inside a
// multi-byte rune: Postgres rejects strings with broken UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return cutOnRuneStart(s, max)
	}
	return cutOnRuneStart(s, max-3) + "..."
}

func cutOnRuneStart(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
