package store

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyqbank/pkg/models"
)

func annotatedQuestion() *models.Question {
	q := models.NewQuestion(models.ExamUPSC, 2024, 42)
	q.QuestionText = "Which article guarantees the right to constitutional remedies?"
	q.Options = models.NewOptionMap("Article 14", "Article 21", "Article 32", "Article 368")
	q.CorrectAnswer = "C"
	q.SourcePDF = "upsc_2024_gs1.pdf"
	q.ParsingStatus = models.ParsingStatusSuccess

	ann := models.FallbackAnnotation(q)
	ann.StudentFacingAnalysis.Explanation = "Article 32 is the heart of the Constitution."
	ann.StudentFacingAnalysis.KeyConcepts = []string{"Fundamental Rights"}
	ann.DetailedBackendAnalysis.QuestionNature.PrimaryType = "Factual Recall"
	ann.DetailedBackendAnalysis.LearningInsights.RelatedTopics = []string{"Writs"}
	q.StudentFacingAnalysis = ann.StudentFacingAnalysis
	q.DetailedBackendAnalysis = ann.DetailedBackendAnalysis
	return q
}

func TestRowFromQuestionFlattensAnnotation(t *testing.T) {
	q := annotatedQuestion()

	row, err := RowFromQuestion(q)
	require.NoError(t, err)

	assert.Equal(t, q.ID, row.ID)
	assert.Equal(t, models.ExamUPSC, row.Exam)
	assert.Equal(t, 2024, row.Year)
	assert.Equal(t, 42, row.QuestionNumber)
	assert.Equal(t, "C", row.CorrectAnswer)
	assert.Equal(t, "Article 32 is the heart of the Constitution.", row.Explanation)

	var opts map[string]string
	require.NoError(t, json.Unmarshal(row.Options, &opts))
	assert.Equal(t, "Article 32", opts["C"])

	var oa map[string]models.OptionAnalysis
	require.NoError(t, json.Unmarshal(row.OptionsAnalysis, &oa))
	require.Len(t, oa, 4)
	assert.Equal(t, models.OptionTypeCorrect, oa["C"].Type)

	var concepts []string
	require.NoError(t, json.Unmarshal(row.KeyConcepts, &concepts))
	assert.Equal(t, []string{"Fundamental Rights"}, concepts)

	var tags []string
	require.NoError(t, json.Unmarshal(row.Tags, &tags))
	assert.Contains(t, tags, "Factual Recall")
	assert.Contains(t, tags, "Writs")
	assert.NotContains(t, tags, "Unknown")
}

func TestRowFromQuestionWithoutAnnotation(t *testing.T) {
	q := models.NewQuestion(models.ExamUPPSC, 2024, 7)
	q.QuestionText = "A question uploaded before annotation ran."
	q.Options = models.NewOptionMap("w", "x", "y", "z")

	row, err := RowFromQuestion(q)
	require.NoError(t, err)

	// Annotation columns stay NULL so database defaults apply.
	assert.Nil(t, row.OptionsAnalysis)
	assert.Nil(t, row.Tags)
	assert.Nil(t, row.KeyConcepts)
	assert.Empty(t, row.Explanation)
}

func TestRowFromQuestionTruncatesSizedColumns(t *testing.T) {
	q := annotatedQuestion()
	q.Subject = strings.Repeat("s", 150)
	q.SourcePDF = strings.Repeat("p", 300)

	row, err := RowFromQuestion(q)
	require.NoError(t, err)

	assert.Len(t, row.Subject, 100)
	assert.True(t, strings.HasSuffix(row.Subject, "..."))
	assert.Len(t, row.SourcePDF, 255)
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	q := annotatedQuestion()
	// Devanagari: 3 bytes per rune, so the 97-byte cut point lands
	// inside a rune and must be walked back.
	q.Subject = strings.Repeat("भारतीय राजव्यवस्था ", 10)

	row, err := RowFromQuestion(q)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(row.Subject), maxSubjectLen)
	assert.True(t, utf8.ValidString(row.Subject))
	assert.True(t, strings.HasSuffix(row.Subject, "..."))
}

func TestTagsDeduplicate(t *testing.T) {
	ba := &models.BackendAnalysis{}
	ba.QuestionNature.PrimaryType = "Polity"
	ba.QuestionNature.SecondaryType = "polity"
	ba.LearningInsights.RelatedTopics = []string{"Writs", "Polity", ""}

	tags := tagsFromBackend(ba)
	assert.Equal(t, []string{"Polity", "Writs"}, tags)
}
