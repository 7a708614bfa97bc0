package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQuestionDefaults(t *testing.T) {
	q := NewQuestion(ExamUPSC, 2024, 7)

	assert.NotEmpty(t, q.ID)
	assert.Equal(t, ExamUPSC, q.Exam)
	assert.Equal(t, 2024, q.Year)
	assert.Equal(t, 7, q.QuestionNumber)
	assert.Equal(t, AnswerUnknown, q.CorrectAnswer)
	assert.NotEmpty(t, q.ExtractionDate)
}

func TestQuestionValidate(t *testing.T) {
	q := NewQuestion(ExamUPSC, 2024, 1)
	q.QuestionText = "Which article of the Constitution deals with this?"
	q.Options = NewOptionMap("Article 14", "Article 19", "Article 21", "Article 32")
	q.CorrectAnswer = "C"
	assert.NoError(t, q.Validate())

	t.Run("rejects unknown exam", func(t *testing.T) {
		bad := *q
		bad.Exam = "SSC"
		assert.Error(t, bad.Validate())
	})

	t.Run("rejects short question text", func(t *testing.T) {
		bad := *q
		bad.QuestionText = "short"
		assert.Error(t, bad.Validate())
	})

	t.Run("rejects answer outside options", func(t *testing.T) {
		bad := *q
		bad.CorrectAnswer = "E"
		assert.Error(t, bad.Validate())
	})

	t.Run("accepts Unknown answer", func(t *testing.T) {
		ok := *q
		ok.CorrectAnswer = AnswerUnknown
		assert.NoError(t, ok.Validate())
	})

	t.Run("accepts missing options before separation", func(t *testing.T) {
		ok := NewQuestion(ExamUPPSC, 2024, 2)
		ok.QuestionText = "Options still embedded in this question text (a) one (b) two"
		assert.NoError(t, ok.Validate())
	})
}

func TestFallbackAnnotationIsFullyShaped(t *testing.T) {
	q := NewQuestion(ExamUPSC, 2024, 3)
	q.CorrectAnswer = "B"

	ann := FallbackAnnotation(q)
	require.NotNil(t, ann.StudentFacingAnalysis)
	require.NotNil(t, ann.DetailedBackendAnalysis)

	assert.NotEmpty(t, ann.StudentFacingAnalysis.Explanation)
	assert.Equal(t, DifficultyMedium, ann.StudentFacingAnalysis.DifficultyLevel)

	oa := ann.DetailedBackendAnalysis.OptionsAnalysis
	require.Len(t, oa, 4)
	assert.Equal(t, OptionTypeCorrect, oa["B"].Type)
	assert.Equal(t, OptionTypeDistractor, oa["A"].Type)

	// Collections are empty, never nil, so JSON encodes [] not null.
	assert.NotNil(t, ann.StudentFacingAnalysis.KeyConcepts)
	assert.NotNil(t, ann.DetailedBackendAnalysis.LearningInsights.KeyConcepts)
}

func TestEnvelopeBatchProgress(t *testing.T) {
	questions := []*Question{
		NewQuestion(ExamUPSC, 2024, 1),
		NewQuestion(ExamUPSC, 2024, 2),
		NewQuestion(ExamUPSC, 2024, 3),
	}
	env := NewEnvelope(ExamUPSC, 2024, questions)

	assert.Equal(t, 0, env.ParseBatchProgress())

	env.SetBatchProgress(2, 3)
	assert.Equal(t, "2/3", env.Metadata.BatchProgress)
	assert.Equal(t, 2, env.ParseBatchProgress())

	env.Metadata.BatchProgress = "garbage"
	assert.Equal(t, 0, env.ParseBatchProgress())

	env.Metadata.BatchProgress = "9/3"
	assert.Equal(t, 0, env.ParseBatchProgress())
}
