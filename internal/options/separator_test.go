package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyqbank/pkg/models"
)

func TestSeparateParenthesisedMarkers(t *testing.T) {
	q := models.NewQuestion(models.ExamUPSC, 2024, 7)
	q.QuestionText = "What is 2+2? (a) 3 (b) 4 (c) 5 (d) 22"

	require.True(t, Separate(q))

	assert.Equal(t, "What is 2+2?", q.QuestionText)
	assert.True(t, q.OptionsExtracted)
	require.NoError(t, q.Options.Validate())

	for letter, want := range map[string]string{"A": "3", "B": "4", "C": "5", "D": "22"} {
		got, ok := q.Options.Get(letter)
		require.True(t, ok, letter)
		assert.Equal(t, want, got)
	}
}

func TestSeparateLetterParenMarkers(t *testing.T) {
	q := models.NewQuestion(models.ExamUPPSC, 2024, 12)
	q.QuestionText = "Which river flows through the city? A) Ganga B) Yamuna C) Gomti D) Saryu"

	require.True(t, Separate(q))

	assert.Equal(t, "Which river flows through the city?", q.QuestionText)
	got, _ := q.Options.Get("C")
	assert.Equal(t, "Gomti", got)
}

func TestSeparateMultilineOptions(t *testing.T) {
	q := models.NewQuestion(models.ExamUPSC, 2023, 3)
	q.QuestionText = "Consider the following statements.\nWhich is correct?\n(a) 1 only\n(b) 2 only\n(c) Both 1 and 2\n(d) Neither 1 nor 2"

	require.True(t, Separate(q))

	assert.Equal(t, "Consider the following statements. Which is correct?", q.QuestionText)
	got, _ := q.Options.Get("D")
	assert.Equal(t, "Neither 1 nor 2", got)
}

func TestSeparateIsIdempotent(t *testing.T) {
	q := models.NewQuestion(models.ExamUPSC, 2024, 1)
	q.QuestionText = "What is 2+2? (a) 3 (b) 4 (c) 5 (d) 22"

	require.True(t, Separate(q))
	textAfterFirst := q.QuestionText

	assert.False(t, Separate(q))
	assert.Equal(t, textAfterFirst, q.QuestionText)
}

func TestSeparateLeavesUnrecognisedTextAlone(t *testing.T) {
	q := models.NewQuestion(models.ExamUPSC, 2024, 2)
	q.QuestionText = "A question whose options were lost by the scanner."

	assert.False(t, Separate(q))
	assert.Equal(t, 0, q.Options.Len())
}

func TestSeparateAllReport(t *testing.T) {
	ok := models.NewQuestion(models.ExamUPSC, 2024, 1)
	ok.QuestionText = "Already structured question text here."
	ok.Options = models.NewOptionMap("w", "x", "y", "z")

	embedded := models.NewQuestion(models.ExamUPSC, 2024, 2)
	embedded.QuestionText = "What is 2+2? (a) 3 (b) 4 (c) 5 (d) 22"

	broken := models.NewQuestion(models.ExamUPSC, 2024, 3)
	broken.QuestionText = "No recognisable markers in this one."

	report := SeparateAll([]*models.Question{ok, embedded, broken})

	assert.Equal(t, 1, report.AlreadyOK)
	assert.Equal(t, 1, report.Separated)
	assert.Equal(t, []int{3}, report.ToFix)
}
