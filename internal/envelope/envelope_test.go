package envelope

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyqbank/pkg/models"
)

func TestWriteReadRoundTrip(t *testing.T) {
	q := models.NewQuestion(models.ExamUPSC, 2024, 1)
	q.QuestionText = "Which schedule lists the official languages?"
	q.Options = models.NewOptionMap("Seventh", "Eighth", "Ninth", "Tenth")
	q.CorrectAnswer = "B"

	env := models.NewEnvelope(models.ExamUPSC, 2024, []*models.Question{q})
	env.SetBatchProgress(1, 1)

	path := filepath.Join(t.TempDir(), "out", "upsc_2024.json")
	require.NoError(t, Write(path, env))

	back, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, models.ExamUPSC, back.Metadata.Exam)
	assert.Equal(t, 1, back.Metadata.TotalQuestions)
	assert.Equal(t, "1/1", back.Metadata.BatchProgress)
	require.Len(t, back.Questions, 1)
	assert.Equal(t, q.ID, back.Questions[0].ID)
	assert.Equal(t, "B", back.Questions[0].CorrectAnswer)
	got, _ := back.Questions[0].Options.Get("B")
	assert.Equal(t, "Eighth", got)
}

func TestWriteRefreshesMetadata(t *testing.T) {
	env := models.NewEnvelope(models.ExamUPPSC, 2024, nil)
	env.Questions = append(env.Questions, models.NewQuestion(models.ExamUPPSC, 2024, 1))
	env.Metadata.TotalQuestions = 0 // stale

	path := filepath.Join(t.TempDir(), "uppsc_2024.json")
	require.NoError(t, Write(path, env))

	back, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, 1, back.Metadata.TotalQuestions)
	assert.NotEmpty(t, back.Metadata.LastUpdated)
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.json")

	env := models.NewEnvelope(models.ExamUPSC, 2024, nil)
	require.NoError(t, Write(path, env))
	require.NoError(t, Write(path, env))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "file.json", entries[0].Name())
}

func TestReadIgnoresUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.json")
	data := `{
  "metadata": {"exam": "UPSC", "year": 2023, "legacy_field": true},
  "questions": [],
  "extra_top_level": {"ignored": 1}
}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	env, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, 2023, env.Metadata.Year)
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "absent.json"))
}
