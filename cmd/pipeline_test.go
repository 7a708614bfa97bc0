package cmd

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyqbank/internal/envelope"
	"pyqbank/pkg/models"
)

func pipelineQuestions(n int) []*models.Question {
	qs := make([]*models.Question, 0, n)
	for i := 1; i <= n; i++ {
		q := models.NewQuestion(models.ExamUPSC, 2024, i)
		q.QuestionText = "Question text"
		qs = append(qs, q)
	}
	return qs
}

func TestResumeCheckpointPrefersExistingFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "upsc_2024_grok_analyzed.json")

	saved := models.NewEnvelope(models.ExamUPSC, 2024, pipelineQuestions(4))
	saved.SetBatchProgress(2, 4)
	require.NoError(t, envelope.Write(out, saved))

	fresh := models.NewEnvelope(models.ExamUPSC, 2024, pipelineQuestions(4))
	got := resumeCheckpoint(out, fresh, zerolog.Nop())

	assert.Equal(t, "2/4", got.Metadata.BatchProgress)
	assert.Equal(t, 2, got.ParseBatchProgress())
}

func TestResumeCheckpointIgnoresMismatchedQuestionSet(t *testing.T) {
	out := filepath.Join(t.TempDir(), "upsc_2024_grok_analyzed.json")

	saved := models.NewEnvelope(models.ExamUPSC, 2024, pipelineQuestions(3))
	saved.SetBatchProgress(1, 3)
	require.NoError(t, envelope.Write(out, saved))

	fresh := models.NewEnvelope(models.ExamUPSC, 2024, pipelineQuestions(4))
	got := resumeCheckpoint(out, fresh, zerolog.Nop())

	assert.Same(t, fresh, got)
	assert.Equal(t, 0, got.ParseBatchProgress())
}

func TestResumeCheckpointWithoutFileReturnsFresh(t *testing.T) {
	out := filepath.Join(t.TempDir(), "upsc_2024_grok_analyzed.json")

	fresh := models.NewEnvelope(models.ExamUPSC, 2024, pipelineQuestions(2))
	got := resumeCheckpoint(out, fresh, zerolog.Nop())

	assert.Same(t, fresh, got)
}

func TestQuestionFilePathNaming(t *testing.T) {
	got := questionFilePath("json_files", models.ExamUPSC, 2024, structuredSuffix)
	assert.Equal(t, filepath.Join("json_files", "upsc_2024_structured_for_frontend.json"), got)
}
