package annotate_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyqbank/internal/annotate"
	"pyqbank/internal/envelope"
	"pyqbank/internal/llm"
	"pyqbank/pkg/models"
)

type stubLLM struct {
	reply string
	err   error
	calls int
}

func (s *stubLLM) Complete(_ context.Context, _ llm.Request) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func annotationJSON() string {
	return `{
  "student_facing_analysis": {
    "explanation": "Option B is correct because of the constitutional provision.",
    "learning_objectives": "Understand the provision.",
    "question_strategy": "Eliminate the obviously wrong options first.",
    "difficulty_level": "Hard",
    "key_concepts": ["Polity"],
    "time_management": "1-2 minutes"
  },
  "detailed_backend_analysis": {
    "question_nature": {
      "primary_type": "Factual Recall",
      "secondary_type": "Constitutional Provisions",
      "difficulty_reason": "Requires exact article knowledge.",
      "knowledge_requirement": "NCERT Polity"
    },
    "examiner_thought_process": {
      "testing_objective": "Test precise recall.",
      "question_design_strategy": "Similar-sounding articles as distractors.",
      "trap_setting": "Adjacent article numbers.",
      "discrimination_potential": "High"
    },
    "options_analysis": {
      "A": {"type": "plausible_distractor", "reason": "Adjacent article."},
      "B": {"type": "correct_answer", "reason": "Exact provision."},
      "C": {"type": "obvious_wrong", "reason": "Different part entirely."},
      "D": {"type": "plausible_distractor", "reason": "Commonly confused."}
    },
    "learning_insights": {
      "key_concepts": ["Fundamental Rights"],
      "common_mistakes": ["Confusing articles"],
      "elimination_technique_semi_knowledge": "Recall the part structure.",
      "elimination_technique_safe_guess": "Prefer the famous article.",
      "memory_hooks": ["21 = life"],
      "related_topics": ["Judicial review"]
    },
    "difficulty_level": "Hard",
    "time_management": "1-2 minutes",
    "confidence_calibration": "Answer only if certain.",
    "strength_indicators": ["Strong polity base"],
    "weakness_indicators": ["Weak article recall"],
    "remediation_topics": ["Part III"],
    "advanced_connections": ["Basic structure doctrine"]
  }
}`
}

func batchReply(n int) string {
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, fmt.Sprintf("%q: %s", fmt.Sprintf("question_%d", i), annotationJSON()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func testQuestions(n int) []*models.Question {
	out := make([]*models.Question, 0, n)
	for i := 1; i <= n; i++ {
		q := models.NewQuestion(models.ExamUPSC, 2024, i)
		q.QuestionText = fmt.Sprintf("Question number %d text for annotation?", i)
		q.Options = models.NewOptionMap("one", "two", "three", "four")
		q.CorrectAnswer = "B"
		out = append(out, q)
	}
	return out
}

func TestRunAnnotatesAndCheckpoints(t *testing.T) {
	client := &stubLLM{reply: batchReply(2)}
	annotator := annotate.New(client, annotate.GrokPreset(""), annotate.Config{
		BatchSize:  2,
		BatchDelay: time.Millisecond,
	})

	env := models.NewEnvelope(models.ExamUPSC, 2024, testQuestions(3))
	outPath := filepath.Join(t.TempDir(), "out.json")

	summary, err := annotator.Run(context.Background(), env, outPath)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Annotated)
	assert.Equal(t, 0, summary.Fallback)
	assert.Equal(t, 2, summary.Batches)
	assert.Equal(t, 2, client.calls)

	for _, q := range env.Questions {
		require.True(t, q.Annotated(), "question %d", q.QuestionNumber)
		assert.Equal(t, models.ParsingStatusSuccess, q.ParsingStatus)
		assert.Equal(t, "Hard", q.DifficultyLevel)
		assert.Equal(t, "Factual Recall", q.PrimaryType)
		assert.NotEmpty(t, q.GrokAnalysisDate)
		assert.Empty(t, q.OpenAIAnalysisDate)
	}

	saved, err := envelope.Read(outPath)
	require.NoError(t, err)
	assert.Equal(t, "3/3", saved.Metadata.BatchProgress)
	assert.Equal(t, "grok_batch", saved.Metadata.AnalysisMethod)
	assert.True(t, saved.Questions[2].Annotated())
}

func TestRunAppliesFallbackWhenProviderFails(t *testing.T) {
	client := &stubLLM{err: errors.New("provider down")}
	annotator := annotate.New(client, annotate.GrokPreset(""), annotate.Config{
		BatchSize:  2,
		BatchDelay: time.Millisecond,
	})

	env := models.NewEnvelope(models.ExamUPSC, 2024, testQuestions(3))
	outPath := filepath.Join(t.TempDir(), "out.json")

	summary, err := annotator.Run(context.Background(), env, outPath)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Annotated)
	assert.Equal(t, 3, summary.Fallback)

	for _, q := range env.Questions {
		require.True(t, q.Annotated())
		assert.Equal(t, models.ParsingStatusFailed, q.ParsingStatus)
		assert.Contains(t, q.StudentFacingAnalysis.Explanation, "manual review")
		assert.Equal(t, models.OptionTypeCorrect, q.DetailedBackendAnalysis.OptionsAnalysis["B"].Type)
	}

	// Progress still advances so a later run does not redo the batches.
	saved, err := envelope.Read(outPath)
	require.NoError(t, err)
	assert.Equal(t, "3/3", saved.Metadata.BatchProgress)
}

func TestRunKeepsRawReplyOnUnparseableOutput(t *testing.T) {
	client := &stubLLM{reply: "The model rambles instead of emitting the object."}
	annotator := annotate.New(client, annotate.OpenAIPreset(""), annotate.Config{
		BatchSize:  5,
		BatchDelay: time.Millisecond,
	})

	env := models.NewEnvelope(models.ExamUPSC, 2024, testQuestions(2))
	outPath := filepath.Join(t.TempDir(), "out.json")

	summary, err := annotator.Run(context.Background(), env, outPath)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Fallback)
	for _, q := range env.Questions {
		assert.Equal(t, models.ParsingStatusFailed, q.ParsingStatus)
		assert.Equal(t, client.reply, q.RawLLMResponse)
		assert.NotEmpty(t, q.OpenAIAnalysisDate)
	}
}

func TestRunResumesFromBatchProgress(t *testing.T) {
	client := &stubLLM{reply: batchReply(2)}
	annotator := annotate.New(client, annotate.GrokPreset(""), annotate.Config{
		BatchSize:  2,
		BatchDelay: time.Millisecond,
	})

	env := models.NewEnvelope(models.ExamUPSC, 2024, testQuestions(4))
	env.SetBatchProgress(2, 4)
	outPath := filepath.Join(t.TempDir(), "out.json")

	summary, err := annotator.Run(context.Background(), env, outPath)
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls)
	assert.Equal(t, 2, summary.Resumed)
	assert.Equal(t, 2, summary.Annotated)

	// The first two questions were untouched by this run.
	assert.False(t, env.Questions[0].Annotated())
	assert.True(t, env.Questions[2].Annotated())
}

func TestRunFallsBackPerQuestionOnMissingKeys(t *testing.T) {
	// Reply only covers question_1; question_2 gets the fallback.
	client := &stubLLM{reply: `{"question_1": ` + annotationJSON() + `}`}
	annotator := annotate.New(client, annotate.GrokPreset(""), annotate.Config{
		BatchSize:  2,
		BatchDelay: time.Millisecond,
	})

	env := models.NewEnvelope(models.ExamUPSC, 2024, testQuestions(2))
	outPath := filepath.Join(t.TempDir(), "out.json")

	summary, err := annotator.Run(context.Background(), env, outPath)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Annotated)
	assert.Equal(t, 1, summary.Fallback)
	assert.Equal(t, models.ParsingStatusSuccess, env.Questions[0].ParsingStatus)
	assert.Equal(t, models.ParsingStatusFailed, env.Questions[1].ParsingStatus)
}
