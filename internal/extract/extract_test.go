package extract_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyqbank/internal/extract"
	"pyqbank/internal/llm"
	"pyqbank/internal/ocr"
	"pyqbank/pkg/models"
)

// stubLLM replays canned completions in order.
type stubLLM struct {
	replies []string
	err     error
	calls   int
	prompts []string
}

func (s *stubLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	s.prompts = append(s.prompts, req.Prompt)
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	idx := s.calls - 1
	if idx >= len(s.replies) {
		idx = len(s.replies) - 1
	}
	return s.replies[idx], nil
}

func TestExtractFromPagesHappyPath(t *testing.T) {
	reply := `[
  {"question_number": 7, "question_text": "What is 2+2? (a) 3 (b) 4 (c) 5 (d) 22", "options": {}, "correct_answer": ""},
  {"question_number": 8, "question_text": "Which planet is known as the red planet?", "options": {"A": "Venus", "B": "Mars", "C": "Jupiter", "D": "Saturn"}, "correct_answer": "b"}
]`
	client := &stubLLM{replies: []string{reply}}
	extractor := extract.New(nil, client, extract.Config{
		Exam:      models.ExamUPSC,
		Year:      2024,
		Paper:     "GS-I",
		SourcePDF: "paper.pdf",
	})

	pages := []ocr.Page{
		{Number: 1, Markdown: "page one text"},
		{Number: 2, Markdown: "page two text"},
	}
	report, err := extractor.ExtractFromPages(context.Background(), pages)
	require.NoError(t, err)

	require.Len(t, report.Questions, 2)
	assert.Equal(t, 1, client.calls)

	q7 := report.Questions[0]
	assert.Equal(t, 7, q7.QuestionNumber)
	assert.Equal(t, "What is 2+2?", q7.QuestionText)
	require.NoError(t, q7.Options.Validate())
	got, _ := q7.Options.Get("B")
	assert.Equal(t, "4", got)
	assert.Equal(t, models.AnswerUnknown, q7.CorrectAnswer)
	assert.Equal(t, models.ExamUPSC, q7.Exam)
	assert.Equal(t, "GS-I", q7.Paper)
	assert.Equal(t, "paper.pdf", q7.SourcePDF)
	assert.Equal(t, "1-2", q7.PageRange)
	assert.Equal(t, 1, q7.ExtractionOrder)

	q8 := report.Questions[1]
	assert.Equal(t, "B", q8.CorrectAnswer)
	assert.Equal(t, 2, q8.ExtractionOrder)

	// Expected defaults to the highest number seen.
	assert.Equal(t, 8, report.Expected)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, report.Missing)
}

func TestExtractToleratesNullOptions(t *testing.T) {
	reply := `[
  {"question_number": 3, "question_text": "Who wrote the Arthashastra? (a) Kautilya (b) Kalidasa (c) Banabhatta (d) Panini", "options": null, "correct_answer": ""},
  {"question_number": 4, "question_text": "Which river is known as the Sorrow of Bengal?", "options": {"A": "Kosi", "B": "Damodar", "C": "Hooghly", "D": "Teesta"}, "correct_answer": "b"}
]`
	client := &stubLLM{replies: []string{reply}}
	extractor := extract.New(nil, client, extract.Config{Exam: models.ExamUPSC, Year: 2024, Expected: 4})

	report, err := extractor.ExtractFromPages(context.Background(), []ocr.Page{{Number: 1, Markdown: "text"}})
	require.NoError(t, err)

	// The null must not discard the whole reply: both records survive,
	// and the inline options of the first one are separated out.
	require.Len(t, report.Questions, 2)
	q3 := report.Questions[0]
	assert.Equal(t, "Who wrote the Arthashastra?", q3.QuestionText)
	require.NoError(t, q3.Options.Validate())
	got, _ := q3.Options.Get("A")
	assert.Equal(t, "Kautilya", got)
}

func TestExtractFallsBackToRegexOnBadJSON(t *testing.T) {
	client := &stubLLM{replies: []string{"I could not produce structured output, sorry."}}
	extractor := extract.New(nil, client, extract.Config{
		Exam: models.ExamUPPSC,
		Year: 2024,
	})

	pages := []ocr.Page{{
		Number:   1,
		Markdown: "7. What is 2+2? (a) 3 (b) 4 (c) 5 (d) 22\n8. Name the capital of Uttar Pradesh. (a) Kanpur (b) Lucknow (c) Varanasi (d) Prayagraj",
	}}
	report, err := extractor.ExtractFromPages(context.Background(), pages)
	require.NoError(t, err)

	require.Len(t, report.Questions, 2)
	assert.Equal(t, 7, report.Questions[0].QuestionNumber)
	assert.Equal(t, models.ExamUPPSC, report.Questions[0].Exam)
	got, _ := report.Questions[1].Options.Get("B")
	assert.Equal(t, "Lucknow", got)
}

func TestExtractDropsInvalidRecords(t *testing.T) {
	reply := `[
  {"question_number": 1, "question_text": "ok?", "options": {}, "correct_answer": ""},
  {"question_number": 2, "question_text": "A perfectly fine question text (a) w (b) x (c) y (d) z", "options": {}, "correct_answer": ""}
]`
	client := &stubLLM{replies: []string{reply}}
	extractor := extract.New(nil, client, extract.Config{Exam: models.ExamUPSC, Year: 2024, Expected: 2})

	report, err := extractor.ExtractFromPages(context.Background(), []ocr.Page{{Number: 1, Markdown: "text"}})
	require.NoError(t, err)

	require.Len(t, report.Questions, 1)
	assert.Equal(t, 2, report.Questions[0].QuestionNumber)
	assert.Equal(t, 1, report.Dropped)
	assert.Equal(t, []int{1}, report.Missing)
}

func TestExtractContinuesPastFailedChunks(t *testing.T) {
	client := &stubLLM{err: context.DeadlineExceeded}
	extractor := extract.New(nil, client, extract.Config{
		Exam:      models.ExamUPSC,
		Year:      2024,
		ChunkSize: 1,
	})

	pages := []ocr.Page{
		{Number: 1, Markdown: "page one"},
		{Number: 2, Markdown: "page two"},
	}
	report, err := extractor.ExtractFromPages(context.Background(), pages)
	require.NoError(t, err)

	assert.Empty(t, report.Questions)
	assert.Equal(t, 2, report.ChunksTotal)
	assert.Equal(t, 2, report.ChunksFailed)
}

func TestDedupe(t *testing.T) {
	a := models.NewQuestion(models.ExamUPSC, 2024, 3)
	b := models.NewQuestion(models.ExamUPSC, 2024, 1)
	c := models.NewQuestion(models.ExamUPSC, 2024, 3)

	out, duplicates := extract.Dedupe([]*models.Question{a, b, c})

	require.Len(t, out, 2)
	assert.Equal(t, 1, duplicates)
	assert.Equal(t, 1, out[0].QuestionNumber)
	assert.Equal(t, 3, out[1].QuestionNumber)
	// First occurrence kept.
	assert.Same(t, a, out[1])
}

func TestParseTargets(t *testing.T) {
	targets, err := extract.ParseTargets("26:29,30,31; 57:40")
	require.NoError(t, err)

	assert.Equal(t, extract.Targets{
		26: {29, 30, 31},
		57: {40},
	}, targets)

	_, err = extract.ParseTargets("")
	assert.Error(t, err)
	_, err = extract.ParseTargets("26")
	assert.Error(t, err)
	_, err = extract.ParseTargets("x:1")
	assert.Error(t, err)
	_, err = extract.ParseTargets("26:zero")
	assert.Error(t, err)
}

func TestParseMarkdownDump(t *testing.T) {
	dump := `1
What is 2+2? (a) 3 (b) 4 (c) 5 (d) 22
---
2.
Name the first Governor-General of independent India.
(a) Rajagopalachari (b) Mountbatten (c) Nehru (d) Patel
---
not a number
Body of a malformed block.
---
`
	questions, skipped, err := extract.ParseMarkdownDump(strings.NewReader(dump), models.ExamUPSC, 2024)
	require.NoError(t, err)

	require.Len(t, questions, 2)
	assert.Equal(t, 1, questions[0].QuestionNumber)
	assert.Equal(t, "What is 2+2?", questions[0].QuestionText)
	got, _ := questions[1].Options.Get("B")
	assert.Equal(t, "Mountbatten", got)

	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0], "block 3")
}
