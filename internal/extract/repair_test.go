package extract_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyqbank/internal/extract"
	"pyqbank/internal/ocr"
	"pyqbank/pkg/models"
)

// stubOCR serves fixed pages and counts invocations.
type stubOCR struct {
	pages []ocr.Page
	calls int
}

func (s *stubOCR) ProcessPDF(_ context.Context, _ io.Reader) ([]ocr.Page, error) {
	s.calls++
	return s.pages, nil
}

func (s *stubOCR) ProcessPDFWithMetadata(ctx context.Context, pdfData io.Reader) (*ocr.Result, error) {
	pages, err := s.ProcessPDF(ctx, pdfData)
	if err != nil {
		return nil, err
	}
	return &ocr.Result{Pages: pages, PageCount: len(pages), ProcessedAt: time.Now()}, nil
}

func TestRepairRecoversTargetedQuestions(t *testing.T) {
	reply := `[
  {"question_number": 29, "question_text": "The recovered question about rivers? (a) w (b) x (c) y (d) z", "options": {}, "correct_answer": "A"},
  {"question_number": 99, "question_text": "An unrequested question the model volunteered (a) w (b) x (c) y (d) z", "options": {}, "correct_answer": ""}
]`
	client := &stubLLM{replies: []string{reply}}
	ocrService := &stubOCR{pages: []ocr.Page{
		{Number: 12, Markdown: "text of page twelve"},
		{Number: 13, Markdown: "text of page thirteen"},
		{Number: 23, Markdown: "text of page twenty-three"},
	}}

	extractor := extract.New(ocrService, client, extract.Config{
		Exam:      models.ExamUPSC,
		Year:      2024,
		SourcePDF: "paper.pdf",
	})
	repairer := extract.NewRepairer(extractor)

	targets := extract.Targets{
		29: {12, 13},
		57: {23},
	}
	report, err := repairer.Repair(context.Background(), strings.NewReader("%PDF-"), targets)
	require.NoError(t, err)

	// One OCR pass, one LLM call per page group.
	assert.Equal(t, 1, ocrService.calls)
	assert.Equal(t, 2, client.calls)

	require.Len(t, report.Recovered, 1)
	q := report.Recovered[0]
	assert.Equal(t, 29, q.QuestionNumber)
	assert.Equal(t, "A", q.CorrectAnswer)
	assert.Equal(t, "12-13", q.PageRange)
	assert.Equal(t, "paper.pdf", q.SourcePDF)
	require.NoError(t, q.Options.Validate())

	assert.Equal(t, []int{57}, report.Unrecovered)
	// Group for 29 discards the volunteered 99; the group for 57 gets
	// the same canned reply and discards both records.
	assert.Equal(t, 3, report.Discarded)
}

func TestRepairGroupsTargetsSharingPages(t *testing.T) {
	reply := `[
  {"question_number": 26, "question_text": "First question on the shared pages (a) w (b) x (c) y (d) z", "options": {}, "correct_answer": ""},
  {"question_number": 27, "question_text": "Second question on the shared pages (a) w (b) x (c) y (d) z", "options": {}, "correct_answer": ""}
]`
	client := &stubLLM{replies: []string{reply}}
	ocrService := &stubOCR{pages: []ocr.Page{{Number: 29, Markdown: "page text"}}}

	extractor := extract.New(ocrService, client, extract.Config{Exam: models.ExamUPSC, Year: 2024})
	repairer := extract.NewRepairer(extractor)

	report, err := repairer.Repair(context.Background(), strings.NewReader("%PDF-"), extract.Targets{
		26: {29},
		27: {29},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls)
	assert.Len(t, report.Recovered, 2)
	assert.Empty(t, report.Unrecovered)
}
