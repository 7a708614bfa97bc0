// Package extract converts page-indexed OCR text into canonical
// question records, one LLM call per window of pages.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pyqbank/internal/llm"
	"pyqbank/internal/logger"
	"pyqbank/internal/ocr"
	"pyqbank/internal/options"
	"pyqbank/pkg/models"
)

// Config tunes one extraction run.
type Config struct {
	Exam      string
	Year      int
	Paper     string
	Section   string
	SourcePDF string

	// ChunkSize is the number of OCR pages per LLM call.
	ChunkSize int

	// MaxPages caps how many pages are processed (0 = all).
	MaxPages int

	// Expected is the highest question number the paper should contain.
	// When 0 the gap report uses the highest number actually seen.
	Expected int

	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.ChunkSize <= 0 {
		out.ChunkSize = 5
	}
	if out.Model == "" {
		out.Model = "gpt-4o"
	}
	if out.MaxTokens <= 0 {
		out.MaxTokens = 4000
	}
	if out.Timeout <= 0 {
		out.Timeout = 120 * time.Second
	}
	return out
}

// Report summarises one extraction run.
type Report struct {
	Questions    []*models.Question
	Expected     int
	Missing      []int
	Duplicates   int
	Dropped      int
	ChunksTotal  int
	ChunksFailed int
}

// Extractor turns OCR pages into question records.
type Extractor struct {
	ocrService ocr.Service
	llmClient  llm.Client
	cfg        Config
	log        zerolog.Logger
}

// New creates an extractor. The OCR service may be nil when extraction
// runs from pre-fetched pages or a markdown dump.
func New(ocrService ocr.Service, llmClient llm.Client, cfg Config) *Extractor {
	return &Extractor{
		ocrService: ocrService,
		llmClient:  llmClient,
		cfg:        cfg.withDefaults(),
		log:        logger.WithComponent("extractor"),
	}
}

// ExtractFromPDF runs OCR on the PDF and extracts questions from the
// resulting pages.
func (e *Extractor) ExtractFromPDF(ctx context.Context, pdfData io.Reader) (*Report, error) {
	const op = "ExtractFromPDF"
	if e.ocrService == nil {
		return nil, fmt.Errorf("%s: no OCR service configured", op)
	}
	pages, err := e.ocrService.ProcessPDF(ctx, pdfData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return e.ExtractFromPages(ctx, pages)
}

// ExtractFromPages walks the pages in windows of ChunkSize, extracting
// question records from each window. Chunk-level failures yield zero
// records and the run continues.
func (e *Extractor) ExtractFromPages(ctx context.Context, pages []ocr.Page) (*Report, error) {
	cfg := e.cfg
	if cfg.MaxPages > 0 && len(pages) > cfg.MaxPages {
		pages = pages[:cfg.MaxPages]
	}

	report := &Report{}
	var all []*models.Question

	for start := 0; start < len(pages); start += cfg.ChunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + cfg.ChunkSize
		if end > len(pages) {
			end = len(pages)
		}
		window := pages[start:end]
		chunkNumber := start/cfg.ChunkSize + 1
		pageFrom, pageTo := window[0].Number, window[len(window)-1].Number

		report.ChunksTotal++
		records, err := e.extractChunk(ctx, window, chunkNumber, pageFrom, pageTo)
		if err != nil {
			report.ChunksFailed++
			e.log.Warn().
				Err(err).
				Int("chunk", chunkNumber).
				Int("page_from", pageFrom).
				Int("page_to", pageTo).
				Msg("Chunk extraction failed, continuing")
			continue
		}

		for _, q := range records {
			if err := e.finalize(q); err != nil {
				report.Dropped++
				e.log.Warn().
					Err(err).
					Int("question_number", q.QuestionNumber).
					Int("chunk", chunkNumber).
					Msg("Dropping invalid record")
				continue
			}
			all = append(all, q)
		}
	}

	report.Questions, report.Duplicates = Dedupe(all)
	for i, q := range report.Questions {
		q.ExtractionOrder = i + 1
	}

	report.Expected = e.expectedCount(report.Questions)
	report.Missing = MissingNumbers(report.Questions, 1, report.Expected)

	e.log.Info().
		Int("extracted", len(report.Questions)).
		Int("expected", report.Expected).
		Int("dropped", report.Dropped).
		Int("duplicates", report.Duplicates).
		Int("chunks_failed", report.ChunksFailed).
		Ints("missing", report.Missing).
		Msg("Extraction completed")

	return report, nil
}

// extractChunk asks the LLM for the question records in one page
// window, falling back to the regex extractor on unparseable JSON.
func (e *Extractor) extractChunk(ctx context.Context, window []ocr.Page, chunkNumber, pageFrom, pageTo int) ([]*models.Question, error) {
	chunkText := ocr.Text(window, pageFrom, pageTo)
	if strings.TrimSpace(chunkText) == "" {
		return nil, nil
	}

	reply, err := e.llmClient.Complete(ctx, llm.Request{
		Model:       e.cfg.Model,
		System:      extractionSystemPrompt,
		Prompt:      e.buildChunkPrompt(chunkText),
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
		Timeout:     e.cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}

	records, err := e.parseReply(reply)
	if llm.IsBadJSON(err) {
		e.log.Warn().
			Int("chunk", chunkNumber).
			Msg("Unparseable JSON from LLM, using regex fallback")
		records = ParseQuestionBlocks(chunkText)
		err = nil
	}
	if err != nil {
		return nil, err
	}

	for _, q := range records {
		q.Exam = e.cfg.Exam
		q.Year = e.cfg.Year
		if q.Paper == "" {
			q.Paper = e.cfg.Paper
		}
		if q.Section == "" {
			q.Section = e.cfg.Section
		}
		q.SourcePDF = e.cfg.SourcePDF
		q.ChunkNumber = chunkNumber
		q.PageRange = fmt.Sprintf("%d-%d", pageFrom, pageTo)
	}
	return records, nil
}

// rawQuestion is the field set the extraction prompt fixes for the LLM.
type rawQuestion struct {
	QuestionNumber int              `json:"question_number"`
	QuestionText   string           `json:"question_text"`
	Options        models.OptionMap `json:"options"`
	CorrectAnswer  string           `json:"correct_answer"`
	Paper          string           `json:"paper"`
	Section        string           `json:"section"`
}

func (e *Extractor) parseReply(reply string) ([]*models.Question, error) {
	raw, err := llm.ExtractJSONArray(reply)
	if err != nil {
		return nil, err
	}
	var rows []rawQuestion
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, &llm.BadJSONError{Raw: reply, Reason: err.Error()}
	}

	out := make([]*models.Question, 0, len(rows))
	for _, row := range rows {
		q := models.NewQuestion(e.cfg.Exam, e.cfg.Year, row.QuestionNumber)
		q.QuestionText = options.Clean(row.QuestionText)
		q.Options = row.Options
		q.Paper = row.Paper
		q.Section = row.Section
		if answer := strings.ToUpper(strings.TrimSpace(row.CorrectAnswer)); len(answer) == 1 && answer >= "A" && answer <= "D" {
			q.CorrectAnswer = answer
		}
		out = append(out, q)
	}
	return out, nil
}

// finalize separates embedded options when needed, stamps the official
// answer, and validates the record.
func (e *Extractor) finalize(q *models.Question) error {
	if !q.HasCompleteOptions() {
		options.Separate(q)
	}
	if err := q.Validate(); err != nil {
		return err
	}
	return nil
}

func (e *Extractor) expectedCount(questions []*models.Question) int {
	if e.cfg.Expected > 0 {
		return e.cfg.Expected
	}
	max := 0
	for _, q := range questions {
		if q.QuestionNumber > max {
			max = q.QuestionNumber
		}
	}
	return max
}

// Dedupe keeps the first occurrence of each question number and returns
// the records sorted ascending, plus the number of discarded duplicates.
func Dedupe(questions []*models.Question) ([]*models.Question, int) {
	seen := make(map[int]bool, len(questions))
	out := make([]*models.Question, 0, len(questions))
	duplicates := 0
	for _, q := range questions {
		if seen[q.QuestionNumber] {
			duplicates++
			continue
		}
		seen[q.QuestionNumber] = true
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QuestionNumber < out[j].QuestionNumber
	})
	return out, duplicates
}

// MissingNumbers returns the numbers in [from, to] absent from the set.
func MissingNumbers(questions []*models.Question, from, to int) []int {
	present := make(map[int]bool, len(questions))
	for _, q := range questions {
		present[q.QuestionNumber] = true
	}
	var missing []int
	for n := from; n <= to; n++ {
		if !present[n] {
			missing = append(missing, n)
		}
	}
	return missing
}
