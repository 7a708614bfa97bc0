package extract

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"pyqbank/internal/llm"
	"pyqbank/internal/logger"
	"pyqbank/internal/ocr"
	"pyqbank/pkg/models"
)

// Targets maps a missing question number to the pages the operator
// believes contain it.
type Targets map[int][]int

// ParseTargets reads the CLI form "26:29,30,31;27:29,30,31".
func ParseTargets(spec string) (Targets, error) {
	targets := make(Targets)
	for _, entry := range strings.Split(spec, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		numberStr, pagesStr, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("invalid target %q (expected number:page,page)", entry)
		}
		var number int
		if _, err := fmt.Sscanf(strings.TrimSpace(numberStr), "%d", &number); err != nil || number <= 0 {
			return nil, fmt.Errorf("invalid question number in target %q", entry)
		}
		var pages []int
		for _, pageStr := range strings.Split(pagesStr, ",") {
			var page int
			if _, err := fmt.Sscanf(strings.TrimSpace(pageStr), "%d", &page); err != nil || page <= 0 {
				return nil, fmt.Errorf("invalid page number in target %q", entry)
			}
			pages = append(pages, page)
		}
		if len(pages) == 0 {
			return nil, fmt.Errorf("target %q lists no pages", entry)
		}
		targets[number] = pages
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets given")
	}
	return targets, nil
}

// RepairReport lists what a repair run recovered.
type RepairReport struct {
	Recovered   []*models.Question
	Unrecovered []int
	Discarded   int // records returned for numbers outside the target set
}

// Repairer re-runs narrowly scoped extraction for operator-identified
// gaps. The full OCR result is fetched once and cached for the run.
type Repairer struct {
	extractor   *Extractor
	cachedPages []ocr.Page
	log         zerolog.Logger
}

// NewRepairer wraps an extractor for gap repair.
func NewRepairer(extractor *Extractor) *Repairer {
	return &Repairer{
		extractor: extractor,
		log:       logger.WithComponent("gap-repair"),
	}
}

// Repair OCRs the PDF once, then issues one scoped LLM call per group
// of targets that share a page list. Partial success is expected: the
// report names the numbers still missing so the operator can widen the
// page ranges and retry.
func (r *Repairer) Repair(ctx context.Context, pdfData io.Reader, targets Targets) (*RepairReport, error) {
	const op = "Repair"

	if r.cachedPages == nil {
		if r.extractor.ocrService == nil {
			return nil, fmt.Errorf("%s: no OCR service configured", op)
		}
		pages, err := r.extractor.ocrService.ProcessPDF(ctx, pdfData)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		r.cachedPages = pages
	}

	report := &RepairReport{}
	recovered := make(map[int]*models.Question)

	for _, group := range groupByPages(targets) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records, discarded, err := r.repairGroup(ctx, group)
		if err != nil {
			r.log.Warn().
				Err(err).
				Ints("numbers", group.numbers).
				Msg("Repair call failed for target group")
			continue
		}
		report.Discarded += discarded
		for _, q := range records {
			if _, ok := recovered[q.QuestionNumber]; !ok {
				recovered[q.QuestionNumber] = q
			}
		}
	}

	for number := range targets {
		if q, ok := recovered[number]; ok {
			report.Recovered = append(report.Recovered, q)
		} else {
			report.Unrecovered = append(report.Unrecovered, number)
		}
	}
	sort.Slice(report.Recovered, func(i, j int) bool {
		return report.Recovered[i].QuestionNumber < report.Recovered[j].QuestionNumber
	})
	sort.Ints(report.Unrecovered)

	r.log.Info().
		Int("recovered", len(report.Recovered)).
		Ints("unrecovered", report.Unrecovered).
		Int("discarded", report.Discarded).
		Msg("Gap repair completed")

	return report, nil
}

type targetGroup struct {
	numbers []int
	pages   []int
}

// groupByPages batches targets sharing an identical page list into one
// LLM call.
func groupByPages(targets Targets) []targetGroup {
	byKey := make(map[string]*targetGroup)
	for number, pages := range targets {
		sorted := append([]int(nil), pages...)
		sort.Ints(sorted)
		key := fmt.Sprint(sorted)
		g, ok := byKey[key]
		if !ok {
			g = &targetGroup{pages: sorted}
			byKey[key] = g
		}
		g.numbers = append(g.numbers, number)
	}
	groups := make([]targetGroup, 0, len(byKey))
	for _, g := range byKey {
		sort.Ints(g.numbers)
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].numbers[0] < groups[j].numbers[0]
	})
	return groups
}

func (r *Repairer) repairGroup(ctx context.Context, group targetGroup) ([]*models.Question, int, error) {
	var sb strings.Builder
	for _, page := range group.pages {
		sb.WriteString(ocr.Text(r.cachedPages, page, page))
		sb.WriteString("\n\n")
	}
	pageText := sb.String()
	if strings.TrimSpace(pageText) == "" {
		return nil, 0, fmt.Errorf("requested pages %v contain no text", group.pages)
	}

	cfg := r.extractor.cfg
	reply, err := r.extractor.llmClient.Complete(ctx, llm.Request{
		Model:       cfg.Model,
		System:      extractionSystemPrompt,
		Prompt:      buildTargetedPrompt(cfg.Exam, cfg.Year, group.numbers, pageText),
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		return nil, 0, err
	}

	records, err := r.extractor.parseReply(reply)
	if err != nil {
		return nil, 0, err
	}

	wanted := make(map[int]bool, len(group.numbers))
	for _, n := range group.numbers {
		wanted[n] = true
	}

	pageRange := fmt.Sprintf("%d-%d", group.pages[0], group.pages[len(group.pages)-1])
	var kept []*models.Question
	discarded := 0
	for _, q := range records {
		if !wanted[q.QuestionNumber] {
			discarded++
			continue
		}
		q.PageRange = pageRange
		q.SourcePDF = cfg.SourcePDF
		if err := r.extractor.finalize(q); err != nil {
			r.log.Warn().
				Err(err).
				Int("question_number", q.QuestionNumber).
				Msg("Dropping invalid repaired record")
			continue
		}
		kept = append(kept, q)
	}
	return kept, discarded, nil
}
