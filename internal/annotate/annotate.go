// Package annotate attaches the two-tier pedagogical analysis to
// question records, batching several questions per LLM call.
package annotate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pyqbank/internal/envelope"
	"pyqbank/internal/llm"
	"pyqbank/internal/logger"
	"pyqbank/pkg/models"
)

// Config tunes an annotation run.
type Config struct {
	// BatchSize is the number of questions per LLM call.
	BatchSize int

	// BatchDelay is the pause between batches for provider rate limits.
	BatchDelay time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.BatchSize <= 0 {
		out.BatchSize = 5
	}
	if out.BatchDelay <= 0 {
		out.BatchDelay = 12 * time.Second
	}
	return out
}

// Summary reports one annotation run.
type Summary struct {
	Annotated int
	Fallback  int
	Batches   int
	Resumed   int // questions skipped because a checkpoint covered them
}

// Annotator drives batched annotation with checkpointing.
type Annotator struct {
	llmClient llm.Client
	preset    Preset
	cfg       Config
	log       zerolog.Logger
}

// New creates an annotator for one provider preset.
func New(llmClient llm.Client, preset Preset, cfg Config) *Annotator {
	return &Annotator{
		llmClient: llmClient,
		preset:    preset,
		cfg:       cfg.withDefaults(),
		log:       logger.WithComponent("annotator-" + preset.Provider),
	}
}

// Run annotates every question in the envelope, rewriting outPath after
// each batch so a killed run resumes from the last batch boundary. A
// batch either completes (success or fallback) or, on context
// cancellation, leaves the on-disk envelope at the previous checkpoint.
func (a *Annotator) Run(ctx context.Context, env *models.Envelope, outPath string) (*Summary, error) {
	total := len(env.Questions)
	done := env.ParseBatchProgress()

	summary := &Summary{Resumed: done}
	env.Metadata.AnalysisMethod = a.preset.AnalysisMethod()

	a.log.Info().
		Int("total", total).
		Int("resume_from", done).
		Int("batch_size", a.cfg.BatchSize).
		Str("model", a.preset.Model).
		Msg("Starting annotation run")

	for start := done; start < total; start += a.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		end := start + a.cfg.BatchSize
		if end > total {
			end = total
		}
		batch := env.Questions[start:end]

		fallbacks := a.AnnotateBatch(ctx, batch)
		summary.Annotated += len(batch) - fallbacks
		summary.Fallback += fallbacks
		summary.Batches++

		env.SetBatchProgress(end, total)
		if err := envelope.Write(outPath, env); err != nil {
			return summary, fmt.Errorf("checkpoint after batch: %w", err)
		}

		a.log.Info().
			Int("batch_from", start+1).
			Int("batch_to", end).
			Int("fallbacks", fallbacks).
			Str("progress", env.Metadata.BatchProgress).
			Msg("Batch committed")

		if end < total {
			select {
			case <-time.After(a.cfg.BatchDelay):
			case <-ctx.Done():
				return summary, ctx.Err()
			}
		}
	}

	return summary, nil
}

// AnnotateBatch annotates the records in place and returns how many
// received fallback annotations. It never fails: when the LLM call or
// parsing fails after retries, every record in the batch gets the
// fallback block and the raw reply is preserved for manual recovery.
func (a *Annotator) AnnotateBatch(ctx context.Context, batch []*models.Question) int {
	reply, err := a.llmClient.Complete(ctx, llm.Request{
		Model:       a.preset.Model,
		System:      annotationSystemPrompt,
		Prompt:      buildBatchPrompt(batch),
		Temperature: a.preset.Temperature,
		MaxTokens:   a.preset.MaxTokens,
		Timeout:     a.preset.Timeout,
	})
	if err != nil {
		a.log.Warn().Err(err).Int("batch_size", len(batch)).Msg("Annotation call failed, applying fallbacks")
		a.applyFallbacks(batch, "")
		return len(batch)
	}

	annotations, err := parseBatchReply(reply, len(batch))
	if err != nil {
		a.log.Warn().Err(err).Msg("Annotation reply unparseable, applying fallbacks")
		a.applyFallbacks(batch, reply)
		return len(batch)
	}

	// Re-associate by prompt position, not question number: the model
	// returns question_1..question_N keys in batch order.
	fallbacks := 0
	for i, q := range batch {
		ann := annotations[i]
		if err := validateAnnotation(ann); err != nil {
			a.log.Warn().
				Err(err).
				Int("question_number", q.QuestionNumber).
				Msg("Annotation failed shape validation, applying fallback")
			a.applyFallback(q, reply)
			fallbacks++
			continue
		}
		a.apply(q, ann)
	}
	return fallbacks
}

func (a *Annotator) apply(q *models.Question, ann *models.Annotation) {
	q.StudentFacingAnalysis = ann.StudentFacingAnalysis
	q.DetailedBackendAnalysis = ann.DetailedBackendAnalysis
	q.ParsingStatus = models.ParsingStatusSuccess
	q.RawLLMResponse = ""

	// Promote taxonomy into the top-level record.
	backend := ann.DetailedBackendAnalysis
	if backend.DifficultyLevel != "" {
		q.DifficultyLevel = backend.DifficultyLevel
	}
	if backend.QuestionNature.PrimaryType != "" {
		q.PrimaryType = backend.QuestionNature.PrimaryType
	}
	if backend.QuestionNature.SecondaryType != "" {
		q.SecondaryType = backend.QuestionNature.SecondaryType
	}

	a.stampDate(q)
}

func (a *Annotator) applyFallbacks(batch []*models.Question, raw string) {
	for _, q := range batch {
		a.applyFallback(q, raw)
	}
}

func (a *Annotator) applyFallback(q *models.Question, raw string) {
	ann := models.FallbackAnnotation(q)
	q.StudentFacingAnalysis = ann.StudentFacingAnalysis
	q.DetailedBackendAnalysis = ann.DetailedBackendAnalysis
	q.ParsingStatus = models.ParsingStatusFailed
	q.RawLLMResponse = raw
	if q.DifficultyLevel == "" {
		q.DifficultyLevel = models.DifficultyMedium
	}
	a.stampDate(q)
}

func (a *Annotator) stampDate(q *models.Question) {
	now := time.Now().UTC().Format(time.RFC3339)
	switch a.preset.Provider {
	case "grok":
		q.GrokAnalysisDate = now
	default:
		q.OpenAIAnalysisDate = now
	}
}

// parseBatchReply extracts the question_1..question_N annotations in
// prompt order. A missing or malformed entry yields a nil slot which
// the caller converts to a fallback.
func parseBatchReply(reply string, n int) ([]*models.Annotation, error) {
	raw, err := llm.ExtractJSONObject(reply)
	if err != nil {
		return nil, err
	}
	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil, &llm.BadJSONError{Raw: reply, Reason: err.Error()}
	}

	out := make([]*models.Annotation, n)
	for i := 0; i < n; i++ {
		entry, ok := keyed[fmt.Sprintf("question_%d", i+1)]
		if !ok {
			continue
		}
		var ann models.Annotation
		if err := json.Unmarshal(entry, &ann); err != nil {
			continue
		}
		out[i] = &ann
	}
	return out, nil
}

// validateAnnotation checks the LLM-controlled shape at the boundary.
func validateAnnotation(ann *models.Annotation) error {
	if ann == nil {
		return fmt.Errorf("annotation missing")
	}
	if ann.StudentFacingAnalysis == nil {
		return fmt.Errorf("student_facing_analysis missing")
	}
	if ann.DetailedBackendAnalysis == nil {
		return fmt.Errorf("detailed_backend_analysis missing")
	}
	if ann.StudentFacingAnalysis.Explanation == "" {
		return fmt.Errorf("explanation empty")
	}
	oa := ann.DetailedBackendAnalysis.OptionsAnalysis
	if len(oa) == 0 {
		return fmt.Errorf("options_analysis missing")
	}
	for letter := range oa {
		switch letter {
		case "A", "B", "C", "D":
		default:
			return fmt.Errorf("options_analysis has invalid key %q", letter)
		}
	}
	return nil
}
