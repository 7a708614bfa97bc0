package models

import (
	"fmt"
	"time"
)

// Metadata describes one exam-year question file.
type Metadata struct {
	Exam           string `json:"exam"`
	Year           int    `json:"year"`
	Section        string `json:"section,omitempty"`
	TotalQuestions int    `json:"total_questions"`
	AnalysisMethod string `json:"analysis_method,omitempty"`
	LastUpdated    string `json:"last_updated"`
	BatchProgress  string `json:"batch_progress,omitempty"`
	Note           string `json:"note,omitempty"`
}

// Envelope is the on-disk container shared by partial and final
// question files: a metadata header plus the question list.
type Envelope struct {
	Metadata  Metadata    `json:"metadata"`
	Questions []*Question `json:"questions"`
}

// NewEnvelope builds an envelope around the given questions.
func NewEnvelope(exam string, year int, questions []*Question) *Envelope {
	return &Envelope{
		Metadata: Metadata{
			Exam:           exam,
			Year:           year,
			TotalQuestions: len(questions),
			LastUpdated:    time.Now().UTC().Format(time.RFC3339),
		},
		Questions: questions,
	}
}

// Touch refreshes TotalQuestions and LastUpdated before persisting.
func (e *Envelope) Touch() {
	e.Metadata.TotalQuestions = len(e.Questions)
	e.Metadata.LastUpdated = time.Now().UTC().Format(time.RFC3339)
}

// SetBatchProgress records annotation progress as "done/total".
func (e *Envelope) SetBatchProgress(done, total int) {
	e.Metadata.BatchProgress = fmt.Sprintf("%d/%d", done, total)
}

// ParseBatchProgress returns the number of questions already annotated
// according to the metadata, or 0 when no progress is recorded. A
// malformed value is treated as no progress so a resume restarts from
// the beginning rather than skipping work.
func (e *Envelope) ParseBatchProgress() int {
	var done, total int
	if _, err := fmt.Sscanf(e.Metadata.BatchProgress, "%d/%d", &done, &total); err != nil {
		return 0
	}
	if done < 0 || done > len(e.Questions) {
		return 0
	}
	return done
}
