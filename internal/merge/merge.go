// Package merge unions partial question files into one canonical set.
package merge

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"pyqbank/internal/logger"
	"pyqbank/pkg/models"
)

// Input is one partial question file, in operator-supplied order.
type Input struct {
	Source    string
	Questions []*models.Question
}

// Duplicate records a collision resolved by first-seen-wins.
type Duplicate struct {
	QuestionNumber int
	KeptSource     string
	DroppedSource  string
}

// Result is the merged set plus the coverage report against the
// expected range.
type Result struct {
	Questions  []*models.Question
	Duplicates []Duplicate
	Present    []int
	Missing    []int
	Extras     []int
}

// Merge unions the inputs keyed by question number. On collision the
// earlier input wins and the loser is recorded as a duplicate. Every
// surviving record is re-stamped with a merge timestamp and its source
// filename. The coverage report is computed against [expectedFrom,
// expectedTo].
func Merge(inputs []Input, expectedFrom, expectedTo int) *Result {
	log := logger.WithComponent("merger")

	result := &Result{}
	byNumber := make(map[int]*models.Question)
	keptSource := make(map[int]string)
	stamp := time.Now().UTC().Format(time.RFC3339)

	for _, input := range inputs {
		for _, q := range input.Questions {
			if _, ok := byNumber[q.QuestionNumber]; ok {
				dup := Duplicate{
					QuestionNumber: q.QuestionNumber,
					KeptSource:     keptSource[q.QuestionNumber],
					DroppedSource:  input.Source,
				}
				result.Duplicates = append(result.Duplicates, dup)
				logDuplicate(log, dup)
				continue
			}
			q.MergeTimestamp = stamp
			q.SourceFile = input.Source
			byNumber[q.QuestionNumber] = q
			keptSource[q.QuestionNumber] = input.Source
		}
	}

	numbers := make([]int, 0, len(byNumber))
	for n := range byNumber {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	for _, n := range numbers {
		result.Questions = append(result.Questions, byNumber[n])
		if n >= expectedFrom && n <= expectedTo {
			result.Present = append(result.Present, n)
		} else {
			result.Extras = append(result.Extras, n)
		}
	}
	for n := expectedFrom; n <= expectedTo; n++ {
		if _, ok := byNumber[n]; !ok {
			result.Missing = append(result.Missing, n)
		}
	}

	log.Info().
		Int("inputs", len(inputs)).
		Int("merged", len(result.Questions)).
		Int("duplicates", len(result.Duplicates)).
		Int("missing", len(result.Missing)).
		Int("extras", len(result.Extras)).
		Msg("Merge completed")

	return result
}

func logDuplicate(log zerolog.Logger, dup Duplicate) {
	log.Warn().
		Int("question_number", dup.QuestionNumber).
		Str("kept_source", dup.KeptSource).
		Str("dropped_source", dup.DroppedSource).
		Msg("Duplicate question number, first file wins")
}
