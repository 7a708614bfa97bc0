// Package answerkey holds the official answer keys for the supported
// papers as compile-time data.
//
// The store is authoritative: when a key exists for a question it
// overrides whatever correct answer the extractor produced.
package answerkey

import (
	"fmt"

	"pyqbank/pkg/models"
)

// Local aliases keep the key tables readable.
const (
	ExamUPSC  = models.ExamUPSC
	ExamUPPSC = models.ExamUPPSC
)

type examYear struct {
	exam string
	year int
}

// keys maps each covered paper to its full answer key. The letter
// strings are positional: character i answers question i+1; '-' marks a
// question with no authoritative answer.
var keys = map[examYear]map[int]string{}

func register(exam string, year int, letters string) {
	key := make(map[int]string, len(letters))
	for i, ch := range letters {
		if ch == '-' {
			continue
		}
		key[i+1] = string(ch)
	}
	keys[examYear{exam, year}] = key
}

// Get returns the official answer for a question, or models.AnswerUnknown
// when the paper or the question has no authoritative key.
func Get(exam string, year, number int) string {
	key, ok := keys[examYear{exam, year}]
	if !ok {
		return models.AnswerUnknown
	}
	letter, ok := key[number]
	if !ok {
		return models.AnswerUnknown
	}
	return letter
}

// Covered reports whether a full key is registered for the paper.
func Covered(exam string, year int) bool {
	_, ok := keys[examYear{exam, year}]
	return ok
}

// Expected returns the number of questions in the paper's key,
// including gaps, or 0 when the paper is not covered.
func Expected(exam string, year int) int {
	key, ok := keys[examYear{exam, year}]
	if !ok {
		return 0
	}
	max := 0
	for n := range key {
		if n > max {
			max = n
		}
	}
	return max
}

// Stamp overwrites CorrectAnswer on every question that the store
// covers and returns the number of records where the stored key
// disagreed with the incoming value. Questions outside the store keep
// their extracted answer.
func Stamp(questions []*models.Question) int {
	mismatches := 0
	for _, q := range questions {
		official := Get(q.Exam, q.Year, q.QuestionNumber)
		if official == models.AnswerUnknown {
			continue
		}
		if q.CorrectAnswer != "" && q.CorrectAnswer != models.AnswerUnknown && q.CorrectAnswer != official {
			mismatches++
		}
		q.CorrectAnswer = official
	}
	return mismatches
}

// mustLen guards the positional key strings at init time.
func mustLen(letters string, want int, exam string, year int) string {
	if len(letters) != want {
		panic(fmt.Sprintf("answerkey: %s %d key has %d entries, want %d", exam, year, len(letters), want))
	}
	return letters
}
