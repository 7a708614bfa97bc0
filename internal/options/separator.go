// Package options splits inline option markers out of question text
// into the structured option map.
//
// Two marker conventions are recognised, tried in order:
//
//	1. What is 2+2? (a) 3 (b) 4 (c) 5 (d) 22
//	2. What is 2+2? A) 3 B) 4 C) 5 D) 22
package options

import (
	"regexp"
	"strings"

	"pyqbank/pkg/models"
)

// The alternatives are ordered: the lowercase-in-parentheses convention
// is the more common one in the source papers and is matched first.
var optionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)\(\s*[aA]\s*\)\s*(.*?)\s*\(\s*[bB]\s*\)\s*(.*?)\s*\(\s*[cC]\s*\)\s*(.*?)\s*\(\s*[dD]\s*\)\s*(.*)$`),
	regexp.MustCompile(`(?s)\bA\)\s*(.*?)\s*\bB\)\s*(.*?)\s*\bC\)\s*(.*?)\s*\bD\)\s*(.*)$`),
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Separate extracts embedded options from the question text into the
// option map, strips the matched span from the text, and collapses the
// remaining whitespace. It reports whether the record was modified.
//
// A record whose options are already well formed is left untouched, so
// running the separator twice is a no-op. A record with no recognisable
// markers is also left alone; the caller surfaces it in the to-fix
// report.
func Separate(q *models.Question) bool {
	if q.HasCompleteOptions() {
		return false
	}

	texts, start, ok := match(q.QuestionText)
	if !ok {
		return false
	}

	q.Options = models.NewOptionMap(texts[0], texts[1], texts[2], texts[3])
	q.QuestionText = Clean(q.QuestionText[:start])
	q.OptionsExtracted = true
	return true
}

// match runs the ordered patterns and returns the four option texts,
// the offset where the option span begins, and whether a pattern
// matched with all four texts non-empty.
func match(text string) ([4]string, int, bool) {
	for _, re := range optionPatterns {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		var texts [4]string
		complete := true
		for i := 0; i < 4; i++ {
			sub := Clean(text[loc[2+2*i]:loc[3+2*i]])
			if sub == "" {
				complete = false
				break
			}
			texts[i] = sub
		}
		if !complete {
			continue
		}
		return texts, loc[0], true
	}
	return [4]string{}, 0, false
}

// Clean collapses runs of whitespace and trims the result.
func Clean(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Report lists the outcome of a separator pass over a question set.
type Report struct {
	Separated int
	AlreadyOK int
	ToFix     []int // question numbers still missing structured options
}

// SeparateAll runs Separate over every record and aggregates a report.
func SeparateAll(questions []*models.Question) *Report {
	report := &Report{}
	for _, q := range questions {
		switch {
		case q.HasCompleteOptions():
			report.AlreadyOK++
		case Separate(q):
			report.Separated++
		default:
			report.ToFix = append(report.ToFix, q.QuestionNumber)
		}
	}
	return report
}
