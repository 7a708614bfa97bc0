package extract

import (
	"regexp"
	"strings"

	"pyqbank/internal/options"
	"pyqbank/pkg/models"
)

// questionStartRe anchors a question block: a number of up to three
// digits followed by a dot or closing paren at the start of a line.
var questionStartRe = regexp.MustCompile(`(?m)^\s*(\d{1,3})[.)]\s+`)

// ParseQuestionBlocks is the regex fallback used when the LLM reply is
// unparseable. It recognises blocks of the forms
//
//	N. <text> (a) ... (b) ... (c) ... (d) ...
//	N. <text> A) ... B) ... C) ... D) ...
//
// Option texts may be incomplete; validation downstream decides whether
// the record survives.
func ParseQuestionBlocks(text string) []*models.Question {
	matches := questionStartRe.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		return nil
	}

	var out []*models.Question
	for i, m := range matches {
		numberStr := text[m[2]:m[3]]
		bodyStart := m[1]
		bodyEnd := len(text)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		body := strings.TrimSpace(text[bodyStart:bodyEnd])
		if body == "" {
			continue
		}

		number := 0
		for _, ch := range numberStr {
			number = number*10 + int(ch-'0')
		}
		if number <= 0 {
			continue
		}

		q := models.NewQuestion("", 0, number)
		q.QuestionText = body
		options.Separate(q)
		q.QuestionText = options.Clean(q.QuestionText)
		out = append(out, q)
	}
	return out
}
