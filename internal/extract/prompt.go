package extract

import (
	"fmt"
	"sort"
	"strings"
)

const extractionSystemPrompt = `You are a meticulous digitiser of Indian civil-service examination papers.

The OCR text you receive comes from scanned previous-year question (PYQ) compilations. Pages may carry TWO columns: the "Original PYQ" column with the official paper, and an adjacent test-series or commentary column. Extract questions ONLY from the Original PYQ column and ignore the test-series column entirely, including its answer discussions.

For every complete multiple-choice question you find, emit one record with exactly these fields:
  "question_number": integer as printed on the paper
  "question_text": the full statement WITHOUT the options
  "options": object mapping "A","B","C","D" to the option texts
  "correct_answer": "A"|"B"|"C"|"D" if an answer key is printed, otherwise ""
  "paper": paper label if printed (e.g. "Prelims GS1"), otherwise ""
  "section": section label if printed, otherwise ""

Rules:
- Return ONLY a JSON array of these records, no prose before or after.
- Do NOT invent questions; skip fragments whose text or options are cut off by the page boundary.
- Keep statement-style questions (with numbered statements) intact inside question_text.
- No trailing commas; double-check the JSON syntax.`

func (e *Extractor) buildChunkPrompt(chunkText string) string {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Exam: %s, Year: %d\n\n", e.cfg.Exam, e.cfg.Year)
	prompt.WriteString("OCR text of the page window:\n\n")
	prompt.WriteString(chunkText)
	prompt.WriteString("\n\nReturn the JSON array of question records now.")
	return prompt.String()
}

// buildTargetedPrompt scopes the request to an explicit set of question
// numbers for gap repair.
func buildTargetedPrompt(exam string, year int, numbers []int, pageText string) string {
	sorted := append([]int(nil), numbers...)
	sort.Ints(sorted)
	labels := make([]string, len(sorted))
	for i, n := range sorted {
		labels[i] = fmt.Sprintf("%d", n)
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Exam: %s, Year: %d\n\n", exam, year)
	fmt.Fprintf(&prompt, "Extract ONLY questions %s from the Original PYQ column of the text below. ", strings.Join(labels, ", "))
	prompt.WriteString("Return a JSON array with exactly one record per requested number and nothing else. ")
	prompt.WriteString("If a requested question is not present in the text, omit it.\n\n")
	prompt.WriteString(pageText)
	prompt.WriteString("\n\nReturn the JSON array now.")
	return prompt.String()
}
