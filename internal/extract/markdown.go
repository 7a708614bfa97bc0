package extract

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"pyqbank/internal/options"
	"pyqbank/pkg/models"
)

var standaloneNumberRe = regexp.MustCompile(`^\s*(\d{1,3})[.)]?\s*$`)

// ParseMarkdownDump reads a manual question dump: UTF-8 text with
// blocks separated by a line of three hyphens, each block opening with
// the question number on a standalone line. Inline options are
// separated out where present.
//
// Blocks without a leading number line are skipped and reported.
func ParseMarkdownDump(r io.Reader, exam string, year int) ([]*models.Question, []string, error) {
	var blocks []string
	var current strings.Builder

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			blocks = append(blocks, current.String())
			current.Reset()
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("markdown dump: %w", err)
	}
	blocks = append(blocks, current.String())

	var questions []*models.Question
	var skipped []string
	for i, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		q, err := parseDumpBlock(block, exam, year)
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("block %d: %v", i+1, err))
			continue
		}
		questions = append(questions, q)
	}
	return questions, skipped, nil
}

func parseDumpBlock(block, exam string, year int) (*models.Question, error) {
	lines := strings.SplitN(block, "\n", 2)
	m := standaloneNumberRe.FindStringSubmatch(lines[0])
	if m == nil {
		return nil, fmt.Errorf("no standalone question number in first line %q", lines[0])
	}
	number, err := strconv.Atoi(m[1])
	if err != nil || number <= 0 {
		return nil, fmt.Errorf("invalid question number %q", m[1])
	}
	if len(lines) < 2 || strings.TrimSpace(lines[1]) == "" {
		return nil, fmt.Errorf("question %d has no body", number)
	}

	q := models.NewQuestion(exam, year, number)
	q.QuestionText = strings.TrimSpace(lines[1])
	options.Separate(q)
	q.QuestionText = options.Clean(q.QuestionText)
	return q, nil
}
