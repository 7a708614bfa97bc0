package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fenceRe         = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSONObject returns the first top-level JSON object embedded in
// a completion, stripping markdown fences and applying progressive
// cleanups. On failure it returns a BadJSONError carrying the raw text.
func ExtractJSONObject(text string) (json.RawMessage, error) {
	return extractJSON(text, '{', '}')
}

// ExtractJSONArray is ExtractJSONObject for top-level arrays.
func ExtractJSONArray(text string) (json.RawMessage, error) {
	return extractJSON(text, '[', ']')
}

func extractJSON(text string, open, close byte) (json.RawMessage, error) {
	candidate := text
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	}

	start := strings.IndexByte(candidate, open)
	if start < 0 {
		return nil, &BadJSONError{Raw: text, Reason: "no JSON document found"}
	}

	span := sliceBalanced(candidate[start:], open, close)

	// Progressive cleanups: raw, trailing commas dropped, quotes balanced.
	attempts := []string{
		span,
		trailingCommaRe.ReplaceAllString(span, "$1"),
		balanceQuotes(trailingCommaRe.ReplaceAllString(span, "$1")),
	}
	for _, attempt := range attempts {
		if json.Valid([]byte(attempt)) {
			return json.RawMessage(attempt), nil
		}
	}
	return nil, &BadJSONError{Raw: text, Reason: "cleanups exhausted"}
}

// sliceBalanced returns the prefix of s up to the delimiter matching
// the leading one, tracking string literals and escapes. When the
// document is truncated the whole remainder is returned so cleanups
// can still try to repair it.
func sliceBalanced(s string, open, close byte) string {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			depth++
		case ch == close:
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return s
}

// balanceQuotes appends a closing quote and any missing closing
// delimiters to a truncated document.
func balanceQuotes(s string) string {
	inString := false
	escaped := false
	var stack []byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			stack = append(stack, '}')
		case ch == '[':
			stack = append(stack, ']')
		case ch == '}' || ch == ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	out := s
	if inString {
		out += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		out += string(stack[i])
	}
	return out
}
