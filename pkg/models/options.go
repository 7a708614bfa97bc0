package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// OptionLetters is the fixed set of option keys in presentation order.
var OptionLetters = []string{"A", "B", "C", "D"}

// OptionMap maps option letters to option text while preserving the
// order the options were inserted. Serialization keeps that order
// instead of re-sorting keys, so a paper whose options were emitted
// B, A, C, D round-trips unchanged.
type OptionMap struct {
	keys   []string
	values map[string]string
}

// NewOptionMap builds an OptionMap from four texts in A..D order.
func NewOptionMap(a, b, c, d string) OptionMap {
	var m OptionMap
	m.Set("A", a)
	m.Set("B", b)
	m.Set("C", c)
	m.Set("D", d)
	return m
}

// Set inserts or replaces the text for a letter. Insertion order is
// kept for new letters.
func (m *OptionMap) Set(letter, text string) {
	if m.values == nil {
		m.values = make(map[string]string, 4)
	}
	if _, ok := m.values[letter]; !ok {
		m.keys = append(m.keys, letter)
	}
	m.values[letter] = text
}

// Get returns the text for a letter.
func (m OptionMap) Get(letter string) (string, bool) {
	text, ok := m.values[letter]
	return text, ok
}

// Has reports whether the letter is present.
func (m OptionMap) Has(letter string) bool {
	_, ok := m.values[letter]
	return ok
}

// Len returns the number of options.
func (m OptionMap) Len() int { return len(m.keys) }

// Letters returns the letters in insertion order.
func (m OptionMap) Letters() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Validate checks the option-completeness invariant: exactly four
// options, unique letters A-D, every text non-empty after trimming.
func (m OptionMap) Validate() error {
	if len(m.keys) != 4 {
		return fmt.Errorf("expected 4 options, got %d", len(m.keys))
	}
	seen := make(map[string]bool, 4)
	for _, letter := range m.keys {
		if !isOptionLetter(letter) {
			return fmt.Errorf("invalid option letter: %q", letter)
		}
		if seen[letter] {
			return fmt.Errorf("duplicate option letter: %q", letter)
		}
		seen[letter] = true
		if strings.TrimSpace(m.values[letter]) == "" {
			return fmt.Errorf("option %s has empty text", letter)
		}
	}
	return nil
}

// MarshalJSON emits the options as a JSON object in insertion order.
func (m OptionMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, letter := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(letter)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.values[letter])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object preserving key order via the token
// stream. Unknown keys are kept so Validate can report them. JSON null
// is accepted as an empty map, matching models that emit
// "options": null for questions they could not read.
func (m *OptionMap) UnmarshalJSON(data []byte) error {
	m.keys = nil
	m.values = nil

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("options: expected JSON object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		letter, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("options: non-string key %v", keyTok)
		}
		var text string
		if err := dec.Decode(&text); err != nil {
			return fmt.Errorf("options: value for %q: %w", letter, err)
		}
		m.Set(strings.ToUpper(strings.TrimSpace(letter)), text)
	}
	_, err = dec.Token() // closing brace
	return err
}
