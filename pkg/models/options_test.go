package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionMapPreservesInsertionOrder(t *testing.T) {
	var m OptionMap
	m.Set("B", "second")
	m.Set("A", "first")
	m.Set("C", "third")
	m.Set("D", "fourth")

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"B":"second","A":"first","C":"third","D":"fourth"}`, string(data))

	var back OptionMap
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []string{"B", "A", "C", "D"}, back.Letters())
}

func TestOptionMapUnmarshalUppercasesKeys(t *testing.T) {
	var m OptionMap
	require.NoError(t, json.Unmarshal([]byte(`{"a":"one","b":"two","c":"three","d":"four"}`), &m))

	assert.Equal(t, []string{"A", "B", "C", "D"}, m.Letters())
	text, ok := m.Get("A")
	assert.True(t, ok)
	assert.Equal(t, "one", text)
}

func TestOptionMapUnmarshalNullAsEmpty(t *testing.T) {
	m := NewOptionMap("one", "two", "three", "four")
	require.NoError(t, json.Unmarshal([]byte(`null`), &m))
	assert.Equal(t, 0, m.Len())

	// A struct field holding null must not fail the whole record.
	var rec struct {
		Options OptionMap `json:"options"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"options": null}`), &rec))
	assert.Equal(t, 0, rec.Options.Len())

	require.Error(t, json.Unmarshal([]byte(`"not an object"`), &m))
}

func TestOptionMapValidate(t *testing.T) {
	valid := NewOptionMap("one", "two", "three", "four")
	assert.NoError(t, valid.Validate())

	var short OptionMap
	short.Set("A", "one")
	assert.Error(t, short.Validate())

	empty := NewOptionMap("one", "  ", "three", "four")
	assert.Error(t, empty.Validate())

	var bad OptionMap
	bad.Set("A", "one")
	bad.Set("B", "two")
	bad.Set("C", "three")
	bad.Set("E", "five")
	assert.Error(t, bad.Validate())
}
