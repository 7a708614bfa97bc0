package annotate

import "time"

// Preset fixes the per-provider knobs. Both providers share the prompt,
// schema and batching logic; only the model label, timeout and token
// budget differ.
type Preset struct {
	Provider    string // "grok" or "openai"
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// GrokPreset returns the xAI configuration. Grok is given a longer
// timeout; its structured replies tend to stream slowly.
func GrokPreset(model string) Preset {
	if model == "" {
		model = "grok-2-latest"
	}
	return Preset{
		Provider:    "grok",
		Model:       model,
		Temperature: 0.3,
		MaxTokens:   8000,
		Timeout:     180 * time.Second,
	}
}

// OpenAIPreset returns the OpenAI configuration.
func OpenAIPreset(model string) Preset {
	if model == "" {
		model = "gpt-4o"
	}
	return Preset{
		Provider:    "openai",
		Model:       model,
		Temperature: 0.3,
		MaxTokens:   6000,
		Timeout:     120 * time.Second,
	}
}

// AnalysisMethod labels the output envelope.
func (p Preset) AnalysisMethod() string {
	return p.Provider + "_batch"
}

// OutputSuffix is the conventional filename suffix for the provider.
func (p Preset) OutputSuffix() string {
	return p.Provider + "_analyzed"
}
