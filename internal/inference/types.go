package inference

import (
	"time"

	"github.com/lanternml/lantern/internal/logits"
)

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// FinishReason says why a generation stopped.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishLength    FinishReason = "length"
	FinishCancelled FinishReason = "cancelled"
	FinishError     FinishReason = "error"
)

// Request describes one generation. Immutable once submitted; the
// session copies what it needs at start.
type Request struct {
	System   string
	Messages []Message

	// MaxTokens caps generated tokens. Non-positive means "as many as
	// the context window allows".
	MaxTokens int

	// Stop sequences supplied by the caller, checked alongside the
	// built-in turn delimiters.
	Stop []string

	Sampling logits.Config

	// NoTemplate skips the model's chat template and uses the plain
	// "{role}: {content}" rendering.
	NoTemplate bool

	// EchoPrompt streams the rendered prompt before generated text.
	EchoPrompt bool
}

// Result is the final outcome of a generation, complete or partial.
type Result struct {
	ID              string
	Text            string
	TokensGenerated int
	PromptTokens    int
	Duration        time.Duration
	TPS             float64
	FinishReason    FinishReason
}

// Callbacks receive streaming output and the terminal outcome. OnToken
// is called in strict emission order from the generation goroutine.
// Exactly one of OnComplete or OnError fires, last.
type Callbacks struct {
	OnToken    func(text string)
	OnComplete func(res Result)
	OnError    func(err error, partial Result)
}

// ModelInfo describes the currently loaded model.
type ModelInfo struct {
	Path                 string            `json:"path"`
	Name                 string            `json:"name,omitempty"`
	Architecture         string            `json:"architecture,omitempty"`
	ContextLength        int               `json:"context_length"`
	TrainedContextLength int               `json:"trained_context_length"`
	HasChatTemplate      bool              `json:"has_chat_template"`
	SamplerDefaults      logits.Config     `json:"sampler_defaults"`
	Metadata             map[string]string `json:"metadata,omitempty"`
}
