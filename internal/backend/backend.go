// Package backend defines the loaded-model surface the inference engine
// drives. Implementations own the weights, the tokenizer and the token
// cache; the engine owns everything above that (prompt rendering,
// sampling, stop detection, streaming).
package backend

import (
	"fmt"
	"strings"
)

// Known backend names.
const (
	Auto     = "auto"
	LlamaCpp = "llamacpp"
)

// Normalize canonicalizes a backend name. Empty means auto.
func Normalize(name string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(name))
	if backend == "" {
		return Auto, nil
	}
	switch backend {
	case Auto, LlamaCpp:
		return backend, nil
	default:
		return "", fmt.Errorf("unknown backend %q (expected auto or llamacpp)", backend)
	}
}

// Config controls how a model file is opened.
type Config struct {
	// ContextLength is the requested context window. Zero or negative
	// means "use the model's trained length". Values above the trained
	// length are clamped, never rejected.
	ContextLength int
	// BatchSize is the maximum number of tokens per prefill call.
	BatchSize int
	// GPULayers is the number of layers to offload, -1 for all.
	GPULayers int
	// Threads for CPU decode. Zero picks a runtime default.
	Threads int
	// LibraryPath optionally points at the shared inference library.
	LibraryPath string
}

// Info describes a loaded model.
type Info struct {
	Path                 string
	ContextLength        int
	TrainedContextLength int
	Name                 string
	Architecture         string
}

// Runtime is a loaded model. Calls are not goroutine-safe; the engine
// guarantees a single caller at a time. Prefill and DecodeNext are
// synchronous and may block for the full duration of a forward pass.
type Runtime interface {
	// Tokenize converts text to token ids, adding the model's leading
	// special tokens when addSpecial is set.
	Tokenize(text string, addSpecial bool) ([]int, error)

	// ChatTemplate returns the model's declared chat template, if any.
	ChatTemplate() (string, bool)

	// ContextLength is the effective (possibly clamped) context window.
	ContextLength() int

	// TrainedContextLength is the window the model was trained with.
	TrainedContextLength() int

	// Info describes the loaded model.
	Info() Info

	// Metadata returns the model's key/value metadata.
	Metadata() map[string]string

	// Prefill decodes the whole prompt in batches, populating the token
	// cache, and returns the logits for the last position.
	Prefill(tokens []int) ([]float32, error)

	// DecodeNext feeds one sampled token back in and returns the logits
	// for the next position.
	DecodeNext(token int) ([]float32, error)

	// TokenToText converts a token id to its raw bytes. The bytes may
	// end mid code point; callers must buffer accordingly.
	TokenToText(token int) []byte

	// IsEndOfGeneration reports whether the token terminates generation.
	IsEndOfGeneration(token int) bool

	// ResetCache clears the token cache so the next generation starts
	// from an empty context.
	ResetCache()

	// Close releases the model and its context. Idempotent.
	Close() error
}

// OpenFunc opens a model file and returns a ready Runtime.
type OpenFunc func(path string, cfg Config) (Runtime, error)
