package inference

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned for operations that need a loaded model.
	ErrNotReady = errors.New("no model is loaded")

	// ErrSessionBusy rejects a second generation while one is active.
	// Callers queue or retry; the engine never does.
	ErrSessionBusy = errors.New("a generation is already in progress")

	// ErrEmptyPrompt is returned when neither a system prompt nor any
	// message content is present.
	ErrEmptyPrompt = errors.New("conversation has no content")
)

// LoadError wraps a failure to load a model file. The engine stays
// unloaded when it is returned.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// PromptTooLongError is returned before any backend work when the
// tokenized prompt cannot leave room for generated output.
type PromptTooLongError struct {
	PromptTokens  int
	ContextLength int
}

func (e *PromptTooLongError) Error() string {
	return fmt.Sprintf("prompt of %d tokens does not fit context window of %d", e.PromptTokens, e.ContextLength)
}

// DecodeError wraps a backend failure during prefill or incremental
// decode. It fails the current generation only; the model stays loaded.
type DecodeError struct {
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("backend %s failed: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsPromptTooLong reports whether err is a PromptTooLongError.
func IsPromptTooLong(err error) bool {
	var e *PromptTooLongError
	return errors.As(err, &e)
}

// IsDecodeError reports whether err is a DecodeError.
func IsDecodeError(err error) bool {
	var e *DecodeError
	return errors.As(err, &e)
}
