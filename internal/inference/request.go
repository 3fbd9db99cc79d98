package inference

import "github.com/lanternml/lantern/internal/logits"

// Options carries caller-supplied overrides. Nil fields keep the
// engine defaults, so partial configuration sources (flags, config
// files, API payloads) can be merged without sentinel values.
type Options struct {
	System   *string
	Messages []Message

	MaxTokens *int
	Stop      []string

	Seed          *int64
	Temperature   *float32
	TopK          *int
	TopP          *float32
	MinP          *float32
	RepeatPenalty *float32
	RepeatLastN   *int

	NoTemplate *bool
	EchoPrompt *bool
}

// ResolveRequest merges opts over the sampling defaults into a concrete
// Request.
func ResolveRequest(opts Options, defaults logits.Config) Request {
	req := Request{
		Messages:  opts.Messages,
		MaxTokens: -1,
		Stop:      opts.Stop,
		Sampling:  defaults,
	}

	if opts.System != nil {
		req.System = *opts.System
	}
	if opts.MaxTokens != nil {
		req.MaxTokens = *opts.MaxTokens
	}
	if opts.Seed != nil {
		req.Sampling.Seed = *opts.Seed
	}
	if opts.Temperature != nil {
		req.Sampling.Temperature = *opts.Temperature
	}
	if opts.TopK != nil {
		req.Sampling.TopK = *opts.TopK
	}
	if opts.TopP != nil {
		req.Sampling.TopP = *opts.TopP
	}
	if opts.MinP != nil {
		req.Sampling.MinP = *opts.MinP
	}
	if opts.RepeatPenalty != nil {
		req.Sampling.RepeatPenalty = *opts.RepeatPenalty
	}
	if opts.RepeatLastN != nil {
		req.Sampling.RepeatLastN = *opts.RepeatLastN
	}
	if opts.NoTemplate != nil {
		req.NoTemplate = *opts.NoTemplate
	}
	if opts.EchoPrompt != nil {
		req.EchoPrompt = *opts.EchoPrompt
	}

	return req
}
