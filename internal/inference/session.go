package inference

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lanternml/lantern/internal/backend"
	"github.com/lanternml/lantern/internal/logits"
)

// contextMargin reserves room for at least one generated token plus
// end-of-sequence bookkeeping when checking whether a prompt fits.
const contextMargin = 4

// Generation is one in-flight decode loop. Created by Engine.Start,
// not reusable after it finishes.
type Generation struct {
	id      string
	engine  *Engine
	rt      backend.Runtime
	cb      Callbacks
	sampler *logits.Sampler
	stop    *StopMatcher

	prompt       string
	promptTokens []int
	limit        int
	echoPrompt   bool

	cancelled atomic.Bool
	done      chan struct{}
	result    Result
	err       error
}

// newGeneration validates the request and prepares the loop state. The
// caller already holds the engine's inflight slot; on error the caller
// releases it and nothing has touched the token cache yet.
func newGeneration(e *Engine, rt backend.Runtime, req Request, cb Callbacks) (*Generation, error) {
	template, hasTemplate := rt.ChatTemplate()
	prompt, err := BuildPrompt(template, hasTemplate, req)
	if err != nil {
		return nil, err
	}

	promptTokens, err := rt.Tokenize(prompt, true)
	if err != nil {
		return nil, &DecodeError{Stage: "tokenize", Err: err}
	}

	ctxLen := rt.ContextLength()
	if len(promptTokens)+contextMargin >= ctxLen {
		return nil, &PromptTooLongError{
			PromptTokens:  len(promptTokens),
			ContextLength: ctxLen,
		}
	}

	budget := ctxLen - len(promptTokens) - contextMargin
	limit := req.MaxTokens
	if limit <= 0 || limit > budget {
		limit = budget
	}

	return &Generation{
		id:           uuid.New().String(),
		engine:       e,
		rt:           rt,
		cb:           cb,
		sampler:      logits.New(req.Sampling),
		stop:         NewStopMatcher(req.Stop),
		prompt:       prompt,
		promptTokens: promptTokens,
		limit:        limit,
		echoPrompt:   req.EchoPrompt,
		done:         make(chan struct{}),
	}, nil
}

// ID identifies this generation in logs.
func (g *Generation) ID() string { return g.id }

// Cancel requests a cooperative stop. Idempotent and safe after the
// generation has finished; the loop observes it within one token.
func (g *Generation) Cancel() { g.cancelled.Store(true) }

// Done is closed when the generation reaches a terminal state.
func (g *Generation) Done() <-chan struct{} { return g.done }

// Wait blocks until the generation finishes and returns its outcome.
// The error is non-nil only for FinishError results.
func (g *Generation) Wait() (Result, error) {
	<-g.done
	return g.result, g.err
}

func (g *Generation) run() {
	defer g.engine.inflight.Release(1)
	defer close(g.done)
	// The token cache is cleared on every exit path so the next
	// generation starts from an empty context.
	defer g.rt.ResetCache()

	log := g.engine.log.With("generation", g.id)
	log.Debug("generation started",
		"prompt_tokens", len(g.promptTokens),
		"max_tokens", g.limit,
	)

	start := time.Now()

	if g.echoPrompt && g.cb.OnToken != nil {
		g.cb.OnToken(g.prompt)
	}

	var (
		text      strings.Builder
		buf       Utf8StreamBuffer
		pending   string
		recent    []int
		generated int
	)

	emit := func(s string) {
		if s == "" {
			return
		}
		text.WriteString(s)
		if g.cb.OnToken != nil {
			g.cb.OnToken(s)
		}
	}

	finish := func(reason FinishReason, cause error) {
		elapsed := time.Since(start)
		g.result = Result{
			ID:              g.id,
			Text:            text.String(),
			TokensGenerated: generated,
			PromptTokens:    len(g.promptTokens),
			Duration:        elapsed,
			FinishReason:    reason,
		}
		if elapsed.Seconds() > 0 {
			g.result.TPS = float64(generated) / elapsed.Seconds()
		}
		g.err = cause
		if cause != nil {
			log.Warn("generation failed", "error", cause, "tokens", generated)
			if g.cb.OnError != nil {
				g.cb.OnError(cause, g.result)
			}
			return
		}
		log.Debug("generation finished",
			"reason", string(reason),
			"tokens", generated,
			"tps", g.result.TPS,
		)
		if g.cb.OnComplete != nil {
			g.cb.OnComplete(g.result)
		}
	}

	// flushTail drains the byte buffer at a terminal transition and
	// applies one last stop check to the drained text.
	flushTail := func() {
		pending += string(buf.Flush())
		if idx, ok := g.stop.Find(pending); ok {
			pending = pending[:idx]
		}
		emit(pending)
		pending = ""
	}

	logitsVec, err := g.rt.Prefill(g.promptTokens)
	if err != nil {
		finish(FinishError, &DecodeError{Stage: "prefill", Err: err})
		return
	}

	for {
		next := g.sampler.Sample(logitsVec, recent)

		if g.rt.IsEndOfGeneration(next) {
			flushTail()
			finish(FinishStop, nil)
			return
		}
		recent = append(recent, next)

		if out := buf.Push(g.rt.TokenToText(next)); len(out) > 0 {
			pending += string(out)
			if idx, ok := g.stop.Find(pending); ok {
				// The delimiter and anything after it never reach the
				// caller.
				emit(pending[:idx])
				finish(FinishStop, nil)
				return
			}
			hold := g.stop.SuffixHold(pending)
			if n := len(pending) - hold; n > 0 {
				emit(pending[:n])
				pending = pending[n:]
			}
		}

		if g.cancelled.Load() {
			flushTail()
			finish(FinishCancelled, nil)
			return
		}

		logitsVec, err = g.rt.DecodeNext(next)
		if err != nil {
			flushTail()
			finish(FinishError, &DecodeError{Stage: "decode", Err: err})
			return
		}

		generated++
		if generated >= g.limit {
			flushTail()
			finish(FinishLength, nil)
			return
		}
	}
}
