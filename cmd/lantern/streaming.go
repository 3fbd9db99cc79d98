package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/lanternml/lantern/internal/inference"
)

type StreamMode string

const (
	StreamInstant    StreamMode = "instant"
	StreamTypewriter StreamMode = "typewriter"
	StreamQuiet      StreamMode = "quiet"
	StreamNDJSON     StreamMode = "ndjson"
)

// typewriterRate paces character output in the typewriter mode.
const typewriterRate = 160 // chars per second

// StreamWriter renders generation output according to the selected
// mode. Write is called from the generation goroutine in emission
// order; Finish is called once after the generation ends.
type StreamWriter struct {
	mode    StreamMode
	out     *bufio.Writer
	limiter *rate.Limiter
	quiet   strings.Builder
}

func NewStreamWriter(mode StreamMode, w io.Writer) *StreamWriter {
	sw := &StreamWriter{
		mode: mode,
		out:  bufio.NewWriterSize(w, 4096),
	}
	if mode == StreamTypewriter {
		sw.limiter = rate.NewLimiter(rate.Limit(typewriterRate), 1)
	}
	return sw
}

func (w *StreamWriter) Write(token string) {
	switch w.mode {
	case StreamInstant:
		_, _ = w.out.WriteString(token)
		_ = w.out.Flush()
	case StreamTypewriter:
		for _, r := range token {
			_ = w.limiter.Wait(context.Background())
			_, _ = w.out.WriteRune(r)
			_ = w.out.Flush()
		}
	case StreamQuiet:
		w.quiet.WriteString(token)
	case StreamNDJSON:
		w.writeLine(tokenLine{Token: token})
	}
}

// Finish completes the stream. Quiet mode prints the accumulated text,
// NDJSON emits the terminal record, the rest just flush.
func (w *StreamWriter) Finish(res inference.Result) {
	switch w.mode {
	case StreamQuiet:
		_, _ = w.out.WriteString(w.quiet.String())
		_, _ = w.out.WriteString("\n")
	case StreamNDJSON:
		w.writeLine(doneLine{
			Done:            true,
			FinishReason:    string(res.FinishReason),
			TokensGenerated: res.TokensGenerated,
			PromptTokens:    res.PromptTokens,
			DurationMs:      res.Duration.Milliseconds(),
			TPS:             res.TPS,
		})
	default:
		_, _ = w.out.WriteString("\n")
	}
	_ = w.out.Flush()
}

type tokenLine struct {
	Token string `json:"token"`
}

type doneLine struct {
	Done            bool    `json:"done"`
	FinishReason    string  `json:"finish_reason"`
	TokensGenerated int     `json:"tokens_generated"`
	PromptTokens    int     `json:"prompt_tokens"`
	DurationMs      int64   `json:"duration_ms"`
	TPS             float64 `json:"tokens_per_second"`
}

func (w *StreamWriter) writeLine(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = w.out.Write(b)
	_, _ = w.out.WriteString("\n")
	_ = w.out.Flush()
}

func parseStreamMode(s string) (StreamMode, error) {
	switch StreamMode(s) {
	case StreamInstant, StreamTypewriter, StreamQuiet, StreamNDJSON:
		return StreamMode(s), nil
	case "":
		return StreamInstant, nil
	default:
		return "", fmt.Errorf("unknown stream mode %q (instant, typewriter, quiet, ndjson)", s)
	}
}
