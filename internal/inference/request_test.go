package inference

import (
	"testing"

	"github.com/lanternml/lantern/internal/logits"
)

func TestResolveRequestDefaults(t *testing.T) {
	t.Parallel()
	req := ResolveRequest(Options{}, logits.Defaults())

	if req.MaxTokens != -1 {
		t.Fatalf("expected unlimited max tokens, got %d", req.MaxTokens)
	}
	if req.Sampling != logits.Defaults() {
		t.Fatalf("expected default sampling, got %+v", req.Sampling)
	}
	if req.NoTemplate || req.EchoPrompt {
		t.Fatal("expected template rendering and no prompt echo by default")
	}
}

func TestResolveRequestOverrides(t *testing.T) {
	t.Parallel()
	system := "be terse"
	maxTokens := 32
	seed := int64(7)
	temp := float32(0)
	topK := 1
	noTemplate := true

	req := ResolveRequest(Options{
		System:      &system,
		Messages:    []Message{{Role: "user", Content: "hi"}},
		MaxTokens:   &maxTokens,
		Stop:        []string{"###"},
		Seed:        &seed,
		Temperature: &temp,
		TopK:        &topK,
		NoTemplate:  &noTemplate,
	}, logits.Defaults())

	if req.System != system || req.MaxTokens != 32 {
		t.Fatalf("overrides not applied: %+v", req)
	}
	if req.Sampling.Seed != 7 || req.Sampling.Temperature != 0 || req.Sampling.TopK != 1 {
		t.Fatalf("sampling overrides not applied: %+v", req.Sampling)
	}
	// Untouched fields keep their defaults.
	if req.Sampling.TopP != logits.Defaults().TopP {
		t.Fatalf("expected default TopP, got %v", req.Sampling.TopP)
	}
	if !req.NoTemplate {
		t.Fatal("expected NoTemplate override")
	}
	if len(req.Stop) != 1 || req.Stop[0] != "###" {
		t.Fatalf("expected stop sequences, got %v", req.Stop)
	}
}
