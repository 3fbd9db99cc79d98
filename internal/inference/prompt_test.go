package inference

import (
	"errors"
	"strings"
	"testing"
)

func TestBuildPromptEmpty(t *testing.T) {
	t.Parallel()
	_, err := BuildPrompt("", false, Request{})
	if !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
}

func TestBuildPromptSystemOnly(t *testing.T) {
	t.Parallel()
	out, err := BuildPrompt("", false, Request{System: "be brief"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "system: be brief\n") {
		t.Fatalf("expected system turn, got %q", out)
	}
	if !strings.HasSuffix(out, "assistant: ") {
		t.Fatalf("expected generation marker suffix, got %q", out)
	}
}

func TestBuildPromptPlainFallback(t *testing.T) {
	t.Parallel()
	req := Request{Messages: []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "bye"},
	}}
	out, err := BuildPrompt("", false, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "user: hi\nassistant: hello\nuser: bye\nassistant: "
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestBuildPromptNormalizesRoles(t *testing.T) {
	t.Parallel()
	req := Request{Messages: []Message{
		{Role: "USER", Content: "a"},
		{Role: "tool", Content: "b"},
		{Role: " Assistant ", Content: "c"},
	}}
	out, err := BuildPrompt("", false, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "user: a\nuser: b\nassistant: c\nassistant: "
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestBuildPromptChatML(t *testing.T) {
	t.Parallel()
	tmpl := "{% for message in messages %}<|im_start|>{{ message.role }}..."
	req := Request{
		System:   "sys",
		Messages: []Message{{Role: "user", Content: "hi"}},
	}
	out, err := BuildPrompt(tmpl, true, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "<|im_start|>system\nsys<|im_end|>\n") {
		t.Fatalf("missing system turn: %q", out)
	}
	if !strings.Contains(out, "<|im_start|>user\nhi<|im_end|>\n") {
		t.Fatalf("missing user turn: %q", out)
	}
	if !strings.HasSuffix(out, "<|im_start|>assistant\n") {
		t.Fatalf("missing generation marker: %q", out)
	}
}

func TestBuildPromptLlama3(t *testing.T) {
	t.Parallel()
	tmpl := "...<|start_header_id|>{{ role }}<|end_header_id|>..."
	req := Request{Messages: []Message{{Role: "user", Content: "hi"}}}
	out, err := BuildPrompt(tmpl, true, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "<|start_header_id|>user<|end_header_id|>\n\nhi<|eot_id|>") {
		t.Fatalf("missing user turn: %q", out)
	}
	if !strings.HasSuffix(out, "<|start_header_id|>assistant<|end_header_id|>\n\n") {
		t.Fatalf("missing generation marker: %q", out)
	}
}

func TestBuildPromptGemmaMapsRoles(t *testing.T) {
	t.Parallel()
	tmpl := "...<start_of_turn>..."
	req := Request{
		System: "sys",
		Messages: []Message{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "yo"},
		},
	}
	out, err := BuildPrompt(tmpl, true, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "<start_of_turn>system") {
		t.Fatalf("gemma format must not contain a system role: %q", out)
	}
	if !strings.Contains(out, "<start_of_turn>model\nyo<end_of_turn>\n") {
		t.Fatalf("assistant turn must render as model: %q", out)
	}
	if !strings.HasSuffix(out, "<start_of_turn>model\n") {
		t.Fatalf("missing generation marker: %q", out)
	}
}

func TestBuildPromptLlama2(t *testing.T) {
	t.Parallel()
	tmpl := "{% if ... %}[INST]..."
	req := Request{
		System:   "sys",
		Messages: []Message{{Role: "user", Content: "hi"}},
	}
	out, err := BuildPrompt(tmpl, true, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "<<SYS>>\nsys\n<</SYS>>") {
		t.Fatalf("missing system block: %q", out)
	}
	if !strings.Contains(out, "hi [/INST]") {
		t.Fatalf("missing instruction block: %q", out)
	}
}

func TestBuildPromptNoTemplateForcesPlain(t *testing.T) {
	t.Parallel()
	tmpl := "<|im_start|>..."
	req := Request{
		Messages:   []Message{{Role: "user", Content: "hi"}},
		NoTemplate: true,
	}
	out, err := BuildPrompt(tmpl, true, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "<|im_start|>") {
		t.Fatalf("NoTemplate must skip template rendering: %q", out)
	}
	if out != "user: hi\nassistant: " {
		t.Fatalf("expected plain rendering, got %q", out)
	}
}

func TestBuildPromptUnknownTemplateFallsBack(t *testing.T) {
	t.Parallel()
	out, err := BuildPrompt("{{ bespoke_format }}", true, Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "user: hi\nassistant: " {
		t.Fatalf("expected plain fallback, got %q", out)
	}
}
