package main

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/lanternml/lantern/internal/inference"
)

func TestStreamInstantPassesTokensThrough(t *testing.T) {
	var buf bytes.Buffer
	w := NewStreamWriter(StreamInstant, &buf)
	w.Write("Hello")
	w.Write(", world")
	if got := buf.String(); got != "Hello, world" {
		t.Errorf("output = %q, want %q", got, "Hello, world")
	}
	w.Finish(inference.Result{})
	if got := buf.String(); got != "Hello, world\n" {
		t.Errorf("after Finish = %q", got)
	}
}

func TestStreamQuietHoldsUntilFinish(t *testing.T) {
	var buf bytes.Buffer
	w := NewStreamWriter(StreamQuiet, &buf)
	w.Write("part one ")
	w.Write("part two")
	if buf.Len() != 0 {
		t.Fatalf("quiet mode wrote before Finish: %q", buf.String())
	}
	w.Finish(inference.Result{})
	if got := buf.String(); got != "part one part two\n" {
		t.Errorf("output = %q", got)
	}
}

func TestStreamNDJSON(t *testing.T) {
	var buf bytes.Buffer
	w := NewStreamWriter(StreamNDJSON, &buf)
	w.Write("tok1")
	w.Write("tok2")
	w.Finish(inference.Result{
		FinishReason:    inference.FinishStop,
		TokensGenerated: 2,
		PromptTokens:    10,
		Duration:        1500 * time.Millisecond,
		TPS:             1.33,
	})

	sc := bufio.NewScanner(&buf)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %v", len(lines), lines)
	}

	var tok tokenLine
	if err := json.Unmarshal([]byte(lines[0]), &tok); err != nil {
		t.Fatalf("unmarshal token line: %v", err)
	}
	if tok.Token != "tok1" {
		t.Errorf("first token = %q", tok.Token)
	}

	var done doneLine
	if err := json.Unmarshal([]byte(lines[2]), &done); err != nil {
		t.Fatalf("unmarshal done line: %v", err)
	}
	if !done.Done {
		t.Error("done line should have done=true")
	}
	if done.FinishReason != "stop" {
		t.Errorf("finish_reason = %q", done.FinishReason)
	}
	if done.TokensGenerated != 2 || done.PromptTokens != 10 {
		t.Errorf("counts = %d/%d", done.TokensGenerated, done.PromptTokens)
	}
	if done.DurationMs != 1500 {
		t.Errorf("duration_ms = %d", done.DurationMs)
	}
}

func TestParseStreamMode(t *testing.T) {
	cases := []struct {
		in      string
		want    StreamMode
		wantErr bool
	}{
		{"instant", StreamInstant, false},
		{"typewriter", StreamTypewriter, false},
		{"quiet", StreamQuiet, false},
		{"ndjson", StreamNDJSON, false},
		{"", StreamInstant, false},
		{"fast", "", true},
	}
	for _, tc := range cases {
		got, err := parseStreamMode(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseStreamMode(%q) should fail", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseStreamMode(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseStreamMode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSplitStopSequences(t *testing.T) {
	if got := splitStopSequences(""); got != nil {
		t.Errorf("empty input should yield nil, got %v", got)
	}
	got := splitStopSequences("###,END,")
	want := []string{"###", "END"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("got %v, want %v", got, want)
	}
}
