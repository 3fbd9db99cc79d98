package inference

import "strings"

// defaultStopSequences are the turn delimiters recognized for every
// generation, regardless of the request's own stop list. They cover the
// common end-of-turn markers plus the plain-text speaker prefixes the
// fallback prompt format can produce.
var defaultStopSequences = []string{
	"<|im_end|>",
	"<|eot_id|>",
	"</s>",
	"<|end|>",
	"<|endoftext|>",
	"\n\nUser:",
	"\n\nHuman:",
}

// StopMatcher scans generated text for stop sequences. It is built once
// per generation from the default set plus the request's sequences.
type StopMatcher struct {
	sequences []string
}

// NewStopMatcher combines the default delimiters with extra sequences,
// dropping empties and duplicates.
func NewStopMatcher(extra []string) *StopMatcher {
	seen := make(map[string]struct{}, len(defaultStopSequences)+len(extra))
	sequences := make([]string, 0, len(defaultStopSequences)+len(extra))
	for _, s := range append(append([]string{}, defaultStopSequences...), extra...) {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		sequences = append(sequences, s)
	}
	return &StopMatcher{sequences: sequences}
}

// Find returns the start index of the earliest stop sequence in text.
// When two sequences match at the same position the longer one wins,
// which only affects which delimiter is reported, not the trim point.
func (m *StopMatcher) Find(text string) (int, bool) {
	best := -1
	bestLen := 0
	for _, s := range m.sequences {
		idx := strings.Index(text, s)
		if idx < 0 {
			continue
		}
		if best < 0 || idx < best || (idx == best && len(s) > bestLen) {
			best = idx
			bestLen = len(s)
		}
	}
	return best, best >= 0
}

// SuffixHold returns how many trailing bytes of text could still grow
// into a stop sequence and therefore must not be streamed out yet.
func (m *StopMatcher) SuffixHold(text string) int {
	hold := 0
	for _, s := range m.sequences {
		max := len(s) - 1
		if max > len(text) {
			max = len(text)
		}
		for l := max; l > hold; l-- {
			if strings.HasSuffix(text, s[:l]) {
				hold = l
				break
			}
		}
	}
	return hold
}
