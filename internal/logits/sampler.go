package logits

import (
	"math"
	"math/rand"
	"time"
)

// Config controls how a Sampler turns a logits vector into a token id.
type Config struct {
	Seed          int64
	Temperature   float32
	TopK          int
	TopP          float32
	MinP          float32
	RepeatPenalty float32
	RepeatLastN   int
}

// Defaults returns the sampling configuration used when the caller
// supplies nothing.
func Defaults() Config {
	return Config{
		Seed:          -1,
		Temperature:   0.8,
		TopK:          40,
		TopP:          0.95,
		MinP:          0.05,
		RepeatPenalty: 1.1,
		RepeatLastN:   64,
	}
}

// Sampler draws token ids from logits vectors. A sampler carries its own
// RNG state and scratch buffers, so each generation gets a fresh instance
// and instances are never shared across goroutines.
type Sampler struct {
	rng    *rand.Rand
	cfg    Config
	greedy bool
	topIdx []int
	topVal []float32
	prob   []float64
	seen   map[int]struct{}
}

// New returns a sampler for the given configuration. A negative seed is
// replaced with a time-derived one; pass a fixed seed for reproducible
// output.
func New(cfg Config) *Sampler {
	greedy := cfg.Temperature <= 0
	if cfg.TopP <= 0 || cfg.TopP > 1 {
		cfg.TopP = 1
	}
	if cfg.RepeatPenalty <= 0 {
		cfg.RepeatPenalty = 1
	}
	if cfg.RepeatLastN <= 0 {
		cfg.RepeatLastN = 64
	}
	seed := cfg.Seed
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	return &Sampler{
		rng:    rand.New(rand.NewSource(seed)),
		cfg:    cfg,
		greedy: greedy,
		seen:   make(map[int]struct{}, cfg.RepeatLastN),
	}
}

// Sample selects the next token id. recent is the running history of
// tokens already accepted this generation, oldest first; only the last
// RepeatLastN entries are considered for the repetition penalty.
//
// With Temperature <= 0 the whole chain is bypassed and the argmax of
// the raw logits is returned. Otherwise the stages run in order:
// repetition penalty, top-k shortlist, min-p floor, top-p cumulative
// cutoff, temperature-scaled softmax, weighted draw.
func (s *Sampler) Sample(logits []float32, recent []int) int {
	if len(logits) == 0 {
		return 0
	}
	if s.greedy {
		return argmax(logits)
	}

	s.penalize(logits, recent)

	k := s.cfg.TopK
	if k <= 0 || k > len(logits) {
		k = len(logits)
	}
	idx, val := s.topK(logits, k)

	// Softmax over the shortlist. Values arrive sorted descending, so
	// val[0] is the stability constant.
	if cap(s.prob) < len(val) {
		s.prob = make([]float64, len(val))
	}
	prob := s.prob[:len(val)]
	var sum float64
	for i, v := range val {
		e := math.Exp(float64(v - val[0]))
		prob[i] = e
		sum += e
	}
	for i := range prob {
		prob[i] /= sum
	}

	if s.cfg.MinP > 0 {
		floor := prob[0] * float64(s.cfg.MinP)
		n := 0
		var kept float64
		for i := range prob {
			if prob[i] >= floor {
				prob[n] = prob[i]
				idx[n] = idx[i]
				val[n] = val[i]
				kept += prob[i]
				n++
			}
		}
		prob = prob[:n]
		idx = idx[:n]
		val = val[:n]
		for i := range prob {
			prob[i] /= kept
		}
	}

	cut := len(prob)
	if s.cfg.TopP < 1 {
		var c float64
		for i := range prob {
			c += prob[i]
			if float32(c) >= s.cfg.TopP {
				cut = i + 1
				break
			}
		}
	}

	// Temperature-scaled distribution over the surviving candidates.
	invTemp := float64(1 / s.cfg.Temperature)
	sum = 0
	for i := 0; i < cut; i++ {
		e := math.Exp(float64(val[i]-val[0]) * invTemp)
		prob[i] = e
		sum += e
	}
	if sum == 0 {
		return idx[0]
	}

	r := s.rng.Float64() * sum
	var c float64
	for i := 0; i < cut; i++ {
		c += prob[i]
		if r <= c {
			return idx[i]
		}
	}
	return idx[cut-1]
}

// penalize divides positive logits and multiplies negative ones for every
// distinct token in the trailing penalty window.
func (s *Sampler) penalize(logits []float32, recent []int) {
	if s.cfg.RepeatPenalty == 1 || len(recent) == 0 {
		return
	}
	start := len(recent) - s.cfg.RepeatLastN
	if start < 0 {
		start = 0
	}
	clear(s.seen)
	for _, id := range recent[start:] {
		if id < 0 || id >= len(logits) {
			continue
		}
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		if logits[id] > 0 {
			logits[id] /= s.cfg.RepeatPenalty
		} else {
			logits[id] *= s.cfg.RepeatPenalty
		}
	}
}

// topK returns the indices and values of the k largest logits, ordered
// descending. O(V*k) insertion keeps it allocation-free for small k.
func (s *Sampler) topK(logits []float32, k int) ([]int, []float32) {
	if cap(s.topIdx) < k+1 {
		s.topIdx = make([]int, 0, k+1)
		s.topVal = make([]float32, 0, k+1)
	}
	idx := s.topIdx[:0]
	val := s.topVal[:0]

	for i, v := range logits {
		pos := len(val)
		for pos > 0 && val[pos-1] < v {
			pos--
		}
		if pos >= k {
			continue
		}
		idx = append(idx, 0)
		val = append(val, 0)
		copy(idx[pos+1:], idx[pos:])
		copy(val[pos+1:], val[pos:])
		idx[pos] = i
		val[pos] = v
		if len(val) > k {
			idx = idx[:k]
			val = val[:k]
		}
	}
	s.topIdx = idx
	s.topVal = val
	return idx, val
}

func argmax(x []float32) int {
	best := 0
	for i := 1; i < len(x); i++ {
		if x[i] > x[best] {
			best = i
		}
	}
	return best
}
