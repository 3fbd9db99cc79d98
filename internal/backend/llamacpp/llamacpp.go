// Package llamacpp implements backend.Runtime over the llama.cpp shared
// library through the yzma purego bindings. No cgo is involved; the
// library is loaded at process start from a configurable path.
package llamacpp

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/hybridgroup/yzma/pkg/llama"

	"github.com/lanternml/lantern/internal/backend"
)

const defaultBatchSize = 512

var (
	initOnce sync.Once
	initErr  error
)

// initLibrary loads the llama.cpp shared libraries exactly once per
// process. libPath resolution order: explicit config, LANTERN_LIB_DIR,
// then ./lib next to the working directory.
func initLibrary(libPath string) error {
	initOnce.Do(func() {
		if libPath == "" {
			libPath = os.Getenv("LANTERN_LIB_DIR")
		}
		if libPath == "" {
			libPath = "./lib"
		}

		// The loader resolves dependent libraries through the platform
		// search path, which must be set before Load.
		switch runtime.GOOS {
		case "windows":
			if v := os.Getenv("PATH"); !strings.Contains(v, libPath) {
				os.Setenv("PATH", fmt.Sprintf("%s;%s", libPath, v))
			}
		default:
			if v := os.Getenv("LD_LIBRARY_PATH"); !strings.Contains(v, libPath) {
				os.Setenv("LD_LIBRARY_PATH", fmt.Sprintf("%s:%s", libPath, v))
			}
		}

		if err := llama.Load(libPath); err != nil {
			initErr = fmt.Errorf("llamacpp: unable to load library from %s: %w", libPath, err)
			return
		}
		llama.Init()
	})
	return initErr
}

// Runtime drives one loaded GGUF model. Not goroutine-safe.
type Runtime struct {
	path       string
	model      llama.Model
	lctx       llama.Context
	vocab      llama.Vocab
	nCtx       int
	trainedCtx int
	batchSize  int
	metadata   map[string]string
	pieceBuf   []byte
	logitsBuf  []float32
	closed     bool
}

var _ backend.Runtime = (*Runtime)(nil)

// Open loads a GGUF model file and creates a decode context. The
// effective context length is the requested one clamped to the model's
// trained length; zero requests the trained length.
func Open(path string, cfg backend.Config) (backend.Runtime, error) {
	if err := initLibrary(cfg.LibraryPath); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("llamacpp: model file: %w", err)
	}

	mparams := llama.ModelDefaultParams()
	if cfg.GPULayers != 0 {
		mparams.NGpuLayers = int32(cfg.GPULayers)
	}

	model, err := llama.ModelLoadFromFile(path, mparams)
	if err != nil {
		return nil, fmt.Errorf("llamacpp: unable to load model %s: %w", path, err)
	}

	metadata := readMetadata(model)
	trainedCtx := trainedContextLength(metadata)

	nCtx := cfg.ContextLength
	if nCtx <= 0 || nCtx > trainedCtx {
		nCtx = trainedCtx
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if batchSize > nCtx {
		batchSize = nCtx
	}

	ctxParams := llama.ContextDefaultParams()
	ctxParams.NCtx = uint32(nCtx)
	ctxParams.NBatch = uint32(batchSize)
	if cfg.Threads > 0 {
		ctxParams.NThreads = int32(cfg.Threads)
		ctxParams.NThreadsBatch = int32(cfg.Threads)
	}

	lctx, err := llama.InitFromModel(model, ctxParams)
	if err != nil {
		llama.ModelFree(model)
		return nil, fmt.Errorf("llamacpp: unable to create context: %w", err)
	}

	return &Runtime{
		path:       path,
		model:      model,
		lctx:       lctx,
		vocab:      llama.ModelGetVocab(model),
		nCtx:       int(llama.NCtx(lctx)),
		trainedCtx: trainedCtx,
		batchSize:  batchSize,
		metadata:   metadata,
		pieceBuf:   make([]byte, 256),
	}, nil
}

func (r *Runtime) Tokenize(text string, addSpecial bool) ([]int, error) {
	toks := llama.Tokenize(r.vocab, text, addSpecial, true)
	if toks == nil {
		return nil, fmt.Errorf("llamacpp: tokenize failed")
	}
	out := make([]int, len(toks))
	for i, t := range toks {
		out[i] = int(t)
	}
	return out, nil
}

func (r *Runtime) ChatTemplate() (string, bool) {
	tmpl := llama.ModelChatTemplate(r.model, "")
	if tmpl == "" {
		tmpl, _ = llama.ModelMetaValStr(r.model, "tokenizer.chat_template")
	}
	return tmpl, tmpl != ""
}

func (r *Runtime) ContextLength() int        { return r.nCtx }
func (r *Runtime) TrainedContextLength() int { return r.trainedCtx }

func (r *Runtime) Info() backend.Info {
	return backend.Info{
		Path:                 r.path,
		ContextLength:        r.nCtx,
		TrainedContextLength: r.trainedCtx,
		Name:                 r.metadata["general.name"],
		Architecture:         r.metadata["general.architecture"],
	}
}

func (r *Runtime) Metadata() map[string]string { return r.metadata }

func (r *Runtime) Prefill(tokens []int) ([]float32, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("llamacpp: prefill with no tokens")
	}
	toks := make([]llama.Token, len(tokens))
	for i, t := range tokens {
		toks[i] = llama.Token(t)
	}
	for start := 0; start < len(toks); start += r.batchSize {
		end := start + r.batchSize
		if end > len(toks) {
			end = len(toks)
		}
		batch := llama.BatchGetOne(toks[start:end])
		if err := r.decode(batch); err != nil {
			return nil, err
		}
	}
	return r.lastLogits(), nil
}

func (r *Runtime) DecodeNext(token int) ([]float32, error) {
	batch := llama.BatchGetOne([]llama.Token{llama.Token(token)})
	if err := r.decode(batch); err != nil {
		return nil, err
	}
	return r.lastLogits(), nil
}

func (r *Runtime) decode(batch llama.Batch) error {
	ret, err := llama.Decode(r.lctx, batch)
	if err != nil {
		return fmt.Errorf("llamacpp: decode: %w", err)
	}
	if ret != 0 {
		return fmt.Errorf("llamacpp: decode returned status %d", ret)
	}
	return nil
}

// lastLogits copies the logits for the last decoded position. The copy
// matters: llama.cpp reuses the underlying buffer on the next decode.
func (r *Runtime) lastLogits() []float32 {
	raw, _ := llama.GetLogitsIth(r.lctx, -1, int(llama.VocabNTokens(r.vocab)))
	if cap(r.logitsBuf) < len(raw) {
		r.logitsBuf = make([]float32, len(raw))
	}
	out := r.logitsBuf[:len(raw)]
	copy(out, raw)
	return out
}

func (r *Runtime) TokenToText(token int) []byte {
	return tokenPiece(&r.pieceBuf, func(buf []byte) int {
		return int(llama.TokenToPiece(r.vocab, llama.Token(token), buf, 0, true))
	})
}

// tokenPiece converts through a reusable buffer. A negative return from
// the fill function means the buffer was too small and carries the
// required size, so the buffer is grown once and the call retried.
func tokenPiece(buf *[]byte, fill func([]byte) int) []byte {
	n := fill(*buf)
	if n < 0 {
		*buf = make([]byte, -n)
		n = fill(*buf)
	}
	if n <= 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, (*buf)[:n])
	return out
}

func (r *Runtime) IsEndOfGeneration(token int) bool {
	return llama.VocabIsEOG(r.vocab, llama.Token(token))
}

func (r *Runtime) ResetCache() {
	mem, err := llama.GetMemory(r.lctx)
	if err != nil {
		return
	}
	llama.MemoryClear(mem, true)
}

func (r *Runtime) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	llama.Free(r.lctx)
	llama.ModelFree(r.model)
	return nil
}

func readMetadata(model llama.Model) map[string]string {
	count := llama.ModelMetaCount(model)
	metadata := make(map[string]string, count)
	for i := range count {
		key, ok := llama.ModelMetaKeyByIndex(model, i)
		if !ok {
			continue
		}
		value, ok := llama.ModelMetaValStrByIndex(model, i)
		if !ok {
			continue
		}
		metadata[key] = value
	}
	return metadata
}

// trainedContextLength reads the architecture-prefixed context length
// key, e.g. "llama.context_length". Missing metadata falls back to a
// conservative window.
func trainedContextLength(metadata map[string]string) int {
	for key, value := range metadata {
		if !strings.HasSuffix(key, ".context_length") {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err == nil && n > 0 {
			return n
		}
	}
	return 4096
}
