package inference

import (
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/lanternml/lantern/internal/backend"
	"github.com/lanternml/lantern/internal/logger"
	"github.com/lanternml/lantern/internal/logits"
)

// Engine owns the lifetime of at most one loaded model and admits at
// most one generation at a time. The inflight semaphore is the single
// gate for everything that touches the backend: Load, Unload and every
// Generation hold it for their full duration, so the token cache always
// has exactly one writer.
type Engine struct {
	log      logger.Logger
	open     backend.OpenFunc
	inflight *semaphore.Weighted

	mu sync.Mutex
	rt backend.Runtime
}

// NewEngine creates an engine that opens models with open. Nothing is
// loaded yet.
func NewEngine(open backend.OpenFunc, log logger.Logger) *Engine {
	if log == nil {
		log = logger.Default()
	}
	return &Engine{
		log:      log,
		open:     open,
		inflight: semaphore.NewWeighted(1),
	}
}

// Load opens the model at path, replacing any previously loaded model.
// The previous model's resources are released before the new ones are
// acquired. Fails fast with ErrSessionBusy while a generation is active.
func (e *Engine) Load(path string, cfg backend.Config) (ModelInfo, error) {
	if !e.inflight.TryAcquire(1) {
		return ModelInfo{}, ErrSessionBusy
	}
	defer e.inflight.Release(1)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rt != nil {
		e.rt.Close()
		e.rt = nil
	}

	rt, err := e.open(path, cfg)
	if err != nil {
		return ModelInfo{}, &LoadError{Path: path, Err: err}
	}
	e.rt = rt

	info := modelInfo(rt)
	e.log.Info("model loaded",
		"path", path,
		"name", info.Name,
		"arch", info.Architecture,
		"context", info.ContextLength,
		"trained_context", info.TrainedContextLength,
	)
	return info, nil
}

// Unload releases the loaded model. Idempotent; calling it with nothing
// loaded is a no-op. Fails with ErrSessionBusy while a generation runs.
func (e *Engine) Unload() error {
	if !e.inflight.TryAcquire(1) {
		return ErrSessionBusy
	}
	defer e.inflight.Release(1)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rt == nil {
		return nil
	}
	err := e.rt.Close()
	e.rt = nil
	e.log.Info("model unloaded")
	return err
}

// Loaded reports whether a model is currently loaded.
func (e *Engine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rt != nil
}

// Info describes the loaded model, or fails with ErrNotReady.
func (e *Engine) Info() (ModelInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rt == nil {
		return ModelInfo{}, ErrNotReady
	}
	return modelInfo(e.rt), nil
}

// Close unloads and shuts the engine down.
func (e *Engine) Close() error {
	return e.Unload()
}

// Start validates req, renders and tokenizes the prompt, then launches
// the decode loop on its own goroutine. Validation errors (empty prompt,
// prompt too long, busy engine) are returned synchronously and never
// reach the callbacks; once Start returns a Generation, the outcome is
// delivered through cb.
func (e *Engine) Start(req Request, cb Callbacks) (*Generation, error) {
	// The slot must be held before the runtime handle is read; otherwise
	// a concurrent Unload could close the runtime between the read and
	// the acquire and the generation would decode on freed memory.
	if !e.inflight.TryAcquire(1) {
		return nil, ErrSessionBusy
	}

	e.mu.Lock()
	rt := e.rt
	e.mu.Unlock()
	if rt == nil {
		e.inflight.Release(1)
		return nil, ErrNotReady
	}

	g, err := newGeneration(e, rt, req, cb)
	if err != nil {
		e.inflight.Release(1)
		return nil, err
	}

	go g.run()
	return g, nil
}

func modelInfo(rt backend.Runtime) ModelInfo {
	bi := rt.Info()
	_, hasTemplate := rt.ChatTemplate()
	return ModelInfo{
		Path:                 bi.Path,
		Name:                 bi.Name,
		Architecture:         bi.Architecture,
		ContextLength:        bi.ContextLength,
		TrainedContextLength: bi.TrainedContextLength,
		HasChatTemplate:      hasTemplate,
		SamplerDefaults:      logits.Defaults(),
		Metadata:             rt.Metadata(),
	}
}
