package manager

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"llmctl/internal/common/fsutil"
	"llmctl/internal/config"
	"llmctl/internal/engine"
)

// liveHandle is the published engine handle plus its lease accounting.
type liveHandle struct {
	h        engine.Handle
	path     string
	refs     sync.WaitGroup
	inflight atomic.Int64
}

func (lh *liveHandle) done() {
	lh.inflight.Add(-1)
	lh.refs.Done()
}

// acquire leases the live handle. The lease must be returned with done.
func (m *Manager) acquire() (*liveHandle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.model != ModelLoaded || m.live == nil {
		return nil, modelNotLoadedError{}
	}
	m.live.refs.Add(1)
	m.live.inflight.Add(1)
	return m.live, nil
}

// LoadModel loads the model named by [model] model_path. It is accepted only
// from Unloaded or LoadFailed; the task settles when the state reaches Loaded
// or LoadFailed. A missing model file is a configuration error and leaves the
// state untouched.
func (m *Manager) LoadModel() (*Task, error) {
	mc := m.store.Get().Model

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if m.model != ModelUnloaded && m.model != ModelLoadFailed {
		st := m.model
		m.mu.Unlock()
		msg := "Model is already loaded."
		if st != ModelLoaded {
			msg = fmt.Sprintf("Model operation already in progress (%s).", st)
		}
		m.warnf("%s", msg)
		return nil, invalidStateError{op: "load model", state: "model " + st.String()}
	}
	if !mc.HasModel() {
		m.mu.Unlock()
		m.warnf("No model selected.")
		return nil, &config.Error{Section: config.SectionModel, Key: "model_path", Msg: "no model selected"}
	}
	path, err := fsutil.ResolveFile(mc.ModelPath)
	if err != nil {
		m.mu.Unlock()
		m.errorf("Model path '%s' does not exist.", mc.ModelPath)
		return nil, &config.Error{Section: config.SectionModel, Key: "model_path", Msg: "model file not found", Err: err}
	}
	opts := engine.Options{
		ModelPath:      path,
		ContextSize:    mc.MaxTokens,
		GPULayers:      mc.NGPULayers,
		FlashAttention: mc.FlashAttention,
		Threads:        m.cfg.Threads,
	}
	if strings.TrimSpace(mc.LoraPath) != "" {
		lp, err := fsutil.ResolveFile(mc.LoraPath)
		if err != nil {
			m.mu.Unlock()
			m.errorf("LoRA adapter '%s' does not exist.", mc.LoraPath)
			return nil, &config.Error{Section: config.SectionModel, Key: "lora_path", Msg: "lora adapter not found", Err: err}
		}
		opts.LoraPath = lp
	}
	t := newTask("load-model")
	m.model = ModelLoading
	m.lastErr = ""
	m.spawnLocked(func() { m.load(opts, t) })
	m.mu.Unlock()
	m.infof("Loading model from %s ...", path)
	return t, nil
}

func (m *Manager) load(opts engine.Options, t *Task) {
	start := time.Now()
	h, err := m.eng.Open(opts)
	if err != nil {
		if errors.Is(err, engine.ErrUnavailable) {
			err = ErrDependencyUnavailable(err.Error())
		} else {
			err = engineError{op: "load model", err: err}
		}
		m.mu.Lock()
		m.model = ModelLoadFailed
		m.lastErr = err.Error()
		m.mu.Unlock()
		m.errorf("Error loading model: %v", err)
		t.finish(err)
		return
	}

	m.mu.Lock()
	if m.closed {
		m.model = ModelUnloaded
		m.mu.Unlock()
		_ = h.Close()
		t.finish(ErrClosed)
		return
	}
	m.live = &liveHandle{h: h, path: opts.ModelPath}
	m.model = ModelLoaded
	m.loadsTotal++
	m.mu.Unlock()

	m.log.Debug().Dur("took", time.Since(start)).Str("path", opts.ModelPath).Msg("model opened")
	m.infof("Model loaded successfully: %s (GPU layers: %d)", opts.ModelPath, opts.GPULayers)
	if opts.FlashAttention {
		m.warnf("flash_attention is enabled but not supported by the inference runtime; ignoring.")
	}
	t.finish(nil)
	// Refresh the displayed limits for the model that is now live.
	_, _ = m.ProbeModelCapacity(opts.ModelPath)
}
