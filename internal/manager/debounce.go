package manager

import (
	"sync"
	"time"

	"llmctl/internal/config"
)

// debouncer runs only the last function scheduled within delay. Each
// Trigger cancels the pending run and schedules a new one.
type debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending func()

	// run serializes fired functions so the newest value lands last.
	run sync.Mutex
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay}
}

func (d *debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	gen := d.gen
	d.pending = fn
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *debouncer) fire(gen uint64) {
	d.run.Lock()
	defer d.run.Unlock()
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.mu.Unlock()
	fn()
}

// Flush runs the pending function now, if any.
func (d *debouncer) Flush() {
	d.run.Lock()
	defer d.run.Unlock()
	d.mu.Lock()
	fn := d.pending
	d.pending = nil
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Pending reports whether a run is scheduled.
func (d *debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// SetGPULayers schedules persisting [model] n_gpu_layers. Calls within the
// debounce window coalesce into one write of the last value. The live handle
// is unaffected until the model is reloaded.
func (m *Manager) SetGPULayers(n int) error {
	if n < 0 {
		return &config.Error{Section: config.SectionModel, Key: "n_gpu_layers", Msg: "must be >= 0"}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	m.gpu.Trigger(func() { m.persistGPULayers(n) })
	return nil
}

// FlushGPULayers persists a pending GPU-layer value immediately.
func (m *Manager) FlushGPULayers() { m.gpu.Flush() }

func (m *Manager) persistGPULayers(n int) {
	if err := m.store.SetAndPersist(config.SectionModel, "n_gpu_layers", n); err != nil {
		m.errorf("Failed to save GPU layer setting: %v", err)
		return
	}
	m.infof("GPU layer setting saved: %d", n)
	if m.ModelState() == ModelLoaded {
		m.infof("Unload and reload the model to apply new GPU layer count.")
	}
}
