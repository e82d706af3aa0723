package manager

import (
	"time"
)

// UnloadModel releases the live model handle. The handle is unpublished
// immediately, so new generations see "Model not loaded", and is closed only
// after every in-flight generation has returned its lease. It is safe while
// the server is running.
func (m *Manager) UnloadModel() (*Task, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if m.model != ModelLoaded || m.live == nil {
		st := m.model
		m.mu.Unlock()
		m.warnf("No model is loaded (%s).", st)
		return nil, invalidStateError{op: "unload model", state: "model " + st.String()}
	}
	lh := m.live
	m.live = nil
	m.model = ModelUnloading
	t := newTask("unload-model")
	m.spawnLocked(func() {
		err := m.release(lh)
		m.mu.Lock()
		m.model = ModelUnloaded
		m.mu.Unlock()
		if err != nil {
			m.warnf("Error while releasing model: %v", err)
		}
		m.infof("Model unloaded.")
		t.finish(err)
	})
	m.mu.Unlock()
	m.infof("Unloading model...")
	return t, nil
}

// release waits for all leases on lh and then closes the engine handle.
// It warns every DrainWarnInterval while generations are still running.
func (m *Manager) release(lh *liveHandle) error {
	drained := make(chan struct{})
	go func() {
		lh.refs.Wait()
		close(drained)
	}()
	tick := time.NewTicker(m.cfg.DrainWarnInterval)
	defer tick.Stop()
	for {
		select {
		case <-drained:
			return lh.h.Close()
		case <-tick.C:
			m.warnf("Waiting for %d in-flight request(s) before releasing the model.", lh.inflight.Load())
		}
	}
}
