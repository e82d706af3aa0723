package manager

import (
	"fmt"

	"llmctl/internal/common/fsutil"
	"llmctl/internal/config"
)

// ProbeModelCapacity reads the layer count declared by the model file at path
// in a short-lived worker and publishes a CapacityUpdate event, or a Log event
// if the metadata cannot be read. It works against the file, not the live
// handle, and holds no manager lock while reading.
func (m *Manager) ProbeModelCapacity(path string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	m.probeGen++
	gen := m.probeGen
	t := newTask("probe")
	m.spawnLocked(func() { m.probe(path, gen, t) })
	return t, nil
}

// probe publishes its result only if no newer probe was issued meanwhile.
func (m *Manager) probe(path string, gen uint64, t *Task) {
	info, err := m.eng.Probe(path)
	if err == nil && info.Layers <= 0 {
		err = fmt.Errorf("no layer count in %s", path)
	}
	m.mu.Lock()
	current := gen == m.probeGen
	if current && err == nil {
		m.maxLayers = info.Layers
		// Published under the lock so capacity events keep probe order.
		m.pub.Publish(CapacityEvent(info.Layers))
	}
	m.mu.Unlock()
	if !current {
		m.log.Debug().Err(err).Str("path", path).Msg("superseded capacity probe dropped")
		t.finish(err)
		return
	}
	if err != nil {
		m.log.Debug().Err(err).Str("path", path).Msg("capacity probe failed")
		m.warnf("Could not determine model layer count from GGUF metadata.")
		t.finish(err)
		return
	}
	m.infof("Detected %d layers in model.", info.Layers)
	t.finish(nil)
}

// SelectModel validates path, persists it as [model] model_path and probes
// its capacity in the background. It does not load the model.
func (m *Manager) SelectModel(path string) (*Task, error) {
	resolved, err := fsutil.ResolveFile(path)
	if err != nil {
		m.errorf("Model file '%s' does not exist.", path)
		return nil, &config.Error{Section: config.SectionModel, Key: "model_path", Msg: "model file not found", Err: err}
	}
	if err := m.store.SetAndPersist(config.SectionModel, "model_path", resolved); err != nil {
		m.errorf("Failed to save model path: %v", err)
		return nil, err
	}
	m.infof("Selected model: %s", resolved)
	return m.ProbeModelCapacity(resolved)
}
