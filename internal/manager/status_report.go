package manager

import (
	"time"

	"llmctl/pkg/types"
)

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{
		Server:     m.server,
		Addr:       m.addr,
		Model:      m.model,
		HasHandle:  m.live != nil,
		MaxLayers:  m.maxLayers,
		GPUPending: m.gpu.Pending(),
		Queued:     int(m.queued.Load()),
		LoadsTotal: m.loadsTotal,
		LastError:  m.lastErr,
		Uptime:     time.Since(m.startTime),
	}
	if m.live != nil {
		s.ModelPath = m.live.path
		s.Inflight = int(m.live.inflight.Load())
	}
	return s
}

// Status builds the response for GET /status.
func (m *Manager) Status() types.StatusResponse {
	s := m.Snapshot()
	mc := m.store.Get().Model
	path := s.ModelPath
	if path == "" {
		path = mc.ModelPath
	}
	return types.StatusResponse{
		Server:           s.Server.String(),
		Addr:             s.Addr,
		Model:            s.Model.String(),
		ModelPath:        path,
		MaxLayers:        s.MaxLayers,
		GPULayers:        mc.NGPULayers,
		GPULayersPending: s.GPUPending,
		Inflight:         s.Inflight,
		Queued:           s.Queued,
		BatchSize:        m.batchSize,
		LoadsTotal:       s.LoadsTotal,
		LastError:        s.LastError,
		UptimeSeconds:    int64(s.Uptime.Seconds()),
		ServerTimeUnix:   time.Now().Unix(),
	}
}
