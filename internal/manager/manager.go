package manager

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"llmctl/internal/config"
	"llmctl/internal/engine"
)

type Manager struct {
	cfg   ManagerConfig
	store *config.Store
	eng   engine.Engine
	pub   EventPublisher
	log   zerolog.Logger

	mu sync.RWMutex
	// Serving unit
	server   ServerState
	addr     string
	handler  http.Handler
	stopCh   chan struct{}
	stopTask *Task
	// Model
	model      ModelState
	live       *liveHandle
	maxLayers  int
	probeGen   uint64
	loadsTotal uint64
	lastErr    string
	closed     bool

	// Admission
	sem       *semaphore.Weighted
	batchSize int
	queued    atomic.Int64

	gpu       *debouncer
	workers   sync.WaitGroup
	startTime time.Time
}

// New constructs a Manager. cfg.Store must be set.
func New(cfg ManagerConfig) *Manager {
	cfg = cfg.withDefaults()
	m := &Manager{
		cfg:       cfg,
		store:     cfg.Store,
		eng:       cfg.Engine,
		pub:       cfg.Publisher,
		log:       zerolog.Nop(),
		handler:   http.NotFoundHandler(),
		startTime: time.Now(),
	}
	if cfg.Logger != nil {
		m.log = cfg.Logger.With().Str("component", "manager").Logger()
	}
	m.batchSize = cfg.Store.Get().Server.BatchSize
	if m.batchSize < 1 {
		m.batchSize = 1
	}
	m.sem = semaphore.NewWeighted(int64(m.batchSize))
	m.gpu = newDebouncer(cfg.GPUDebounce)
	return m
}

// SetHandler installs the HTTP handler used by the next StartServer.
func (m *Manager) SetHandler(h http.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h == nil {
		h = http.NotFoundHandler()
	}
	m.handler = h
}

// Config returns the current configuration.
func (m *Manager) Config() config.Config { return m.store.Get() }

// ServerState returns the serving unit state.
func (m *Manager) ServerState() ServerState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.server
}

// ModelState returns the model state.
func (m *Manager) ModelState() ModelState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.model
}

// ModelLoaded reports whether a live model handle is published.
func (m *Manager) ModelLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.model == ModelLoaded && m.live != nil
}

// Ready is an alias of ModelLoaded used by /readyz.
func (m *Manager) Ready() bool { return m.ModelLoaded() }

// Close flushes a pending GPU-layer write, stops the serving unit, waits for
// background workers and releases the model. Commands issued afterwards
// fail with ErrClosed.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	if m.server == ServerRunning {
		m.server = ServerStopping
		close(m.stopCh)
	}
	m.mu.Unlock()
	// SetGPULayers schedules under the read lock, so nothing can be
	// scheduled after closed is set.
	m.gpu.Flush()

	done := make(chan struct{})
	go func() {
		m.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("close: waiting for workers: %w", ctx.Err())
	}

	m.mu.Lock()
	lh := m.live
	if lh != nil {
		m.live = nil
		m.model = ModelUnloading
	}
	m.mu.Unlock()
	if lh == nil {
		return nil
	}
	err := m.release(lh)
	m.mu.Lock()
	m.model = ModelUnloaded
	m.mu.Unlock()
	m.infof("Model unloaded.")
	return err
}

// spawnLocked runs fn as a tracked worker. Callers hold m.mu and have
// checked m.closed.
func (m *Manager) spawnLocked(fn func()) {
	m.workers.Add(1)
	go func() {
		defer m.workers.Done()
		fn()
	}()
}

func (m *Manager) emit(level Level, text string) {
	m.pub.Publish(LogEvent(level, text))
	m.log.WithLevel(level.zerolog()).Msg(text)
}

func (m *Manager) infof(format string, args ...any) {
	m.emit(LevelInfo, fmt.Sprintf(format, args...))
}

func (m *Manager) warnf(format string, args ...any) {
	m.emit(LevelWarn, fmt.Sprintf(format, args...))
}

func (m *Manager) errorf(format string, args ...any) {
	m.emit(LevelError, fmt.Sprintf(format, args...))
}
