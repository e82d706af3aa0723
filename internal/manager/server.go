package manager

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"
)

// StartServer spawns the serving unit bound to [server] host and port. The
// returned task settles once the listener is bound (Running) or binding
// failed (Stopped). Calling it while a serving unit is active is rejected
// and emits a warning.
func (m *Manager) StartServer() (*Task, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if m.server != ServerStopped {
		st := m.server
		m.mu.Unlock()
		m.warnf("Server is already %s.", st)
		return nil, invalidStateError{op: "start server", state: "server " + st.String()}
	}
	sc := m.store.Get().Server
	addr := net.JoinHostPort(sc.Host, strconv.Itoa(sc.Port))
	stop := make(chan struct{})
	t := newTask("start-server")
	m.server = ServerStarting
	m.stopCh = stop
	handler := m.handler
	m.spawnLocked(func() { m.serve(addr, handler, stop, t) })
	m.mu.Unlock()
	m.infof("Starting server on %s ...", addr)
	return t, nil
}

// StopServer asks the serving unit to finish in-flight requests and exit.
// The returned task settles when the state reaches Stopped.
func (m *Manager) StopServer() (*Task, error) {
	m.mu.Lock()
	if m.server != ServerRunning {
		st := m.server
		m.mu.Unlock()
		m.warnf("Server is not running (%s).", st)
		return nil, invalidStateError{op: "stop server", state: "server " + st.String()}
	}
	t := newTask("stop-server")
	m.server = ServerStopping
	m.stopTask = t
	close(m.stopCh)
	m.mu.Unlock()
	m.infof("Stopping server...")
	return t, nil
}

// Addr returns the bound listen address while running.
func (m *Manager) Addr() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.addr
}

// serve runs the serving unit: bind, serve until stopped or crashed, then
// report Stopped.
func (m *Manager) serve(addr string, handler http.Handler, stop chan struct{}, started *Task) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		m.mu.Lock()
		m.server = ServerStopped
		m.stopCh = nil
		m.lastErr = err.Error()
		m.mu.Unlock()
		m.errorf("Failed to start server on %s: %v", addr, err)
		m.infof("Server has stopped.")
		started.finish(err)
		return
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	bound := ln.Addr().String()
	m.mu.Lock()
	m.server = ServerRunning
	m.addr = bound
	if m.closed {
		// Close raced with startup; it only signals a Running server.
		m.server = ServerStopping
		close(stop)
	}
	m.mu.Unlock()
	m.infof("Server running at http://%s (health: http://%s/health)", bound, bound)
	started.finish(nil)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.errorf("Server error: %v", err)
		}
	case <-stop:
		ctx, done := context.WithTimeout(context.Background(), m.cfg.ShutdownGrace)
		err := srv.Shutdown(ctx)
		done()
		if err != nil {
			m.warnf("Server did not stop within %s; closing open connections.", m.cfg.ShutdownGrace)
			cancel()
			_ = srv.Close()
		}
		<-errCh
	}

	m.mu.Lock()
	m.server = ServerStopped
	m.addr = ""
	m.stopCh = nil
	st := m.stopTask
	m.stopTask = nil
	m.mu.Unlock()
	m.infof("Server has stopped.")
	if st != nil {
		st.finish(nil)
	}
}
