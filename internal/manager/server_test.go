package manager

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})
}

func TestStartServer_TwiceRunsOneServingUnit(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.m.SetHandler(okHandler())

	first, err := h.m.StartServer()
	require.NoError(t, err)
	second, err := h.m.StartServer()
	require.Nil(t, second)
	assert.True(t, IsInvalidState(err), "got %v", err)
	require.NoError(t, settle(t, first))
	_, err = h.m.StartServer()
	assert.True(t, IsInvalidState(err))

	assert.Equal(t, ServerRunning, h.m.ServerState())
	assert.Equal(t, 2, h.countLogs("Server is already"))
	assert.Equal(t, 1, h.countLogs("Server running at"))

	resp, err := http.Get("http://" + h.m.Addr() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	stop, err := h.m.StopServer()
	require.NoError(t, err)
	require.NoError(t, settle(t, stop))
	assert.Equal(t, ServerStopped, h.m.ServerState())
	assert.Empty(t, h.m.Addr())
	assert.Equal(t, 1, h.countLogs("Server has stopped."))

	// Restart is allowed once stopped.
	again, err := h.m.StartServer()
	require.NoError(t, err)
	require.NoError(t, settle(t, again))
	stop, err = h.m.StopServer()
	require.NoError(t, err)
	require.NoError(t, settle(t, stop))
}

func TestStopServer_NotRunning(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	task, err := h.m.StopServer()
	assert.Nil(t, task)
	assert.True(t, IsInvalidState(err))
	assert.Equal(t, 1, h.countLogs("Server is not running"))
}

func TestStartServer_BindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	h := newHarness(t, harnessOpts{})
	require.NoError(t, h.store.SetAndPersist("server", "port", port))
	task, err := h.m.StartServer()
	require.NoError(t, err)
	assert.Error(t, settle(t, task))
	assert.Equal(t, ServerStopped, h.m.ServerState())
	assert.Equal(t, 1, h.countLogs("Failed to start server"))
	assert.Equal(t, 1, h.countLogs("Server has stopped."))
}

func TestStopServer_ForceClosesAfterGrace(t *testing.T) {
	h := newHarness(t, harnessOpts{mc: func(c *ManagerConfig) { c.ShutdownGrace = 100 * time.Millisecond }})
	entered := make(chan struct{})
	h.m.SetHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-r.Context().Done()
	}))
	start, err := h.m.StartServer()
	require.NoError(t, err)
	require.NoError(t, settle(t, start))

	go func() {
		resp, err := http.Get("http://" + h.m.Addr() + "/slow")
		if err == nil {
			resp.Body.Close()
		}
	}()
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("request never reached handler")
	}

	stop, err := h.m.StopServer()
	require.NoError(t, err)
	assert.Equal(t, ServerStopping, h.m.ServerState())
	require.NoError(t, settle(t, stop))
	assert.Equal(t, ServerStopped, h.m.ServerState())
	assert.Equal(t, 1, h.countLogs("did not stop within"))
}
