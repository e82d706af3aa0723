package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"llmctl/internal/config"
	"llmctl/internal/engine"
	"llmctl/internal/gguf/gguftest"
	"llmctl/internal/httpapi"
	"llmctl/internal/manager"
)

// stack is a manager serving the real HTTP API on an ephemeral port.
type stack struct {
	mgr   *manager.Manager
	queue *manager.Queue
	eng   *engine.Fake
	base  string
}

func newStack(t *testing.T, eng *engine.Fake, edit func(*config.Config), mc func(*manager.ManagerConfig)) *stack {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Model.ModelPath = gguftest.WriteModel(t, dir, "tiny.gguf", "llama", 22)
	if edit != nil {
		edit(&cfg)
	}
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, config.Save(path, cfg))
	store, err := config.Open(path)
	require.NoError(t, err)

	q := manager.NewQueue()
	c := manager.ManagerConfig{
		Store:         store,
		Engine:        eng,
		Publisher:     q,
		MaxWait:       time.Second,
		ShutdownGrace: time.Second,
	}
	if mc != nil {
		mc(&c)
	}
	mgr := manager.New(c)
	mgr.SetHandler(httpapi.NewMux(mgr, httpapi.Options{}))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mgr.Close(ctx)
	})

	wait(t, mgr.StartServer)
	return &stack{mgr: mgr, queue: q, eng: eng, base: "http://" + mgr.Addr()}
}

// wait issues a manager command and blocks until its task settles.
func wait(t *testing.T, cmd func() (*manager.Task, error)) {
	t.Helper()
	task, err := cmd()
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, task.Wait(ctx))
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url, payload string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewBufferString(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
