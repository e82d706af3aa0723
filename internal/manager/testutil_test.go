package manager

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"llmctl/internal/config"
	"llmctl/internal/engine"
	"llmctl/internal/gguf/gguftest"
	"llmctl/pkg/types"
)

type harness struct {
	m     *Manager
	q     *Queue
	eng   *engine.Fake
	store *config.Store
	model string
	dir   string
	seen  []Event
}

type harnessOpts struct {
	cfg func(*config.Config)
	mc  func(*ManagerConfig)
}

// newHarness builds a Manager over a fake engine, a 22-layer GGUF fixture and
// a config file in a temp dir. The server binds an ephemeral port.
func newHarness(t *testing.T, opts harnessOpts) *harness {
	t.Helper()
	dir := t.TempDir()
	model := gguftest.WriteModel(t, dir, "tiny.gguf", "llama", 22)
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Model.ModelPath = model
	if opts.cfg != nil {
		opts.cfg(&cfg)
	}
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, config.Save(path, cfg))
	store, err := config.Open(path)
	require.NoError(t, err)

	q := NewQueue()
	eng := &engine.Fake{}
	mc := ManagerConfig{
		Store:             store,
		Engine:            eng,
		Publisher:         q,
		MaxWait:           time.Second,
		ShutdownGrace:     time.Second,
		DrainWarnInterval: 50 * time.Millisecond,
		GPUDebounce:       50 * time.Millisecond,
	}
	if opts.mc != nil {
		opts.mc(&mc)
	}
	m := New(mc)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Close(ctx)
	})
	return &harness{m: m, q: q, eng: eng, store: store, model: model, dir: dir}
}

// settle waits for a task and fails the test if it does not settle.
func settle(t *testing.T, task *Task) error {
	t.Helper()
	require.NotNil(t, task)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := task.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "task %s did not settle", task.Kind)
	return err
}

// events drains the queue and returns every event seen so far.
func (h *harness) events() []Event {
	h.seen = append(h.seen, h.q.Drain()...)
	return h.seen
}

func (h *harness) countLogs(substr string) int {
	n := 0
	for _, e := range h.events() {
		if e.Kind == KindLog && strings.Contains(e.Text, substr) {
			n++
		}
	}
	return n
}

func (h *harness) capacityUpdates() []int {
	var out []int
	for _, e := range h.events() {
		if e.Kind == KindCapacity {
			out = append(out, e.MaxLayers)
		}
	}
	return out
}

func (h *harness) load(t *testing.T) {
	t.Helper()
	task, err := h.m.LoadModel()
	require.NoError(t, err)
	require.NoError(t, settle(t, task))
	require.Equal(t, ModelLoaded, h.m.ModelState())
}

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

func promptReq(p string) types.GenerateRequest { return types.GenerateRequest{Prompt: p} }
