package engine_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmctl/internal/engine"
	"llmctl/internal/gguf/gguftest"
)

func TestProbeFile(t *testing.T) {
	p := gguftest.WriteModel(t, t.TempDir(), "m.gguf", "qwen2", 28)
	info, err := engine.ProbeFile(p)
	require.NoError(t, err)
	assert.Equal(t, engine.Info{Path: p, Architecture: "qwen2", Layers: 28}, info)

	_, err = engine.ProbeFile(filepath.Join(t.TempDir(), "missing.gguf"))
	assert.Error(t, err)
}

func TestFake_OpenCompleteClose(t *testing.T) {
	p := gguftest.WriteModel(t, t.TempDir(), "m.gguf", "llama", 16)
	f := &engine.Fake{}
	h, err := f.Open(engine.Options{ModelPath: p, GPULayers: 4})
	require.NoError(t, err)
	assert.Equal(t, 1, f.Live())
	assert.Equal(t, 16, h.Info().Layers)
	assert.Equal(t, 4, f.LastOptions().GPULayers)

	c, err := h.Complete(context.Background(), "one two three four", engine.Params{MaxTokens: 2})
	require.NoError(t, err)
	assert.Equal(t, "one two", c.Text)
	assert.Equal(t, "length", c.FinishReason)
	assert.Equal(t, engine.Usage{PromptTokens: 4, CompletionTokens: 2, TotalTokens: 6}, c.Usage)

	c, err = h.Complete(context.Background(), "hi", engine.Params{MaxTokens: 10})
	require.NoError(t, err)
	assert.Equal(t, "stop", c.FinishReason)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	assert.Equal(t, 0, f.Live())
	_, err = h.Complete(context.Background(), "hi", engine.Params{})
	assert.True(t, errors.Is(err, engine.ErrClosed))
}

func TestFake_CompleteHonorsContext(t *testing.T) {
	p := gguftest.WriteModel(t, t.TempDir(), "m.gguf", "llama", 16)
	f := &engine.Fake{GenDelay: time.Second}
	h, err := f.Open(engine.Options{ModelPath: p})
	require.NoError(t, err)
	defer h.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = h.Complete(ctx, "x", engine.Params{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFake_OpenErrors(t *testing.T) {
	f := &engine.Fake{}
	_, err := f.Open(engine.Options{ModelPath: filepath.Join(t.TempDir(), "nope.gguf")})
	assert.Error(t, err)
	boom := errors.New("boom")
	f.LoadErr = boom
	_, err = f.Open(engine.Options{ModelPath: "whatever"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, f.Live())
}

func TestNew_ProbeWorksWithoutRuntime(t *testing.T) {
	p := gguftest.WriteModel(t, t.TempDir(), "m.gguf", "llama", 40)
	info, err := engine.New(1).Probe(p)
	require.NoError(t, err)
	assert.Equal(t, 40, info.Layers)
	if !engine.Built {
		_, err := engine.New(1).Open(engine.Options{ModelPath: p})
		assert.ErrorIs(t, err, engine.ErrUnavailable)
	}
}
