package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmctl/internal/config"
	"llmctl/pkg/types"
)

func TestGenerate_ModelNotLoaded(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	_, err := h.m.Generate(context.Background(), promptReq("hi"))
	assert.True(t, IsModelNotLoaded(err))
	assert.Equal(t, "Model not loaded", err.Error())
}

func TestGenerate_DefaultsAndOverrides(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.load(t)

	resp, err := h.m.Generate(context.Background(), promptReq("one two three"))
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	c := resp.Choices[0]
	assert.Equal(t, "one two three", c.Text)
	assert.Equal(t, 0, c.Index)
	assert.Nil(t, c.Logprobs)
	assert.Equal(t, "stop", c.FinishReason)
	assert.Equal(t, types.Usage{PromptTokens: 3, CompletionTokens: 3, TotalTokens: 6}, resp.Usage)
	assert.Equal(t, "text_completion", resp.Object)
	assert.Equal(t, h.model, resp.Model)

	resp, err = h.m.Generate(context.Background(), types.GenerateRequest{Prompt: "one two three", MaxTokens: intp(1)})
	require.NoError(t, err)
	assert.Equal(t, "one", resp.Choices[0].Text)
	assert.Equal(t, "length", resp.Choices[0].FinishReason)
}

func TestGenerate_StreamingRejected(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.load(t)
	_, err := h.m.Generate(context.Background(), types.GenerateRequest{Prompt: "x", Stream: boolp(true)})
	assert.True(t, IsInvalidRequest(err))

	h2 := newHarness(t, harnessOpts{cfg: func(c *config.Config) { c.Model.Streaming = true }})
	h2.load(t)
	_, err = h2.m.Generate(context.Background(), promptReq("x"))
	assert.True(t, IsInvalidRequest(err), "configured streaming default applies")
	_, err = h2.m.Generate(context.Background(), types.GenerateRequest{Prompt: "x", Stream: boolp(false)})
	assert.NoError(t, err)
}

func TestGenerate_EmptyPrompt(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.load(t)
	_, err := h.m.Generate(context.Background(), promptReq("   "))
	assert.True(t, IsInvalidRequest(err))
}

func TestGenerate_EngineError(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.eng.GenErr = errors.New("kv cache full")
	h.load(t)
	_, err := h.m.Generate(context.Background(), promptReq("x"))
	assert.True(t, IsEngineError(err))
	assert.Contains(t, err.Error(), "kv cache full")
	assert.True(t, h.m.ModelLoaded(), "generation errors do not change model state")
}

func TestGenerate_TooBusy(t *testing.T) {
	h := newHarness(t, harnessOpts{
		cfg: func(c *config.Config) { c.Server.BatchSize = 1 },
		mc:  func(c *ManagerConfig) { c.MaxWait = 50 * time.Millisecond },
	})
	h.eng.GenDelay = 300 * time.Millisecond
	h.load(t)

	done := make(chan error, 1)
	go func() {
		_, err := h.m.Generate(context.Background(), promptReq("slow"))
		done <- err
	}()
	require.Eventually(t, func() bool { return h.eng.Inflight() == 1 }, time.Second, 5*time.Millisecond)
	_, err := h.m.Generate(context.Background(), promptReq("blocked"))
	assert.True(t, IsTooBusy(err), "got %v", err)
	require.NoError(t, <-done)
}

func TestStatusAndMetrics(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	st := h.m.Status()
	assert.Equal(t, "stopped", st.Server)
	assert.Equal(t, "unloaded", st.Model)
	assert.Equal(t, h.model, st.ModelPath)
	assert.Equal(t, 4, st.BatchSize)

	h.load(t)
	require.Eventually(t, func() bool { return h.m.Status().MaxLayers == 22 }, 2*time.Second, 10*time.Millisecond)
	st = h.m.Status()
	assert.Equal(t, "loaded", st.Model)
	assert.Equal(t, uint64(1), st.LoadsTotal)

	assert.Equal(t, 5, testutil.CollectAndCount(h.m, "llmctl_model_state"))
	assert.Equal(t, 4, testutil.CollectAndCount(h.m, "llmctl_server_state"))
	assert.Equal(t, 1, testutil.CollectAndCount(h.m, "llmctl_model_loads_total"))
}

func TestTaskWait(t *testing.T) {
	task := newTask("x")
	assert.Nil(t, task.Err())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, task.Wait(ctx), context.DeadlineExceeded)
	boom := errors.New("boom")
	task.finish(boom)
	task.finish(nil)
	assert.ErrorIs(t, task.Wait(context.Background()), boom)
	assert.ErrorIs(t, task.Err(), boom)
	assert.NotEmpty(t, task.ID)
}
