package e2e

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmctl/internal/config"
	"llmctl/internal/engine"
	"llmctl/internal/manager"
	"llmctl/pkg/types"
)

func TestE2E_Lifecycle(t *testing.T) {
	s := newStack(t, &engine.Fake{}, func(c *config.Config) {
		c.Server.UseAuth = true
		c.Server.APIKeys = "k1, k2"
		c.Model.NGPULayers = 8
	}, nil)
	gen := s.base + "/api/v1/generate"
	auth := map[string]string{"Authorization": "Bearer k2"}

	resp, body := httpGet(t, s.base+"/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var h types.HealthResponse
	require.NoError(t, json.Unmarshal(body, &h))
	assert.False(t, h.ModelLoaded)

	resp, _ = httpPostJSON(t, gen, `{"prompt":"hi"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = httpPostJSON(t, gen, `{"prompt":"hi"}`, auth)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "Model not loaded")

	wait(t, s.mgr.LoadModel)
	assert.Equal(t, 8, s.eng.LastOptions().GPULayers)

	resp, body = httpPostJSON(t, gen, `{"prompt":"one two three four","max_tokens":2}`, map[string]string{"X-API-Key": "k1"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out types.GenerateResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "text_completion", out.Object)
	require.Len(t, out.Choices, 1)
	assert.Nil(t, out.Choices[0].Logprobs)

	require.Eventually(t, func() bool { return s.mgr.Snapshot().MaxLayers == 22 }, 2*time.Second, 5*time.Millisecond)
	resp, body = httpGet(t, s.base+"/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st types.StatusResponse
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, "running", st.Server)
	assert.Equal(t, "loaded", st.Model)
	assert.Equal(t, 22, st.MaxLayers)
	assert.Equal(t, 8, st.GPULayers)

	resp, _ = httpGet(t, s.base+"/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	wait(t, s.mgr.UnloadModel)
	resp, _ = httpPostJSON(t, gen, `{"prompt":"hi"}`, auth)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Zero(t, s.eng.Live())

	addr := s.base
	wait(t, s.mgr.StopServer)
	_, err := http.Get(addr + "/health")
	assert.Error(t, err, "listener should be closed after stop")
	assert.Equal(t, manager.ServerStopped, s.mgr.ServerState())
}

// TestE2E_Backpressure429 saturates a batch of one and expects the waiter to
// be turned away once MaxWait elapses.
func TestE2E_Backpressure429(t *testing.T) {
	s := newStack(t, &engine.Fake{GenDelay: 300 * time.Millisecond}, func(c *config.Config) {
		c.Server.BatchSize = 1
	}, func(mc *manager.ManagerConfig) {
		mc.MaxWait = 20 * time.Millisecond
	})
	wait(t, s.mgr.LoadModel)

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i == 1 {
				time.Sleep(50 * time.Millisecond)
			}
			resp, _ := httpPostJSON(t, s.base+"/api/v1/generate", `{"prompt":"hello"}`, nil)
			codes[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

// TestE2E_UnloadWaitsForInflight checks that a generation already holding the
// model completes even though an unload is requested mid-flight.
func TestE2E_UnloadWaitsForInflight(t *testing.T) {
	s := newStack(t, &engine.Fake{GenDelay: 200 * time.Millisecond}, nil, nil)
	wait(t, s.mgr.LoadModel)

	done := make(chan int, 1)
	go func() {
		resp, _ := httpPostJSON(t, s.base+"/api/v1/generate", `{"prompt":"hello"}`, nil)
		done <- resp.StatusCode
	}()
	require.Eventually(t, func() bool { return s.eng.Inflight() == 1 }, 2*time.Second, 5*time.Millisecond)

	wait(t, s.mgr.UnloadModel)
	assert.Equal(t, http.StatusOK, <-done)
	assert.Equal(t, manager.ModelUnloaded, s.mgr.ModelState())
}
