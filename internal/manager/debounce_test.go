package manager

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmctl/internal/config"
)

func TestDebouncerRunsLastOnly(t *testing.T) {
	d := newDebouncer(30 * time.Millisecond)
	var last atomic.Int64
	var runs atomic.Int64
	for _, v := range []int64{1, 2, 3} {
		v := v
		d.Trigger(func() { last.Store(v); runs.Add(1) })
	}
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	if runs.Load() != 1 || last.Load() != 3 {
		t.Fatalf("runs=%d last=%d", runs.Load(), last.Load())
	}
	if d.Pending() {
		t.Fatalf("nothing should be pending")
	}
}

func TestDebouncerFlush(t *testing.T) {
	d := newDebouncer(time.Hour)
	var ran atomic.Bool
	d.Trigger(func() { ran.Store(true) })
	if !d.Pending() {
		t.Fatalf("expected pending run")
	}
	d.Flush()
	if !ran.Load() || d.Pending() {
		t.Fatalf("flush did not run pending function")
	}
	d.Flush()
}

func TestSetGPULayers_CoalescesRapidCalls(t *testing.T) {
	h := newHarness(t, harnessOpts{mc: func(c *ManagerConfig) { c.GPUDebounce = 100 * time.Millisecond }})
	for _, n := range []int{10, 20, 30} {
		require.NoError(t, h.m.SetGPULayers(n))
	}
	assert.Equal(t, 0, h.store.Get().Model.NGPULayers)
	require.Eventually(t, func() bool { return h.store.Get().Model.NGPULayers == 30 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, 1, h.countLogs("GPU layer setting saved"))
	assert.Equal(t, 1, h.countLogs("GPU layer setting saved: 30"))
	onDisk, err := config.Load(h.store.Path())
	require.NoError(t, err)
	assert.Equal(t, 30, onDisk.Model.NGPULayers)
}

func TestSetGPULayers_RoundTrip(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	require.NoError(t, h.m.SetGPULayers(42))
	h.m.FlushGPULayers()
	assert.Equal(t, 42, h.m.Config().Model.NGPULayers)
	assert.Equal(t, 0, h.countLogs("Unload and reload"))
}

func TestSetGPULayers_WhileLoadedHintsReload(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.load(t)
	require.NoError(t, h.m.SetGPULayers(8))
	h.m.FlushGPULayers()
	assert.Equal(t, 1, h.countLogs("Unload and reload the model to apply new GPU layer count."))
	// The live handle keeps the layers it was opened with.
	assert.Equal(t, 0, h.eng.LastOptions().GPULayers)
}

func TestSetGPULayers_Negative(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	err := h.m.SetGPULayers(-1)
	assert.True(t, config.IsConfigError(err))
}

func TestSetGPULayers_PendingReportedInStatus(t *testing.T) {
	h := newHarness(t, harnessOpts{mc: func(c *ManagerConfig) { c.GPUDebounce = time.Hour }})
	require.NoError(t, h.m.SetGPULayers(5))
	assert.True(t, h.m.Status().GPULayersPending)
	assert.Equal(t, 0, h.m.Status().GPULayers)

	h.m.FlushGPULayers()
	st := h.m.Status()
	assert.False(t, st.GPULayersPending)
	assert.Equal(t, 5, st.GPULayers)
}
