package engine

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Fake is a deterministic in-memory engine. It echoes the prompt one word per
// token and tracks live handles so callers can check for leaks and
// use-after-close. Useful for tests and for running the control plane on
// machines without a llama runtime.
type Fake struct {
	LoadDelay  time.Duration
	GenDelay   time.Duration
	ProbeDelay time.Duration
	LoadErr    error
	GenErr     error
	// Layers reported when the model file carries no GGUF metadata.
	Layers int

	opened   atomic.Int64
	closed   atomic.Int64
	probes   atomic.Int64
	inflight atomic.Int64

	mu       sync.Mutex
	lastOpts Options
}

func (f *Fake) Open(opts Options) (Handle, error) {
	if f.LoadDelay > 0 {
		time.Sleep(f.LoadDelay)
	}
	if f.LoadErr != nil {
		return nil, f.LoadErr
	}
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, err
	}
	info, err := ProbeFile(opts.ModelPath)
	if err != nil {
		info = Info{Path: opts.ModelPath, Architecture: "fake", Layers: f.Layers}
	}
	f.mu.Lock()
	f.lastOpts = opts
	f.mu.Unlock()
	f.opened.Add(1)
	return &fakeHandle{f: f, info: info}, nil
}

func (f *Fake) Probe(path string) (Info, error) {
	f.probes.Add(1)
	if f.ProbeDelay > 0 {
		time.Sleep(f.ProbeDelay)
	}
	info, err := ProbeFile(path)
	if err != nil && f.Layers > 0 {
		if _, serr := os.Stat(path); serr == nil {
			return Info{Path: path, Architecture: "fake", Layers: f.Layers}, nil
		}
	}
	return info, err
}

// Live returns the number of opened handles not yet closed.
func (f *Fake) Live() int { return int(f.opened.Load() - f.closed.Load()) }

// Opened returns the total number of successful opens.
func (f *Fake) Opened() int { return int(f.opened.Load()) }

// Probes returns the number of Probe calls.
func (f *Fake) Probes() int { return int(f.probes.Load()) }

// Inflight returns completions currently running across all handles.
func (f *Fake) Inflight() int { return int(f.inflight.Load()) }

// LastOptions returns the options of the most recent successful Open.
func (f *Fake) LastOptions() Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastOpts
}

type fakeHandle struct {
	f      *Fake
	info   Info
	closed atomic.Bool
}

func (h *fakeHandle) Info() Info { return h.info }

func (h *fakeHandle) Complete(ctx context.Context, prompt string, p Params) (Completion, error) {
	if h.closed.Load() {
		return Completion{}, ErrClosed
	}
	h.f.inflight.Add(1)
	defer h.f.inflight.Add(-1)
	if h.f.GenDelay > 0 {
		t := time.NewTimer(h.f.GenDelay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return Completion{}, ctx.Err()
		}
	}
	// A handle released mid-generation would surface here.
	if h.closed.Load() {
		return Completion{}, fmt.Errorf("completion on released handle: %w", ErrClosed)
	}
	if h.f.GenErr != nil {
		return Completion{}, h.f.GenErr
	}
	words := strings.Fields(prompt)
	out := words
	if p.MaxTokens > 0 && len(out) > p.MaxTokens {
		out = out[:p.MaxTokens]
	}
	return Completion{
		Text:         strings.Join(out, " "),
		FinishReason: finishReason(len(out), p.MaxTokens),
		Usage: Usage{
			PromptTokens:     len(words),
			CompletionTokens: len(out),
			TotalTokens:      len(words) + len(out),
		},
	}, nil
}

func (h *fakeHandle) Close() error {
	if h.closed.CompareAndSwap(false, true) {
		h.f.closed.Add(1)
	}
	return nil
}
