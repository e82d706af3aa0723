//go:build llama

package engine

import (
	"context"
	"errors"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
)

// Built reports whether this binary links the llama.cpp runtime.
const Built = true

type llamaEngine struct {
	threads int
}

// New returns the go-llama.cpp engine.
func New(threads int) Engine { return &llamaEngine{threads: threads} }

func (e *llamaEngine) Probe(path string) (Info, error) { return ProbeFile(path) }

func (e *llamaEngine) Open(opts Options) (Handle, error) {
	if strings.TrimSpace(opts.ModelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	info, err := ProbeFile(opts.ModelPath)
	if err != nil {
		info = Info{Path: opts.ModelPath}
	}
	mo := []llama.ModelOption{
		llama.SetContext(max(1, opts.ContextSize)),
		llama.SetGPULayers(opts.GPULayers),
	}
	if opts.LoraPath != "" {
		mo = append(mo, llama.SetLoraAdapter(opts.LoraPath))
	}
	m, err := llama.New(opts.ModelPath, mo...)
	if err != nil {
		return nil, err
	}
	threads := opts.Threads
	if threads <= 0 {
		threads = e.threads
	}
	return &llamaHandle{model: m, threads: threads, info: info}, nil
}

// llamaHandle owns the loaded model. A llama context runs one prediction at a
// time, so Complete is serialized.
type llamaHandle struct {
	mu      sync.Mutex
	model   *llama.LLama
	threads int
	info    Info
}

func (h *llamaHandle) Info() Info { return h.info }

func (h *llamaHandle) Complete(ctx context.Context, prompt string, p Params) (Completion, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.model == nil {
		return Completion{}, ErrClosed
	}
	generated := 0
	h.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		generated++
		return true
	})
	po := predictOptions(p, h.threads)
	text, err := h.model.Predict(prompt, po...)
	if err != nil {
		if ctx.Err() != nil {
			return Completion{}, ctx.Err()
		}
		return Completion{}, err
	}
	if ctx.Err() != nil {
		return Completion{}, ctx.Err()
	}
	promptTokens := 0
	if n, _, err := h.model.TokenizeString(prompt, po...); err == nil {
		promptTokens = int(n)
	}
	return Completion{
		Text:         text,
		FinishReason: finishReason(generated, p.MaxTokens),
		Usage: Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: generated,
			TotalTokens:      promptTokens + generated,
		},
	}, nil
}

func (h *llamaHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.model != nil {
		h.model.Free()
		h.model = nil
	}
	return nil
}

func zf(v float64, def float32) float32 {
	if v > 0 {
		return float32(v)
	}
	return def
}

func predictOptions(p Params, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, p.MaxTokens)),
		llama.SetThreads(max(1, threads)),
		llama.SetTopP(zf(p.TopP, llama.DefaultOptions.TopP)),
		llama.SetTemperature(zf(p.Temperature, llama.DefaultOptions.Temperature)),
	}
	if len(p.Stop) > 0 {
		po = append(po, llama.SetStopWords(p.Stop...))
	}
	return po
}
