// Package engine is the boundary to the inference runtime: opening a model into
// a Handle, running completions on it, and probing model files for metadata.
package engine

import (
	"context"
	"errors"
	"fmt"

	"llmctl/internal/gguf"
)

// ErrUnavailable means this binary carries no usable inference runtime.
var ErrUnavailable = errors.New("inference engine not available in this build (rebuild with -tags=llama)")

// ErrClosed is returned by Handle methods after Close.
var ErrClosed = errors.New("engine handle closed")

// Engine opens models. Implementations must be safe for concurrent use.
type Engine interface {
	// Open loads the model described by opts. It blocks for the full load.
	Open(opts Options) (Handle, error)
	// Probe reads static metadata from a model file without loading weights
	// or reserving accelerator memory. Any temporary resources are released
	// before it returns.
	Probe(path string) (Info, error)
}

// Handle is a loaded model ready to generate completions.
type Handle interface {
	Complete(ctx context.Context, prompt string, p Params) (Completion, error)
	Info() Info
	// Close releases weights and context. Callers guarantee no Complete is in flight.
	Close() error
}

// Options configure a model load.
type Options struct {
	ModelPath      string
	LoraPath       string
	ContextSize    int
	GPULayers      int
	FlashAttention bool
	Threads        int
}

// Params are per-request sampling parameters.
type Params struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
	Stop        []string
}

// Usage is token accounting for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the result of a single generation.
type Completion struct {
	Text         string
	FinishReason string
	Usage        Usage
}

// Info is static model metadata.
type Info struct {
	Path         string
	Architecture string
	Layers       int
}

// ProbeFile reads Info from the GGUF header of path.
func ProbeFile(path string) (Info, error) {
	md, err := gguf.ReadFile(path)
	if err != nil {
		return Info{}, err
	}
	n, ok := md.BlockCount()
	if !ok {
		return Info{}, fmt.Errorf("%s: no block_count in model metadata", path)
	}
	return Info{Path: path, Architecture: md.Architecture(), Layers: n}, nil
}

func finishReason(completionTokens, maxTokens int) string {
	if maxTokens > 0 && completionTokens >= maxTokens {
		return "length"
	}
	return "stop"
}
