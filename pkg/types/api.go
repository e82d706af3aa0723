package types

// GenerateRequest is the body of POST /api/v1/generate. Optional fields
// fall back to the [model] section of the configuration when omitted.
type GenerateRequest struct {
	// Required prompt text to complete.
	// example: Write a haiku about the ocean.
	Prompt string `json:"prompt" example:"Write a haiku about the ocean."`
	// Maximum number of new tokens to generate.
	// example: 128
	MaxTokens *int `json:"max_tokens,omitempty" example:"128"`
	// Sampling temperature.
	// example: 0.7
	Temperature *float64 `json:"temperature,omitempty" example:"0.7"`
	// Nucleus sampling probability.
	// example: 0.95
	TopP *float64 `json:"top_p,omitempty" example:"0.95"`
	// Streaming is not supported; true yields 400.
	// example: false
	Stream *bool `json:"stream,omitempty" example:"false"`
	// Optional stop sequences.
	Stop []string `json:"stop,omitempty"`
}

// Choice is a single completion alternative.
type Choice struct {
	Text  string `json:"text"`
	Index int    `json:"index"`
	// Always null; kept for client compatibility.
	Logprobs     any    `json:"logprobs" swaggertype:"object"`
	FinishReason string `json:"finish_reason" example:"length"`
}

// Usage reports token accounting for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens" example:"9"`
	CompletionTokens int `json:"completion_tokens" example:"128"`
	TotalTokens      int `json:"total_tokens" example:"137"`
}

// GenerateResponse is returned by POST /api/v1/generate.
type GenerateResponse struct {
	ID      string   `json:"id" example:"cmpl-3f1c2a9e"`
	Object  string   `json:"object" example:"text_completion"`
	Created int64    `json:"created" example:"1700000000"`
	Model   string   `json:"model" example:"/models/tinyllama.gguf"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// example: ok
	Status string `json:"status" example:"ok"`
	// example: false
	ModelLoaded bool `json:"model_loaded" example:"false"`
}

// ModelsResponse wraps the list returned by `llmctl models`.
type ModelsResponse struct {
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: Model not loaded
	Error string `json:"error" example:"Model not loaded"`
	// HTTP status code.
	// example: 503
	Code int `json:"code,omitempty" example:"503"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Serving unit state: stopped, starting, running, stopping.
	// example: running
	Server string `json:"server" example:"running"`
	// Listen address while running.
	// example: 127.0.0.1:8000
	Addr string `json:"addr,omitempty" example:"127.0.0.1:8000"`
	// Model state: unloaded, loading, loaded, unloading, load_failed.
	// example: loaded
	Model string `json:"model" example:"loaded"`
	// Path of the loaded model, or the configured one when not loaded.
	ModelPath string `json:"model_path,omitempty"`
	// Layer count reported by the last capacity probe.
	// example: 22
	MaxLayers int `json:"max_layers,omitempty" example:"22"`
	// True while a GPU-layer change waits to be written to the config file.
	GPULayersPending bool `json:"n_gpu_layers_pending,omitempty"`
	// Configured GPU layers.
	// example: 0
	GPULayers int `json:"n_gpu_layers" example:"0"`
	// Generations currently running on the live handle.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Generations waiting for an admission slot.
	// example: 0
	Queued int `json:"queued" example:"0"`
	// Admission slots (batch_size).
	// example: 4
	BatchSize int `json:"batch_size" example:"4"`
	// Total successful model loads.
	// example: 3
	LoadsTotal uint64 `json:"loads_total" example:"3"`
	// Last load error, if any.
	LastError string `json:"last_error,omitempty"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
