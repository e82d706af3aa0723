package config

import (
	"strings"

	"github.com/rs/zerolog"
)

// PlaceholderModelPath is the model_path shipped in sample configs. It is
// treated like an empty path: the controller starts with no model selected.
const PlaceholderModelPath = "/path/to/your/model.gguf"

// Section names of the configuration document.
const (
	SectionServer = "server"
	SectionModel  = "model"
)

// ServerConfig holds HTTP serving settings.
type ServerConfig struct {
	Host      string `json:"host" yaml:"host" toml:"host"`
	Port      int    `json:"port" yaml:"port" toml:"port"`
	APIKeys   string `json:"api_keys" yaml:"api_keys" toml:"api_keys"`
	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFile   string `json:"log_file" yaml:"log_file" toml:"log_file"`
	UseAuth   bool   `json:"use_auth" yaml:"use_auth" toml:"use_auth"`
	BatchSize int    `json:"batch_size" yaml:"batch_size" toml:"batch_size"`
}

// ModelConfig holds model load and generation defaults.
type ModelConfig struct {
	ModelPath      string  `json:"model_path" yaml:"model_path" toml:"model_path"`
	LoraPath       string  `json:"lora_path" yaml:"lora_path" toml:"lora_path"`
	ModelType      string  `json:"model_type" yaml:"model_type" toml:"model_type"`
	MaxTokens      int     `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	Temperature    float64 `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopP           float64 `json:"top_p" yaml:"top_p" toml:"top_p"`
	NGPULayers     int     `json:"n_gpu_layers" yaml:"n_gpu_layers" toml:"n_gpu_layers"`
	Streaming      bool    `json:"streaming" yaml:"streaming" toml:"streaming"`
	FlashAttention bool    `json:"flash_attention" yaml:"flash_attention" toml:"flash_attention"`
}

// Config is the whole configuration document.
type Config struct {
	Server ServerConfig `json:"server" yaml:"server" toml:"server"`
	Model  ModelConfig  `json:"model" yaml:"model" toml:"model"`
}

// Default returns the values used for keys missing from a config file.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:      "127.0.0.1",
			Port:      8000,
			LogLevel:  "INFO",
			LogFile:   "llm_server.log",
			BatchSize: 4,
		},
		Model: ModelConfig{
			ModelType:   "llama",
			MaxTokens:   2048,
			Temperature: 0.7,
			TopP:        0.95,
		},
	}
}

// Keys returns the configured API keys.
func (s ServerConfig) Keys() []string { return splitCSV(s.APIKeys) }

// Level maps log_level to a zerolog level. Unknown values mean info.
func (s ServerConfig) Level() zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(s.LogLevel)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR", "CRITICAL", "FATAL":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// HasModel reports whether a real model path is configured.
func (m ModelConfig) HasModel() bool {
	p := strings.TrimSpace(m.ModelPath)
	return p != "" && p != PlaceholderModelPath
}

// splitCSV splits a comma-separated list, trimming blanks and dropping empties.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
