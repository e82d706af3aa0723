package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"llmctl/internal/common/fsutil"
)

var requiredSections = []string{SectionServer, SectionModel}

// Load reads a configuration file based on its extension.
// Supports: .toml, .yaml/.yml, .json. Both sections are required; keys missing
// inside a section take their Default values.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, &Error{Msg: "empty config path"}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, &Error{Msg: fmt.Sprintf("configuration file not found at path: %s", path)}
		}
		return Config{}, &Error{Msg: "read config", Err: err}
	}
	return Decode(formatOf(path), b)
}

// Decode parses b in the given format ("toml", "yaml" or "json") and validates it.
func Decode(format string, b []byte) (Config, error) {
	var raw map[string]any
	if err := unmarshal(format, b, &raw); err != nil {
		return Config{}, &Error{Msg: "parse config", Err: err}
	}
	for _, s := range requiredSections {
		if _, ok := raw[s]; !ok {
			return Config{}, &Error{Section: s, Missing: true, Msg: fmt.Sprintf("missing required section in config file: '[%s]'", s)}
		}
	}
	cfg := Default()
	if err := unmarshal(format, b, &cfg); err != nil {
		return Config{}, &Error{Msg: "parse config", Err: err}
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values a running controller depends on. Port 0 binds an
// ephemeral port.
func Validate(cfg Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return &Error{Section: SectionServer, Key: "port", Msg: fmt.Sprintf("port %d out of range", cfg.Server.Port)}
	}
	if cfg.Server.BatchSize < 1 {
		return &Error{Section: SectionServer, Key: "batch_size", Msg: "batch_size must be at least 1"}
	}
	if cfg.Model.NGPULayers < 0 {
		return &Error{Section: SectionModel, Key: "n_gpu_layers", Msg: "n_gpu_layers must not be negative"}
	}
	if cfg.Model.HasModel() {
		p, err := fsutil.ExpandHome(cfg.Model.ModelPath)
		if err != nil {
			return &Error{Section: SectionModel, Key: "model_path", Msg: "invalid model path", Err: err}
		}
		if !fsutil.PathExists(p) {
			return &Error{Section: SectionModel, Key: "model_path", Msg: fmt.Sprintf("model path '%s' in config file does not exist", cfg.Model.ModelPath)}
		}
	}
	return nil
}

// Save writes cfg to path in the format implied by its extension. The file is
// replaced atomically so a crash never leaves a half-written config.
func Save(path string, cfg Config) error {
	b, err := marshal(formatOf(path), cfg)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if fi, err := os.Stat(path); err == nil {
		_ = os.Chmod(tmpName, fi.Mode().Perm())
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	case ".toml", ".ini", ".conf", "":
		return "toml"
	default:
		return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
}

func unmarshal(format string, b []byte, v any) error {
	switch format {
	case "yaml":
		return yaml.Unmarshal(b, v)
	case "json":
		return json.Unmarshal(b, v)
	case "toml":
		return toml.Unmarshal(b, v)
	}
	return fmt.Errorf("unsupported config format: %s", format)
}

func marshal(format string, v any) ([]byte, error) {
	switch format {
	case "yaml":
		return yaml.Marshal(v)
	case "json":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case "toml":
		return toml.Marshal(v)
	}
	return nil, fmt.Errorf("unsupported config format: %s", format)
}
