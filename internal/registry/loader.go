package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"llmctl/internal/common/fsutil"
	"llmctl/pkg/types"
)

// quantRe matches llama.cpp quantization tags such as Q4_K_M, Q8_0 or F16.
var quantRe = regexp.MustCompile(`(?i)(?:^|[._-])((?:I?Q[0-9]+(?:_[A-Z0-9]+)*)|F16|F32|BF16)$`)

// LoadDir scans dir (non-recursive) for *.gguf files, sorted by file name.
// ID is the file name without extension; Path is absolute.
func LoadDir(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if !strings.EqualFold(ext, ".gguf") {
			continue
		}
		m := describe(strings.TrimSuffix(name, ext))
		m.Path = filepath.Join(abs, name)
		if fi, err := e.Info(); err == nil {
			m.SizeBytes = fi.Size()
		}
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

func describe(stem string) types.Model {
	m := types.Model{ID: stem}
	base := stem
	if loc := quantRe.FindStringSubmatchIndex(stem); loc != nil {
		m.Quant = strings.ToUpper(stem[loc[2]:loc[3]])
		base = strings.TrimRight(stem[:loc[2]], "._-")
	}
	m.Name = strings.Join(strings.FieldsFunc(base, func(r rune) bool {
		return r == '-' || r == '_'
	}), " ")
	if m.Quant != "" {
		m.Name += " (" + m.Quant + ")"
	}
	return m
}
