// Package gguftest writes small GGUF files for tests.
package gguftest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"llmctl/internal/gguf"
)

// KV is one metadata entry, written in order.
type KV struct {
	Key   string
	Value any
}

// Encode returns a version 3 GGUF header holding kvs and zero tensors.
// Supported values: string, bool, uint32, int32, uint64, float32, []string.
func Encode(kvs ...KV) ([]byte, error) {
	var b bytes.Buffer
	le := binary.LittleEndian
	_ = binary.Write(&b, le, gguf.Magic)
	_ = binary.Write(&b, le, uint32(3))
	_ = binary.Write(&b, le, uint64(0))
	_ = binary.Write(&b, le, uint64(len(kvs)))
	str := func(s string) {
		_ = binary.Write(&b, le, uint64(len(s)))
		b.WriteString(s)
	}
	for _, kv := range kvs {
		str(kv.Key)
		switch v := kv.Value.(type) {
		case string:
			_ = binary.Write(&b, le, uint32(gguf.TypeString))
			str(v)
		case bool:
			_ = binary.Write(&b, le, uint32(gguf.TypeBool))
			if v {
				b.WriteByte(1)
			} else {
				b.WriteByte(0)
			}
		case uint32:
			_ = binary.Write(&b, le, uint32(gguf.TypeUint32))
			_ = binary.Write(&b, le, v)
		case int32:
			_ = binary.Write(&b, le, uint32(gguf.TypeInt32))
			_ = binary.Write(&b, le, v)
		case uint64:
			_ = binary.Write(&b, le, uint32(gguf.TypeUint64))
			_ = binary.Write(&b, le, v)
		case float32:
			_ = binary.Write(&b, le, uint32(gguf.TypeFloat32))
			_ = binary.Write(&b, le, math.Float32bits(v))
		case []string:
			_ = binary.Write(&b, le, uint32(gguf.TypeArray))
			_ = binary.Write(&b, le, uint32(gguf.TypeString))
			_ = binary.Write(&b, le, uint64(len(v)))
			for _, s := range v {
				str(s)
			}
		default:
			return nil, fmt.Errorf("gguftest: unsupported value %T for %q", v, kv.Key)
		}
	}
	return b.Bytes(), nil
}

// WriteModel writes a minimal model file for architecture arch with the given
// block count into dir and returns its path.
func WriteModel(t testing.TB, dir, name, arch string, blocks uint32) string {
	t.Helper()
	b, err := Encode(
		KV{Key: "general.architecture", Value: arch},
		KV{Key: "general.name", Value: name},
		KV{Key: "tokenizer.ggml.tokens", Value: []string{"<s>", "</s>", "hello"}},
		KV{Key: arch + ".context_length", Value: uint32(4096)},
		KV{Key: arch + ".block_count", Value: blocks},
	)
	if err != nil {
		t.Fatalf("encode gguf: %v", err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}
