// Package gguf reads the key/value metadata header of GGUF model files.
//
// Only the header is parsed; tensor data is never touched, so reading metadata
// from a multi-gigabyte model costs a few kilobytes of I/O.
package gguf

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// Magic is the little-endian encoding of "GGUF".
const Magic uint32 = 0x46554747

// ValueType enumerates GGUF metadata value types.
type ValueType uint32

const (
	TypeUint8 ValueType = iota
	TypeInt8
	TypeUint16
	TypeInt16
	TypeUint32
	TypeInt32
	TypeFloat32
	TypeBool
	TypeString
	TypeArray
	TypeUint64
	TypeInt64
	TypeFloat64
)

// Sanity limits for corrupt or hostile files.
const (
	maxStringLen = 1 << 24
	maxArrayLen  = 1 << 28
	maxKVCount   = 1 << 20
)

var ErrBadMagic = errors.New("gguf: bad magic")

// Array describes a skipped array value.
type Array struct {
	Elem ValueType
	Len  uint64
}

// Metadata is the parsed header of a GGUF file.
type Metadata struct {
	Version     uint32
	TensorCount uint64
	KV          map[string]any
}

// Architecture returns general.architecture, or "" if absent.
func (m Metadata) Architecture() string {
	s, _ := m.KV["general.architecture"].(string)
	return s
}

// BlockCount returns the transformer block (layer) count. It prefers
// "<architecture>.block_count" and falls back to any key ending in ".block_count".
func (m Metadata) BlockCount() (int, bool) {
	if arch := m.Architecture(); arch != "" {
		if n, ok := asInt(m.KV[arch+".block_count"]); ok {
			return n, true
		}
	}
	for k, v := range m.KV {
		if strings.HasSuffix(k, ".block_count") {
			if n, ok := asInt(v); ok {
				return n, true
			}
		}
	}
	return 0, false
}

// ReadFile opens path, reads its metadata and closes it on every path.
func ReadFile(path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, err
	}
	defer f.Close()
	md, err := Read(f)
	if err != nil {
		return Metadata{}, fmt.Errorf("%s: %w", path, err)
	}
	return md, nil
}

// Read parses a GGUF header from r.
func Read(r io.Reader) (Metadata, error) {
	d := &decoder{r: bufio.NewReaderSize(r, 64<<10)}
	var md Metadata
	mg, err := d.u32()
	if err != nil {
		return md, fmt.Errorf("gguf: read magic: %w", err)
	}
	if mg != Magic {
		return md, ErrBadMagic
	}
	if md.Version, err = d.u32(); err != nil {
		return md, err
	}
	if md.Version == 0 || md.Version > 3 {
		return md, fmt.Errorf("gguf: unsupported version %d", md.Version)
	}
	d.wide = md.Version >= 2
	if md.TensorCount, err = d.count(); err != nil {
		return md, err
	}
	n, err := d.count()
	if err != nil {
		return md, err
	}
	if n > maxKVCount {
		return md, fmt.Errorf("gguf: kv count %d too large", n)
	}
	md.KV = make(map[string]any, n)
	for i := uint64(0); i < n; i++ {
		key, err := d.str()
		if err != nil {
			return md, fmt.Errorf("gguf: kv %d key: %w", i, err)
		}
		t, err := d.u32()
		if err != nil {
			return md, err
		}
		v, err := d.value(ValueType(t))
		if err != nil {
			return md, fmt.Errorf("gguf: kv %q: %w", key, err)
		}
		md.KV[key] = v
	}
	return md, nil
}

type decoder struct {
	r    *bufio.Reader
	wide bool // v2+: 64-bit counts and string lengths
	buf  [8]byte
}

func (d *decoder) read(n int) ([]byte, error) {
	if _, err := io.ReadFull(d.r, d.buf[:n]); err != nil {
		return nil, err
	}
	return d.buf[:n], nil
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *decoder) u64() (uint64, error) {
	b, err := d.read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (d *decoder) count() (uint64, error) {
	if d.wide {
		return d.u64()
	}
	v, err := d.u32()
	return uint64(v), err
}

func (d *decoder) str() (string, error) {
	n, err := d.count()
	if err != nil {
		return "", err
	}
	if n > maxStringLen {
		return "", fmt.Errorf("string length %d too large", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *decoder) value(t ValueType) (any, error) {
	switch t {
	case TypeUint8, TypeInt8, TypeBool:
		b, err := d.read(1)
		if err != nil {
			return nil, err
		}
		switch t {
		case TypeUint8:
			return b[0], nil
		case TypeInt8:
			return int8(b[0]), nil
		}
		return b[0] != 0, nil
	case TypeUint16, TypeInt16:
		b, err := d.read(2)
		if err != nil {
			return nil, err
		}
		v := binary.LittleEndian.Uint16(b)
		if t == TypeInt16 {
			return int16(v), nil
		}
		return v, nil
	case TypeUint32, TypeInt32, TypeFloat32:
		v, err := d.u32()
		if err != nil {
			return nil, err
		}
		switch t {
		case TypeInt32:
			return int32(v), nil
		case TypeFloat32:
			return math.Float32frombits(v), nil
		}
		return v, nil
	case TypeUint64, TypeInt64, TypeFloat64:
		v, err := d.u64()
		if err != nil {
			return nil, err
		}
		switch t {
		case TypeInt64:
			return int64(v), nil
		case TypeFloat64:
			return math.Float64frombits(v), nil
		}
		return v, nil
	case TypeString:
		return d.str()
	case TypeArray:
		et, err := d.u32()
		if err != nil {
			return nil, err
		}
		n, err := d.count()
		if err != nil {
			return nil, err
		}
		if err := d.skipArray(ValueType(et), n); err != nil {
			return nil, err
		}
		return Array{Elem: ValueType(et), Len: n}, nil
	default:
		return nil, fmt.Errorf("unknown value type %d", t)
	}
}

func (d *decoder) skipArray(et ValueType, n uint64) error {
	if n > maxArrayLen {
		return fmt.Errorf("array length %d too large", n)
	}
	if sz := fixedSize(et); sz > 0 {
		_, err := io.CopyN(io.Discard, d.r, int64(sz)*int64(n))
		return err
	}
	for i := uint64(0); i < n; i++ {
		if _, err := d.value(et); err != nil {
			return err
		}
	}
	return nil
}

func fixedSize(t ValueType) int {
	switch t {
	case TypeUint8, TypeInt8, TypeBool:
		return 1
	case TypeUint16, TypeInt16:
		return 2
	case TypeUint32, TypeInt32, TypeFloat32:
		return 4
	case TypeUint64, TypeInt64, TypeFloat64:
		return 8
	}
	return 0
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case uint8:
		return int(n), true
	case int8:
		return int(n), true
	case uint16:
		return int(n), true
	case int16:
		return int(n), true
	case uint32:
		return int(n), true
	case int32:
		return int(n), true
	case uint64:
		return int(n), true
	case int64:
		return int(n), true
	}
	return 0, false
}
