package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// Store owns the configuration file and its in-memory copy.
// Reads are free; writes go through SetAndPersist, which persists first and
// only then swaps the in-memory copy, so the two never diverge.
type Store struct {
	path string

	wmu sync.Mutex // serializes SetAndPersist
	mu  sync.RWMutex
	cfg Config
}

// Open loads path into a new Store.
func Open(path string) (*Store, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, cfg: cfg}, nil
}

// NewStore wraps an already-loaded config. Persisting writes to path.
func NewStore(path string, cfg Config) *Store {
	return &Store{path: path, cfg: cfg}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Get returns a copy of the current configuration.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// SetAndPersist sets section.key to value, writes the document and then
// updates memory. String values are parsed according to the field type.
func (s *Store) SetAndPersist(section, key string, value any) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	next := s.Get()
	if err := setField(&next, section, key, value); err != nil {
		return err
	}
	if err := Validate(next); err != nil {
		return err
	}
	if s.path == "" {
		return &Error{Section: section, Key: key, Msg: "no config file to persist to"}
	}
	if err := Save(s.path, next); err != nil {
		return &Error{Section: section, Key: key, Msg: "failed to save config value", Err: err}
	}
	s.mu.Lock()
	s.cfg = next
	s.mu.Unlock()
	return nil
}

func setField(cfg *Config, section, key string, value any) error {
	var sv reflect.Value
	switch section {
	case SectionServer:
		sv = reflect.ValueOf(&cfg.Server).Elem()
	case SectionModel:
		sv = reflect.ValueOf(&cfg.Model).Elem()
	default:
		return &Error{Section: section, Msg: fmt.Sprintf("unknown config section %q", section)}
	}
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		if st.Field(i).Tag.Get("toml") != key {
			continue
		}
		if err := assign(sv.Field(i), value); err != nil {
			return &Error{Section: section, Key: key, Msg: "invalid value", Err: err}
		}
		return nil
	}
	return &Error{Section: section, Key: key, Msg: "unknown config key"}
}

func assign(f reflect.Value, value any) error {
	s, isStr := value.(string)
	if isStr {
		s = strings.TrimSpace(s)
	}
	rv := reflect.ValueOf(value)
	switch f.Kind() {
	case reflect.String:
		if !isStr {
			return fmt.Errorf("want string, got %T", value)
		}
		f.SetString(value.(string))
	case reflect.Int:
		if isStr {
			n, err := strconv.Atoi(s)
			if err != nil {
				return err
			}
			f.SetInt(int64(n))
			return nil
		}
		if !rv.IsValid() || !rv.CanInt() {
			return fmt.Errorf("want integer, got %T", value)
		}
		f.SetInt(rv.Int())
	case reflect.Float64:
		if isStr {
			x, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			f.SetFloat(x)
			return nil
		}
		switch {
		case rv.IsValid() && rv.CanFloat():
			f.SetFloat(rv.Float())
		case rv.IsValid() && rv.CanInt():
			f.SetFloat(float64(rv.Int()))
		default:
			return fmt.Errorf("want number, got %T", value)
		}
	case reflect.Bool:
		if isStr {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			f.SetBool(b)
			return nil
		}
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("want bool, got %T", value)
		}
		f.SetBool(b)
	default:
		return fmt.Errorf("unsupported field kind %s", f.Kind())
	}
	return nil
}

// Lookup returns the value of section.key, addressed by its file key name.
func Lookup(cfg Config, section, key string) (any, error) {
	var sv reflect.Value
	switch section {
	case SectionServer:
		sv = reflect.ValueOf(cfg.Server)
	case SectionModel:
		sv = reflect.ValueOf(cfg.Model)
	default:
		return nil, &Error{Section: section, Msg: fmt.Sprintf("unknown config section %q", section)}
	}
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		if st.Field(i).Tag.Get("toml") == key {
			return sv.Field(i).Interface(), nil
		}
	}
	return nil, &Error{Section: section, Key: key, Msg: "unknown config key"}
}
