package config

import (
	"errors"
	"fmt"
)

// Error is a configuration error: a missing section, an invalid value or a
// failed persist. Section and Key are empty when not applicable.
type Error struct {
	Section string
	Key     string
	Msg     string
	Err     error
	// Missing marks a required section absent from the file.
	Missing bool
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Key != "" {
		msg = fmt.Sprintf("%s (%s.%s)", msg, e.Section, e.Key)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsConfigError reports whether err is (or wraps) a configuration error.
func IsConfigError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

// MissingSection reports the section named by a missing-section error.
func MissingSection(err error) (string, bool) {
	var ce *Error
	if errors.As(err, &ce) && ce.Missing {
		return ce.Section, true
	}
	return "", false
}
