package manager

import (
	"time"

	"github.com/rs/zerolog"
)

// EventKind tags the Event union.
type EventKind int

const (
	// KindLog carries a human-readable log line.
	KindLog EventKind = iota
	// KindCapacity carries the layer count found by a capacity probe.
	KindCapacity
)

// Level is the severity of a Log event.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Event is either Log{Text, Time, Level} or CapacityUpdate{MaxLayers}.
type Event struct {
	Kind      EventKind
	Time      time.Time
	Level     Level
	Text      string
	MaxLayers int
}

// LogEvent builds a Log event stamped with the current time.
func LogEvent(level Level, text string) Event {
	return Event{Kind: KindLog, Time: time.Now(), Level: level, Text: text}
}

// CapacityEvent builds a CapacityUpdate event.
func CapacityEvent(maxLayers int) Event {
	return Event{Kind: KindCapacity, Time: time.Now(), MaxLayers: maxLayers}
}

// EventPublisher receives events from the manager and its workers.
// Publish must not block and must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
