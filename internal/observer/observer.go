// Package observer drives a fixed-tick consumer of the manager's event queue.
package observer

import (
	"context"
	"time"

	"llmctl/internal/manager"
)

// DefaultInterval matches the panel's redraw cadence.
const DefaultInterval = 100 * time.Millisecond

// Drainer is the consumer side of manager.Queue.
type Drainer interface {
	Drain() []manager.Event
}

// Loop drains Source every Interval and hands non-empty batches to Handle.
// Handle runs on the loop goroutine and must not block for long.
type Loop struct {
	Source   Drainer
	Interval time.Duration
	Handle   func([]manager.Event)
	// Tick, if set, runs after Handle on every tick, even when nothing was
	// drained. Panels use it to refresh state-derived widgets.
	Tick func()
}

// Run blocks until ctx is done. It drains once more before returning so
// events published during shutdown are not lost.
func (l *Loop) Run(ctx context.Context) error {
	iv := l.Interval
	if iv <= 0 {
		iv = DefaultInterval
	}
	t := time.NewTicker(iv)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			l.step()
			return nil
		case <-t.C:
			l.step()
		}
	}
}

func (l *Loop) step() {
	if evs := l.Source.Drain(); len(evs) > 0 && l.Handle != nil {
		l.Handle(evs)
	}
	if l.Tick != nil {
		l.Tick()
	}
}

// State is what an observer renders: the log tail and the GPU-layer ceiling
// learned from capacity probes.
type State struct {
	Lines     []string
	MaxLines  int
	MaxLayers int
}

// Apply folds events into s. Log lines are formatted as "[HH:MM:SS] text".
func (s *State) Apply(evs []manager.Event) {
	for _, e := range evs {
		switch e.Kind {
		case manager.KindLog:
			s.Lines = append(s.Lines, FormatLog(e))
		case manager.KindCapacity:
			s.MaxLayers = e.MaxLayers
		}
	}
	if s.MaxLines > 0 && len(s.Lines) > s.MaxLines {
		s.Lines = append([]string(nil), s.Lines[len(s.Lines)-s.MaxLines:]...)
	}
}

// ClampLayers bounds n to [0, MaxLayers]; an unknown ceiling only clamps at 0.
func (s *State) ClampLayers(n int) int {
	if n < 0 {
		return 0
	}
	if s.MaxLayers > 0 && n > s.MaxLayers {
		return s.MaxLayers
	}
	return n
}

// FormatLog renders a Log event as a single display line.
func FormatLog(e manager.Event) string {
	line := "[" + e.Time.Format("15:04:05") + "] "
	if e.Level != manager.LevelInfo {
		line += e.Level.String() + ": "
	}
	return line + e.Text
}
