package manager

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Task tracks a worker spawned by a command. It settles exactly once.
type Task struct {
	ID   string
	Kind string

	once sync.Once
	done chan struct{}
	err  error
}

func newTask(kind string) *Task {
	return &Task{ID: uuid.NewString(), Kind: kind, done: make(chan struct{})}
}

func (t *Task) finish(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}

// Done is closed when the task settles.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the task outcome; nil until settled.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task settles or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
