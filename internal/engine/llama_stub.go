//go:build !llama

package engine

// Built reports whether this binary links the llama.cpp runtime.
const Built = false

// stubEngine refuses to load models but still probes metadata, which only
// needs the file header. Default builds stay CGO-free.
type stubEngine struct{}

// New returns an engine that fails Open with ErrUnavailable.
func New(threads int) Engine { return stubEngine{} }

func (stubEngine) Open(Options) (Handle, error) { return nil, ErrUnavailable }

func (stubEngine) Probe(path string) (Info, error) { return ProbeFile(path) }
