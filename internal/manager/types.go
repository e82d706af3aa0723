package manager

import "time"

// ServerState is the lifecycle state of the serving unit.
type ServerState int

const (
	ServerStopped ServerState = iota
	ServerStarting
	ServerRunning
	ServerStopping
)

func (s ServerState) String() string {
	switch s {
	case ServerStopped:
		return "stopped"
	case ServerStarting:
		return "starting"
	case ServerRunning:
		return "running"
	case ServerStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// ModelState is the lifecycle state of the model handle.
type ModelState int

const (
	ModelUnloaded ModelState = iota
	ModelLoading
	ModelLoaded
	ModelUnloading
	ModelLoadFailed
)

func (s ModelState) String() string {
	switch s {
	case ModelUnloaded:
		return "unloaded"
	case ModelLoading:
		return "loading"
	case ModelLoaded:
		return "loaded"
	case ModelUnloading:
		return "unloading"
	case ModelLoadFailed:
		return "load_failed"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	Server     ServerState
	Addr       string
	Model      ModelState
	ModelPath  string
	HasHandle  bool
	MaxLayers  int
	GPUPending bool
	Inflight   int
	Queued     int
	LoadsTotal uint64
	LastError  string
	Uptime     time.Duration
}
