package manager

import (
	"time"

	"github.com/rs/zerolog"

	"llmctl/internal/config"
	"llmctl/internal/engine"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxWait           = 30 * time.Second
	defaultShutdownGrace     = 10 * time.Second
	defaultDrainWarnInterval = 5 * time.Second
	defaultGPUDebounce       = 500 * time.Millisecond
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Store is required.
	Store *config.Store
	// Engine defaults to engine.New(Threads).
	Engine    engine.Engine
	Publisher EventPublisher
	Logger    *zerolog.Logger
	Threads   int

	// MaxWait bounds how long a generation waits for an admission slot.
	MaxWait time.Duration
	// ShutdownGrace bounds graceful server shutdown before a forced close.
	ShutdownGrace time.Duration
	// DrainWarnInterval is the period of warnings while Unload waits on leases.
	DrainWarnInterval time.Duration
	// GPUDebounce coalesces SetGPULayers calls.
	GPUDebounce time.Duration
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	if c.Engine == nil {
		c.Engine = engine.New(c.Threads)
	}
	if c.Publisher == nil {
		c.Publisher = noopPublisher{}
	}
	if c.MaxWait <= 0 {
		c.MaxWait = defaultMaxWait
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = defaultShutdownGrace
	}
	if c.DrainWarnInterval <= 0 {
		c.DrainWarnInterval = defaultDrainWarnInterval
	}
	if c.GPUDebounce <= 0 {
		c.GPUDebounce = defaultGPUDebounce
	}
	return c
}
