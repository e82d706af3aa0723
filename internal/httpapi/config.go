package httpapi

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const defaultMaxBodyBytes int64 = 1 << 20

// Options tunes the HTTP layer. The zero value is usable.
type Options struct {
	// Logger receives request logs. Nil disables them.
	Logger *zerolog.Logger
	// LogLevel is the default per-request log level ("off", "error",
	// "info", "debug"); X-Log-Level or ?log= override it per request.
	LogLevel string
	// MaxBodyBytes caps JSON request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64
	// GenerateTimeout bounds a single generation. Zero disables it.
	GenerateTimeout time.Duration
	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

func (o Options) withDefaults() Options {
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = defaultMaxBodyBytes
	}
	if o.Gatherer == nil {
		o.Gatherer = prometheus.DefaultGatherer
	}
	if o.LogLevel == "" {
		o.LogLevel = "info"
	}
	return o
}
