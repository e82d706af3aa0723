package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"llmctl/internal/config"
	"llmctl/internal/engine"
	"llmctl/internal/httpapi"
	"llmctl/internal/manager"
)

const closeTimeout = 30 * time.Second

// app wires the configuration store, logger, engine and manager.
type app struct {
	store  *config.Store
	mgr    *manager.Manager
	queue  *manager.Queue
	log    zerolog.Logger
	closer io.Closer
}

func newApp(opts options, console bool) (*app, error) {
	store, err := config.Open(opts.configPath())
	if err != nil {
		return nil, err
	}
	cfg := store.Get()
	lg, closer, err := newLogger(cfg.Server, opts.logLevel(), console)
	if err != nil {
		return nil, err
	}
	eng, err := selectEngine(opts.engine(), opts.threads())
	if err != nil {
		closer.Close()
		return nil, err
	}
	q := manager.NewQueue()
	mgr := manager.New(manager.ManagerConfig{
		Store:     store,
		Engine:    eng,
		Publisher: q,
		Logger:    &lg,
		Threads:   opts.threads(),
	})
	httpLog := lg.With().Str("component", "http").Logger()
	mgr.SetHandler(httpapi.NewMux(mgr, httpapi.Options{Logger: &httpLog, LogLevel: "info"}))
	for _, c := range []prometheus.Collector{mgr, manager.NewQueueGauge(q)} {
		if err := prometheus.Register(c); err != nil {
			lg.Warn().Err(err).Msg("metrics not registered")
		}
	}
	lg.Info().Str("config", store.Path()).Str("engine", opts.engine()).Bool("llama_built", engine.Built).Msg("llmctl starting")
	return &app{store: store, mgr: mgr, queue: q, log: lg, closer: closer}, nil
}

func selectEngine(name string, threads int) (engine.Engine, error) {
	switch name {
	case "", "llama":
		return engine.New(threads), nil
	case "fake":
		return &engine.Fake{}, nil
	default:
		return nil, fmt.Errorf("unknown engine %q (want llama or fake)", name)
	}
}

// shutdown stops the server, releases the model and closes the log file.
func (a *app) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	err := a.mgr.Close(ctx)
	if err != nil {
		a.log.Error().Err(err).Msg("shutdown incomplete")
	}
	a.log.Info().Msg("llmctl stopped")
	_ = a.closer.Close()
	return err
}
