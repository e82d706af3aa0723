package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"llmctl/internal/manager"
	"llmctl/internal/observer"
)

func newServeCmd(opts options) *cobra.Command {
	var load bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server headless until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, true)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err = runServe(ctx, a, load)
			if serr := a.shutdown(); err == nil {
				err = serr
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&load, "load", true, "Load the configured model at startup")
	return cmd
}

// runServe starts the serving unit, optionally loads the model and blocks
// until ctx is done. Events are already mirrored to the logger, so the
// observer only keeps the queue drained.
func runServe(ctx context.Context, a *app, load bool) error {
	g, gctx := errgroup.WithContext(ctx)
	loop := &observer.Loop{Source: a.queue, Interval: time.Second}
	g.Go(func() error { return loop.Run(gctx) })

	g.Go(func() error {
		task, err := a.mgr.StartServer()
		if err != nil {
			return err
		}
		if err := task.Wait(gctx); err != nil {
			return err
		}
		if !load || !a.mgr.Config().Model.HasModel() {
			return nil
		}
		// Load failures are reported through the event log; the server keeps
		// answering 503 until a model is loaded.
		if _, err := a.mgr.LoadModel(); err != nil && !manager.IsInvalidState(err) {
			a.log.Error().Err(err).Msg("model not loaded")
		}
		return nil
	})
	return g.Wait()
}
