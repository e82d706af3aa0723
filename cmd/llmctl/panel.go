package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"llmctl/internal/panel"
)

func newPanelCmd(opts options) *cobra.Command {
	return &cobra.Command{
		Use:   "panel",
		Short: "Interactive control panel (start/stop server, load/unload model)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, false)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			runErr := panel.New(a.mgr, a.queue, opts.modelsDir()).Run(ctx)
			if err := a.shutdown(); err != nil && runErr == nil {
				runErr = err
			}
			return runErr
		},
	}
}
