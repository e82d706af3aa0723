package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProbeCmd(opts options) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <model.gguf>",
		Short: "Print the transformer layer count declared by a model file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := selectEngine(opts.engine(), opts.threads())
			if err != nil {
				return err
			}
			info, err := eng.Probe(args[0])
			if err != nil {
				return fmt.Errorf("Could not determine model layer count from GGUF metadata: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Detected %d layers in model.\n", info.Layers)
			if info.Architecture != "" {
				fmt.Fprintf(out, "Architecture: %s\n", info.Architecture)
			}
			return nil
		},
	}
}
