package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"llmctl/internal/config"
)

func newConfigCmd(opts options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or change the configuration file",
	}
	get := &cobra.Command{
		Use:   "get [section.key]",
		Short: "Print the whole configuration or one value",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				b, err := yaml.Marshal(cfg)
				if err != nil {
					return err
				}
				_, err = out.Write(b)
				return err
			}
			section, key, err := splitKey(args[0])
			if err != nil {
				return err
			}
			v, err := config.Lookup(cfg, section, key)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, v)
			return nil
		},
	}
	set := &cobra.Command{
		Use:   "set <section.key> <value>",
		Short: "Validate and persist one value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			section, key, err := splitKey(args[0])
			if err != nil {
				return err
			}
			store, err := config.Open(opts.configPath())
			if err != nil {
				return err
			}
			return store.SetAndPersist(section, key, args[1])
		},
	}
	// Values such as -1 are positional, not flags.
	set.Flags().SetInterspersed(false)
	cmd.AddCommand(get, set)
	return cmd
}

func splitKey(s string) (string, string, error) {
	section, key, ok := strings.Cut(s, ".")
	if !ok || section == "" || key == "" {
		return "", "", fmt.Errorf("expected section.key, got %q", s)
	}
	return section, key, nil
}
