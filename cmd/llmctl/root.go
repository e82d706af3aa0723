package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// options are the persistent flags, also settable as LLMCTL_* variables.
type options struct {
	v *viper.Viper
}

func (o options) configPath() string { return o.v.GetString("config") }
func (o options) logLevel() string   { return o.v.GetString("log-level") }
func (o options) modelsDir() string  { return o.v.GetString("models-dir") }
func (o options) engine() string     { return o.v.GetString("engine") }
func (o options) threads() int       { return o.v.GetInt("threads") }

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("LLMCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	opts := options{v: v}

	root := &cobra.Command{
		Use:           "llmctl",
		Short:         "Local control plane for a single LLM inference engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringP("config", "c", "config.toml", "Configuration file (.toml, .yaml or .json)")
	pf.String("log-level", "", "Override [server] log_level: debug|info|warning|error")
	pf.String("models-dir", "", "Directory listed by the model picker and `models`")
	pf.String("engine", "llama", "Inference engine: llama|fake")
	pf.Int("threads", 0, "Threads used by the inference engine (0 = runtime default)")
	_ = v.BindPFlags(pf)

	root.AddCommand(
		newPanelCmd(opts),
		newServeCmd(opts),
		newProbeCmd(opts),
		newModelsCmd(opts),
		newConfigCmd(opts),
	)
	return root
}
