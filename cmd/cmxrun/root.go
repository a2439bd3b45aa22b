package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/cmxrt"
	"github.com/hupe1980/cmxrt/config"
)

type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "cmxrun",
		Short:         "Run and inspect the cmxrt inference runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "Path to a YAML, JSON or TOML config file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level override (debug|info|warn|error)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format override (text|json)")

	root.AddCommand(newRunCmd(g))
	root.AddCommand(newLayoutCmd(g))
	root.AddCommand(newBenchCmd(g))

	return root
}

// load reads the config file if one was given and applies the log flags.
func (g *globalFlags) load() (config.Config, error) {
	cfg := config.Default()
	if g.configPath != "" {
		var err error
		if cfg, err = config.Load(g.configPath); err != nil {
			return config.Config{}, err
		}
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config, w io.Writer) (*cmxrt.Logger, error) {
	l, err := cmxrt.NewLoggerFromConfig(cfg.Log, w)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}
