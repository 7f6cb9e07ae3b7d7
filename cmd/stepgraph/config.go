package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petrijr/stepgraph"
)

const (
	flagConfig         = "config"
	flagLogLevel       = "log-level"
	flagLogFormat      = "log-format"
	flagHistory        = "history"
	flagMaxTransitions = "max-transitions"
	flagMaxParallelism = "max-parallelism"
	flagStepTimeout    = "step-timeout"
	flagStrict         = "strict"
)

// cliConfig is the resolved configuration shared by all subcommands.
type cliConfig struct {
	LogLevel       string
	LogFormat      string
	History        string
	MaxTransitions int
	MaxParallelism int
	StepTimeout    time.Duration
	Strict         bool
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "stepgraph",
		Short:         "Run and validate step graph workflows",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := root.PersistentFlags()
	flags.String(flagConfig, "", "config file (yaml, json or toml)")
	flags.String(flagLogLevel, "info", "log level: debug, info, warn, error")
	flags.String(flagLogFormat, "text", "log format: text or json")
	flags.String(flagHistory, "memory", "history backend: none, memory, sqlite:<path>, postgres:<dsn>, redis:<addr>, mongo:<uri>")
	flags.Int(flagMaxTransitions, 0, "maximum steps executed by one run (0 = engine default, -1 = unlimited)")
	flags.Int(flagMaxParallelism, 0, "maximum concurrent children of a parallel step (0 = unlimited)")
	flags.Duration(flagStepTimeout, 0, "timeout for each step evaluation (0 = none)")
	flags.Bool(flagStrict, false, "reject workflows with dangling step references before running")
	_ = v.BindPFlags(flags)

	v.SetEnvPrefix("STEPGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root.AddCommand(newRunCmd(v), newValidateCmd(v))
	return root
}

// loadConfig reads the optional config file and returns the merged
// configuration. Flags take precedence over the environment, which takes
// precedence over the file.
func loadConfig(v *viper.Viper) (cliConfig, error) {
	if path := v.GetString(flagConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cliConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := cliConfig{
		LogLevel:       v.GetString(flagLogLevel),
		LogFormat:      v.GetString(flagLogFormat),
		History:        v.GetString(flagHistory),
		MaxTransitions: v.GetInt(flagMaxTransitions),
		MaxParallelism: v.GetInt(flagMaxParallelism),
		StepTimeout:    v.GetDuration(flagStepTimeout),
		Strict:         v.GetBool(flagStrict),
	}
	if cfg.MaxTransitions < -1 {
		return cliConfig{}, fmt.Errorf("--%s must be -1 or greater", flagMaxTransitions)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return cliConfig{}, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}
	return cfg, nil
}

func engineOptions(cfg cliConfig, logger *slog.Logger) []stepgraph.Option {
	opts := []stepgraph.Option{
		stepgraph.WithLogger(logger),
		stepgraph.WithObserver(stepgraph.NewLoggingObserver(logger)),
		stepgraph.WithMaxTransitions(cfg.MaxTransitions),
		stepgraph.WithMaxParallelism(cfg.MaxParallelism),
		stepgraph.WithStepTimeout(cfg.StepTimeout),
	}
	if cfg.Strict {
		opts = append(opts, stepgraph.WithStrictValidation())
	}
	return opts
}
