package main

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petrijr/stepgraph"
)

// runOutput is what `stepgraph run` prints.
type runOutput struct {
	Run     *stepgraph.RunResult        `json:"run"`
	History []stepgraph.ExecutionRecord `json:"history"`
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	var inputs []string

	cmd := &cobra.Command{
		Use:   "run <workflow.yaml>",
		Short: "Run a workflow definition and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			input, err := parseInputs(inputs)
			if err != nil {
				return err
			}

			logger := newLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			def, err := stepgraph.LoadDefinitionFile(args[0])
			if err != nil {
				return err
			}

			eng, cleanup, err := openEngine(cmd.Context(), cfg.History, engineOptions(cfg, logger)...)
			if err != nil {
				return err
			}
			defer cleanup()

			wf, err := stepgraph.Import(eng, def, builtinHandlers(time.Now))
			if err != nil {
				return err
			}
			res, err := eng.Run(cmd.Context(), wf.ID, input)
			if err != nil {
				return err
			}
			history, err := eng.GetHistory(wf.ID)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(runOutput{Run: res, History: history}); err != nil {
				return err
			}
			if res.Status == stepgraph.StatusFailed {
				return fmt.Errorf("run %s failed: %s", res.RunID, res.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&inputs, "input", "i", nil, "run input as key=value; values are parsed as JSON when possible (repeatable)")
	return cmd
}

// parseInputs turns key=value pairs into the run input. A value that is
// valid JSON is decoded (numbers, booleans, lists, objects); anything else
// is kept as a string. "@path" reads a JSON object from a file and merges
// it into the input.
func parseInputs(pairs []string) (map[string]any, error) {
	input := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		if path, ok := strings.CutPrefix(pair, "@"); ok {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read input file: %w", err)
			}
			var obj map[string]any
			if err := json.Unmarshal(data, &obj); err != nil {
				return nil, fmt.Errorf("input file %s: %w", path, err)
			}
			maps.Copy(input, obj)
			continue
		}

		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid input %q: want key=value", pair)
		}
		var val any
		if err := json.Unmarshal([]byte(raw), &val); err != nil {
			val = raw
		}
		input[key] = val
	}
	return input, nil
}
