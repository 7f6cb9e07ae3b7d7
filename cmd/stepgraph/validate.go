package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petrijr/stepgraph"
)

func newValidateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <workflow.yaml>...",
		Short: "Check workflow definitions without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(v); err != nil {
				return err
			}
			eng := stepgraph.NewEngine()
			catalog := builtinHandlers(time.Now)

			var failed int
			for _, path := range args {
				if err := validateFile(eng, catalog, path); err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok   %s\n", path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d definitions are invalid", failed, len(args))
			}
			return nil
		},
	}
}

func validateFile(eng stepgraph.Engine, catalog stepgraph.HandlerCatalog, path string) error {
	def, err := stepgraph.LoadDefinitionFile(path)
	if err != nil {
		return err
	}
	wf, err := stepgraph.Import(eng, def, catalog)
	if err != nil {
		return err
	}
	defer eng.Destroy(wf.ID)
	return eng.Validate(wf.ID)
}
