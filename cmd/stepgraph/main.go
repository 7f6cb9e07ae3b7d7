// Command stepgraph runs and validates workflow definitions written in YAML.
//
//	stepgraph run flow.yaml --input name=ada --history sqlite:runs.db
//	stepgraph validate flow.yaml
//
// Every flag can also be set through a STEPGRAPH_ environment variable
// (STEPGRAPH_HISTORY, STEPGRAPH_LOG_LEVEL, ...) or a config file passed with
// --config.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Error already printed by cobra
		os.Exit(1)
	}
}
