// Command goflow is a cobra root command with subcommands for each
// stage of the analysis pipeline: building control-flow graphs,
// scoring complexity, and reconstructing coverage.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
