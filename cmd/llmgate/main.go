// Command llmgate is the command-line side of llmgate: an interactive
// multi-provider chat, model comparisons, a capability matrix, model
// discovery and gateway usage reports.
package main

import (
	"os"

	"github.com/spetersoncode/llmgate/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
