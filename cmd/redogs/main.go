// Command redogs drives the demo store and runs store scenarios.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/redogs/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
