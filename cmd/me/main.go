// Command me runs scenarios against the kernel and inspects persisted
// sessions, operator profiles, local identities and remote daemons.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/thisme/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
