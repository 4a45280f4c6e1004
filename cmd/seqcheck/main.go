// Command seqcheck replays event traces and verifies them against expected
// sequences.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/seqcheck/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
