// Command vulfram runs scenarios against the engine core and inspects its
// protocol and journals.
package main

import (
	"fmt"
	"os"

	"github.com/vulfram/vulfram-core/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
