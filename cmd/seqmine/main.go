// Command seqmine mines an integer-sequence catalog for closed forms.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/seqmine/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "seqmine: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
