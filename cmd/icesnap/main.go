// Command icesnap drives the snapshot producer's Cobra CLI.
package main

import (
	"fmt"
	"os"

	"github.com/TFMV/icesnap/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
