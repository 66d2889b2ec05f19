// Command gitfleet is the consolidated CLI entrypoint, replacing the
// teacher's split cmd/ghclone and cmd/repocloner binaries with one
// binary exposing every provider and operation.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/repofleet/gitfleet/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
