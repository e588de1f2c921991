// Command fairdiet scales national food supply under diet-shift scenarios and
// reports the emissions and climate response.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fairdiet/fairdiet/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev" //nolint:gochecknoglobals // Set by the linker.

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func run() error {
	root := cli.NewRootCmd(version)
	root.SilenceErrors = true
	return root.ExecuteContext(context.Background())
}
