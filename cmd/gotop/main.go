// Command gotop validates, inspects, converts and plots force fields.
package main

import (
	"os"

	"github.com/rmera/gotop/internal/cli"
)

var version = "dev"

func main() {
	cli.Version = version
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
