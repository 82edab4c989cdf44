// Command gatewayd runs the MCP tool-dispatch gateway.
package main

import (
	"fmt"
	"os"

	"github.com/cubeforge/gateway/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
