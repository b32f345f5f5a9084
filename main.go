package main

import (
	"os"

	"github.com/mcpjungle/toolbridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
