package main

import (
	"os"

	"github.com/blackroad/websocket-manager/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
