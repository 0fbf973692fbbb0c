package main

import (
	"os"

	"github.com/TFMV/gluesync/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
