package main

import (
	"os"

	"mit.edu/dsg/physopt/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
