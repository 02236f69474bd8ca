package main

import (
	"fmt"
	"os"

	"money/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	if err := newRootCmd(os.Stdout, os.Stdin).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
