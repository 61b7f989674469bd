// Package main is the entry point for the asyncq CLI binary.
package main

import (
	"os"

	cli "asyncq/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
