// Package main provides mcdbctl, the constant-database build and query
// utility.
package main

import (
	"os"

	"github.com/haguenau/mcdb/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Stdin, os.Stdout, os.Stderr, os.Args))
}
