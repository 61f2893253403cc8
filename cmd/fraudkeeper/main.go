package main

import (
	"os"

	"github.com/solatis/fraudkeeper/cmd/fraudkeeper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
