package main

import (
	"os"

	"github.com/lanternsearch/lantern/cmd/lantern/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
