package main

import (
	"os"

	"github.com/sessh/sessh/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
