package main

import (
	"fmt"
	"os"

	"github.com/K11E3R/moroccan-education-API/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
