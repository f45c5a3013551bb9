package main

import (
	"fmt"
	"os"

	"github.com/peienli0114/multi-route-portfolio-template/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "folio: %v\n", err)
		os.Exit(1)
	}
}
