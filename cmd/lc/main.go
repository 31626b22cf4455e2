package main

import (
	"os"

	"github.com/abdul-hamid-achik/learn.cheap/internal/lc/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
