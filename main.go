package main

import (
	"os"

	"github.com/llehouerou/lastcord/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
