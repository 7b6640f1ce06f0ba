package main

import (
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/fleetlink-io/fleetlink/cmd/fleet-console/app"
)

func main() {
	if err := app.NewConsoleCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
