package main

import (
	"os"

	"radius-sync/runner"
)

func main() {
	os.Exit(runner.Main("deprovision-inactive", runner.Deprovision))
}
