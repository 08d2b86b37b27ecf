package main

import (
	"os"

	"radius-sync/runner"
)

// Provisions active services that have no PPPoE credentials yet.
func main() {
	os.Exit(runner.Main("provision-missing", runner.Provision(runner.MissingCredentials)))
}
