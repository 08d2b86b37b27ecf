package main

import (
	"os"

	"radius-sync/runner"
)

// Provisions every active service; creates the test user when there are none.
func main() {
	os.Exit(runner.Main("provision-all", runner.Provision(runner.AllActive)))
}
