package main

import (
	"os"

	"radius-sync/runner"
)

func main() {
	os.Exit(runner.Main("migrate-schema", runner.MigrateSchema))
}
