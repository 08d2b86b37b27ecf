package main

import (
	"os"

	"radius-sync/runner"
)

// Provisions the active services of PROVISION_CUSTOMER_ID.
func main() {
	os.Exit(runner.Main("provision-customer", runner.Provision(runner.SingleCustomer)))
}
