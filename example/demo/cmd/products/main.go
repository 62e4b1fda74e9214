// Command products is a small CLI around ProductService that stores products in the configured database.
//
//	products --config tableservice.yaml init
//	products add --name "Red Shoe" --sku RS-1 --brand 3
//	products list --name shoe --page 1 --per-page 20
//	products slug-in red-shoe
package main

import (
	"os"
)

// Exit codes.
const (
	exitSuccess = 0
	exitFailure = 1
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitFailure)
	}

	os.Exit(exitSuccess)
}
