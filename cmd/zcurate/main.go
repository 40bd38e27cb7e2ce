// Command zcurate curates spectroscopic redshift catalogs.
package main

import (
	"os"

	"github.com/kilupskalvis/zcurate/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
