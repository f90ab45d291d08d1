// where2work lays out a company roster as bubble charts and maintains a
// shortlist built by clicking bubbles.
package main

import (
	"os"

	"github.com/hupe1980/where2work/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
