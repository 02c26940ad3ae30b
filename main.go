// chesscalc - performance ratings for populations of chess players
// from imported PGN results
package main

import (
	"os"

	"github.com/RogerMarsh/chesscalc/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
