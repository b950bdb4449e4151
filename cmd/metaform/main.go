// metaform is the command-line companion to the console: it serves the
// local stub API and inspects the metadata-driven schemas, columns, and
// data the console renders.
package main

import (
	"fmt"
	"os"

	"github.com/matthewbaird/metaform/cmd/metaform/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
