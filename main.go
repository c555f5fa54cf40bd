// Biograph - knowledge graph exchange toolkit.
//
// Biograph reads, filters, merges, and writes biolink-flavored knowledge
// graphs across tabular, JSON, RDF, and database serializations.
package main

import (
	"fmt"
	"os"

	"github.com/kgraph-dev/biograph/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
