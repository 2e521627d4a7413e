// Command biai is the entry point for the BI-AI database assistant.
// It builds a knowledge base from a schema dump and business-query records,
// and answers natural language questions about them via a CLI chat interface.
package main

import (
	"fmt"
	"os"

	"github.com/singa-bi/biai-go/cmd/biai/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
