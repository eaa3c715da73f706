// Package main is the entry point for the reportviewer application
package main

import (
	"github.com/ethpandaops/reportviewer/cmd"
)

func main() {
	cmd.Execute()
}
