// Package main is the entry point for the membersync CLI.
//
// main() stays minimal on purpose: all wiring lives in internal/cli,
// where each command assembles exactly the dependency graph it needs.
package main

import "github.com/sakif/membersync/internal/cli"

func main() {
	cli.Execute()
}
