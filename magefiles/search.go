//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Search builds the CLI and runs a free-text search, e.g.
// mage search "graph neural networks venue:ICLR".
func Search(query string) error {
	mg.Deps(Build)
	return sh.RunV(binPath, "search", query)
}

// Serve builds the CLI and starts the HTTP API on the configured address.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "serve")
}
