// Package main is the entry point for the docrunner server.
//
// The main package stays minimal: it parses the command line, loads the
// configuration, builds a logger and hands over to internal/server. All
// actual logic lives in the internal packages.
//
// COMMANDS:
//
//	docrunner serve  --config docrunner.yml   serve the book
//	docrunner init   --config docrunner.yml   write a default configuration
//	docrunner rescan --config docrunner.yml   annotate every page once and report
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
