// Package main hosts the imfpack CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration (and an optional .env file),
// builds packages from manifests or source globs, verifies finished packages,
// and lists the build history kept in the SQLite ledger. Output is a rounded
// table or status lines on a terminal and indented JSON with --json.
//
// Package assembly itself lives in internal/assembler; commands here only
// translate flags into requests and render results.
package main
