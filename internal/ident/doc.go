// Package ident allocates the identifiers a package build needs.
//
// Identifiers come from an injectable Source so production builds use random
// version 4 UUIDs while tests and reproducible builds can supply a fixed
// sequence or a seed. Allocate is called exactly once per build and returns
// every identifier the generators reference; nothing else mints IDs.
package ident
