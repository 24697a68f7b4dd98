// Package xmldoc is the small element-tree builder every package document is
// assembled with, plus the one serializer that writes them.
//
// All documents share the same output discipline: an explicit
// `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` prologue,
// two-space indentation, and a trailing newline. Files are written through a
// temporary sibling and renamed into place.
package xmldoc
