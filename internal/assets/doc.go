// Package assets holds the ordered image and audio essence records a package
// is built from and computes their content digests.
//
// Records arrive from the transcoding stage with their technical attributes
// already parsed; this package treats those attributes as pass-through data
// for the composition playlist. The registry owns copy order (images first,
// then audio, each in input order) and the one-time digest pass over the
// copied files.
package assets
