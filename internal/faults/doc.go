// Package faults defines the error taxonomy shared by every stage of a
// package build.
//
// Stage code wraps low-level errors with one of the exported sentinels via
// Wrap so callers can classify failures with errors.Is while the message
// still names the phase and operation that failed. Kind maps an error back to
// a short classification string for the build ledger and CLI output.
package faults
