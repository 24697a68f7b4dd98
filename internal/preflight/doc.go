// Package preflight provides readiness checks run before a package build.
//
// `imfpack build` calls RunAll and refuses to start when a check fails, so a
// build does not die halfway through copying because the destination is
// read-only or full. Individual checks are also used by `imfpack config show`
// to display path health.
package preflight
