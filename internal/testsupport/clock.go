package testsupport

import (
	"time"

	"imfpack/internal/ident"
)

// IssueTime is the fixed issue date used by deterministic builds in tests.
var IssueTime = time.Date(2024, time.March, 1, 12, 30, 0, 0, time.UTC)

// FixedClock returns a clock that always reports IssueTime.
func FixedClock() func() time.Time {
	return func() time.Time { return IssueTime }
}

// Identifiers returns a deterministic identifier source for seed. Two
// builds with the same seed and asset list receive the same identifiers.
func Identifiers(seed string) ident.Source {
	return ident.NewSeeded("imfpack-test/" + seed)
}
