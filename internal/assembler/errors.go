package assembler

import (
	"fmt"
)

// BuildError reports a failed build. Err carries one of the faults sentinels,
// so errors.Is works through it.
type BuildError struct {
	Phase Phase
	// Dir is the partial package directory left on disk, if any.
	Dir string
	Err error
}

func (e *BuildError) Error() string {
	if e.Dir != "" {
		return fmt.Sprintf("build failed during %s (partial package left at %s): %v", e.Phase, e.Dir, e.Err)
	}
	return fmt.Sprintf("build failed during %s: %v", e.Phase, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }
