package preflight

import (
	"imfpack/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes the checks a build into dest needs. required is the number
// of essence bytes about to be copied; zero skips the free-space check.
func RunAll(cfg *config.Config, dest string, required int64) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDigest(),
		CheckCreatableDirectory("Output directory", dest),
	}
	if cfg.Paths.StateDir != "" {
		results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	}
	if required > 0 {
		results = append(results, CheckFreeSpace("Free space", dest, required))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
