package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"imfpack/internal/faults"
)

// writeJSON writes v to stdout as one indented document. HTML escaping is
// off so paths containing & or < print as they are on disk.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return faults.Wrap(faults.ErrIOFailure, "output", "json", "", err)
	}
	return nil
}
