package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"imfpack/internal/config"
	"imfpack/internal/faults"
	"imfpack/internal/verify"
)

func newVerifyCommand(_ *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "verify <package-dir>",
		Short:       "Check a package's asset map, packing list and digests",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve package directory: %w", err)
			}
			report, err := verify.Package(cmd.Context(), dir)
			if err != nil {
				return err
			}
			if report.Problems == nil {
				report.Problems = []verify.Problem{}
			}

			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printVerifyReport(cmd, report)
			}
			if !report.OK() {
				return faults.Wrap(faults.ErrValidation, "verify", dir,
					fmt.Sprintf("%d problem(s) found", len(report.Problems)), nil)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the report as JSON")
	return cmd
}

func printVerifyReport(cmd *cobra.Command, report *verify.Report) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	fmt.Fprintln(out, renderStatusLine("Package", statusInfo, report.Dir, colorize))
	fmt.Fprintln(out, renderStatusLine("Packing list", statusInfo, report.PackingList, colorize))
	for _, c := range report.Compositions {
		fmt.Fprintln(out, renderStatusLine("Composition", statusInfo, c, colorize))
	}
	for _, o := range report.OutputProfile {
		fmt.Fprintln(out, renderStatusLine("Output profile", statusInfo, o, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Files checked", statusInfo,
		fmt.Sprintf("%d (%s bytes)", report.FilesChecked, formatBytes(report.BytesChecked)), colorize))

	if report.OK() {
		fmt.Fprintln(out, renderStatusLine("Result", statusOK, "package is consistent", colorize))
		return
	}
	fmt.Fprintln(out, renderStatusLine("Result", statusError,
		fmt.Sprintf("%d problem(s)", len(report.Problems)), colorize))
	rows := make([][]string, 0, len(report.Problems))
	for _, p := range report.Problems {
		rows = append(rows, []string{p.File, p.Message})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable([]column{{header: "File"}, {header: "Problem", maxWidth: 60}}, rows))
}
