package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"imfpack/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent package builds",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				return err
			}
			defer store.Close()

			builds, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				if builds == nil {
					builds = []*ledger.Build{}
				}
				return writeJSON(cmd, builds)
			}

			out := cmd.OutOrStdout()
			if len(builds) == 0 {
				fmt.Fprintln(out, "No builds recorded")
				return nil
			}
			rows := make([][]string, 0, len(builds))
			for _, b := range builds {
				rows = append(rows, []string{
					strconv.FormatInt(b.ID, 10),
					b.PackageName,
					b.State,
					b.FailedPhase,
					strconv.Itoa(b.FileCount),
					b.StartedAt.Local().Format("2006-01-02 15:04:05"),
					formatDuration(b.Duration()),
					b.ErrorKind,
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				{header: "ID", numeric: true},
				{header: "Package", maxWidth: 32},
				{header: "State"},
				{header: "Phase"},
				{header: "Files", numeric: true},
				{header: "Started"},
				{header: "Took", numeric: true},
				{header: "Error"},
			}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of builds to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit builds as JSON")
	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded build",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid build id %q", args[0])
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				return err
			}
			defer store.Close()

			b, err := store.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if b == nil {
				return fmt.Errorf("build %d not found", id)
			}
			if jsonOutput {
				return writeJSON(cmd, b)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderStatusLine("Build", statusInfo, "#"+strconv.FormatInt(b.ID, 10), colorize))
			fmt.Fprintln(out, renderStatusLine("Package", statusInfo, b.PackageName, colorize))
			fmt.Fprintln(out, renderStatusLine("Directory", statusInfo, b.PackageDir, colorize))
			fmt.Fprintln(out, renderStatusLine("State", stateKind(b.State), b.State, colorize))
			if b.FailedPhase != "" {
				fmt.Fprintln(out, renderStatusLine("Failed phase", statusError, b.FailedPhase, colorize))
			}
			if b.CompositionID != "" {
				fmt.Fprintln(out, renderStatusLine("Composition", statusInfo, b.CompositionID, colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Files", statusInfo, strconv.Itoa(b.FileCount), colorize))
			fmt.Fprintln(out, renderStatusLine("Started", statusInfo, b.StartedAt.Local().Format(time.RFC3339), colorize))
			fmt.Fprintln(out, renderStatusLine("Took", statusInfo, formatDuration(b.Duration()), colorize))
			if b.ErrorMessage != "" {
				fmt.Fprintln(out, renderStatusLine("Error", statusError, b.ErrorMessage, colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the build as JSON")
	return cmd
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
