package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"imfpack/internal/assembler"
	"imfpack/internal/assets"
	"imfpack/internal/config"
	"imfpack/internal/faults"
	"imfpack/internal/ident"
	"imfpack/internal/ledger"
	"imfpack/internal/logging"
	"imfpack/internal/manifest"
	"imfpack/internal/preflight"
)

type buildOptions struct {
	manifestPath  string
	name          string
	images        []string
	audio         []string
	editRate      string
	duration      int64
	output        string
	seed          string
	keepPartial   bool
	skipPreflight bool
	jsonOutput    bool
}

type buildFileView struct {
	ID     string `json:"id"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Digest string `json:"digest,omitempty"`
	Type   string `json:"type,omitempty"`
}

type buildView struct {
	Name                string          `json:"name"`
	Dir                 string          `json:"dir"`
	State               string          `json:"state"`
	Phase               string          `json:"phase,omitempty"`
	BuildID             int64           `json:"build_id,omitempty"`
	CompositionID       string          `json:"composition_id,omitempty"`
	CompositionFile     string          `json:"composition_file,omitempty"`
	OutputProfileFile   string          `json:"output_profile_file,omitempty"`
	PackingListFile     string          `json:"packing_list_file,omitempty"`
	EditRate            string          `json:"edit_rate,omitempty"`
	CompositionDuration int64           `json:"composition_duration,omitempty"`
	IssueDate           string          `json:"issue_date,omitempty"`
	ElapsedSeconds      float64         `json:"elapsed_seconds"`
	Files               []buildFileView `json:"files,omitempty"`
	ErrorKind           string          `json:"error_kind,omitempty"`
	Error               string          `json:"error,omitempty"`
}

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build [manifest]",
		Short: "Assemble a package from a manifest or source globs",
		Long: `Assemble a package directory containing the essence files, a composition
playlist, an output profile list, a packing list, an asset map and a volume
index.

Assets come from a YAML manifest, from --image/--audio patterns, or both.
Patterns accept doublestar globs such as frames/**/*.j2c.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if opts.manifestPath != "" && opts.manifestPath != args[0] {
					return errors.New("manifest given both as argument and --manifest")
				}
				opts.manifestPath = args[0]
			}
			return runBuild(cmd, ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.manifestPath, "manifest", "m", "", "YAML manifest describing the package")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "Package name (overrides the manifest)")
	cmd.Flags().StringArrayVar(&opts.images, "image", nil, "Image essence file or glob (repeatable)")
	cmd.Flags().StringArrayVar(&opts.audio, "audio", nil, "Audio essence file or glob (repeatable)")
	cmd.Flags().StringVar(&opts.editRate, "edit-rate", "", "Edit rate for --image/--audio assets, e.g. 24000/1001")
	cmd.Flags().Int64Var(&opts.duration, "duration", 0, "Intrinsic duration in edit units for --image/--audio assets")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Destination directory (defaults to paths.output_dir)")
	cmd.Flags().StringVar(&opts.seed, "seed", "", "Derive identifiers from this seed for reproducible builds")
	cmd.Flags().BoolVar(&opts.keepPartial, "keep-partial", false, "Leave a partially assembled package on failure")
	cmd.Flags().BoolVar(&opts.skipPreflight, "skip-preflight", false, "Skip destination and free space checks")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Emit the build result as JSON")
	return cmd
}

func runBuild(cmd *cobra.Command, ctx *commandContext, opts buildOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	m, err := loadBuildManifest(opts)
	if err != nil {
		return err
	}
	reg, err := m.Registry()
	if err != nil {
		return err
	}

	req, err := assembler.RequestFromConfig(cfg, m.Name, reg)
	if err != nil {
		return err
	}
	if err := applyManifest(&req, m); err != nil {
		return err
	}
	if opts.output != "" {
		dest, err := config.ExpandPath(opts.output)
		if err != nil {
			return fmt.Errorf("resolve output directory: %w", err)
		}
		req.Destination = dest
	}

	if !opts.skipPreflight {
		results := preflight.RunAll(cfg, req.Destination, sourceBytes(reg))
		if failed := preflight.Failed(results); len(failed) > 0 {
			details := make([]string, 0, len(failed))
			for _, r := range failed {
				details = append(details, r.Name+": "+r.Detail)
			}
			return faults.Wrap(faults.ErrValidation, "preflight", "", strings.Join(details, "; "), nil)
		}
	}

	asmOpts := assembler.OptionsFromConfig(cfg)
	asmOpts.Logger = logger
	if opts.seed != "" {
		asmOpts.IDs = ident.NewSeeded(opts.seed)
	}
	if opts.keepPartial {
		asmOpts.CleanupOnFailure = false
	}

	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		logging.WarnWithContext(logger, "build history unavailable", "ledger_open_failed",
			logging.Error(err),
			logging.String("path", cfg.LedgerPath()),
			logging.String(logging.FieldImpact, "this build will not appear in history"))
	} else {
		defer store.Close()
		asmOpts.Recorder = store
	}

	res, buildErr := assembler.New(asmOpts).Build(cmd.Context(), req)
	view := newBuildView(res, buildErr)
	if opts.jsonOutput {
		if err := writeJSON(cmd, view); err != nil {
			return err
		}
		return buildErr
	}
	printBuild(cmd, view)
	return buildErr
}

func loadBuildManifest(opts buildOptions) (*manifest.Manifest, error) {
	m := &manifest.Manifest{}
	if opts.manifestPath != "" {
		loaded, err := manifest.Load(opts.manifestPath)
		if err != nil {
			return nil, err
		}
		m = loaded
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		m.BaseDir = wd
	}

	for _, p := range opts.images {
		m.Images = append(m.Images, manifest.Entry{Path: p, EditRate: opts.editRate, IntrinsicDuration: opts.duration})
	}
	for _, p := range opts.audio {
		m.Audio = append(m.Audio, manifest.Entry{Path: p, EditRate: opts.editRate, IntrinsicDuration: opts.duration})
	}
	if name := strings.TrimSpace(opts.name); name != "" {
		m.Name = name
	}
	if m.Name == "" {
		return nil, faults.Wrap(faults.ErrValidation, "validate", "name", "package name is required (--name or manifest name)", nil)
	}
	return m, nil
}

// applyManifest lets package-wide manifest fields override configuration.
func applyManifest(req *assembler.Request, m *manifest.Manifest) error {
	if m.ContentKind != "" {
		req.ContentKind = m.ContentKind
	}
	if m.Creator != "" {
		req.Creator = m.Creator
	}
	if m.Issuer != "" {
		req.Issuer = m.Issuer
	}
	if m.ContentOriginator != "" {
		req.ContentOriginator = m.ContentOriginator
	}
	if m.EditRate != "" {
		rate, err := assets.ParseRational(m.EditRate)
		if err != nil {
			return faults.Wrap(faults.ErrValidation, "manifest", "edit_rate", "", err)
		}
		req.EditRate = rate
	}
	return nil
}

func sourceBytes(reg *assets.Registry) int64 {
	var total int64
	for _, a := range reg.All() {
		if info, err := os.Stat(a.Source); err == nil {
			total += info.Size()
		}
	}
	return total
}

func newBuildView(res *assembler.Result, err error) buildView {
	if res == nil {
		return buildView{State: assembler.StateFailed.String(), ErrorKind: faults.Kind(err), Error: errorText(err)}
	}
	view := buildView{
		Name:                res.Name,
		Dir:                 res.Dir,
		State:               res.State.String(),
		BuildID:             res.BuildID,
		CompositionFile:     res.CompositionFile,
		OutputProfileFile:   res.OutputProfileFile,
		PackingListFile:     res.PackingListFile,
		CompositionDuration: res.CompositionDuration,
		ElapsedSeconds:      res.Elapsed.Seconds(),
	}
	if res.EditRate.Valid() {
		view.EditRate = res.EditRate.String()
	}
	if res.CompositionFile != "" {
		view.CompositionID = ident.URN(res.IDs.CPL)
	}
	if !res.IssueDate.IsZero() && res.State == assembler.StateComplete {
		view.IssueDate = res.IssueDate.UTC().Truncate(time.Second).Format(time.RFC3339)
	}
	if res.State == assembler.StateFailed {
		view.Phase = string(res.Phase)
	}
	for _, b := range res.Bindings {
		fv := buildFileView{ID: ident.URN(b.ID), Path: b.Path, Size: b.Length}
		for _, e := range res.Entries {
			if e.ID == b.ID {
				fv.Digest, fv.Type = e.Digest, e.Type
				break
			}
		}
		view.Files = append(view.Files, fv)
	}
	if err != nil {
		view.ErrorKind = faults.Kind(err)
		view.Error = errorText(err)
	}
	return view
}

func printBuild(cmd *cobra.Command, view buildView) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	fmt.Fprintln(out, renderStatusLine("Package", stateKind(view.State), view.Name, colorize))
	fmt.Fprintln(out, renderStatusLine("State", stateKind(view.State), view.State, colorize))
	if view.Dir != "" {
		fmt.Fprintln(out, renderStatusLine("Directory", statusInfo, view.Dir, colorize))
	}
	if view.Phase != "" {
		fmt.Fprintln(out, renderStatusLine("Failed phase", statusError, view.Phase, colorize))
	}
	if view.BuildID > 0 {
		fmt.Fprintln(out, renderStatusLine("Build", statusInfo, "#"+strconv.FormatInt(view.BuildID, 10), colorize))
	}
	if view.CompositionID != "" {
		fmt.Fprintln(out, renderStatusLine("Composition", statusInfo, view.CompositionID, colorize))
		fmt.Fprintln(out, renderStatusLine("Duration", statusInfo,
			fmt.Sprintf("%d edit units @ %s", view.CompositionDuration, view.EditRate), colorize))
	}
	if len(view.Files) == 0 {
		return
	}

	rows := make([][]string, 0, len(view.Files))
	for _, f := range view.Files {
		rows = append(rows, []string{f.Path, formatBytes(f.Size), shortDigest(f.Digest)})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable([]column{
		{header: "File"},
		{header: "Bytes", numeric: true},
		{header: "SHA-1"},
	}, rows))
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
