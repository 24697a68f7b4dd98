package assembler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"imfpack/internal/assets"
	"imfpack/internal/config"
	"imfpack/internal/digest"
	"imfpack/internal/faults"
	"imfpack/internal/ident"
	"imfpack/internal/imf"
	"imfpack/internal/logging"
	"imfpack/internal/textutil"
)

// Request describes one package to build.
type Request struct {
	Destination       string
	Name              string
	ContentKind       string
	Creator           string
	Issuer            string
	ContentOriginator string
	// EditRate is the composition rate used when no image asset declares one.
	EditRate assets.Rational
	// IssueDate defaults to the assembler clock.
	IssueDate time.Time
	// Assets is only read. The build works on a copy; Result.Assets carries
	// the identifiers and digests it assigned.
	Assets *assets.Registry
}

// Outcome is what a Recorder learns about a finished build.
type Outcome struct {
	State        State
	Phase        Phase
	Dir          string
	Composition  string
	Files        int
	ErrorKind    string
	ErrorMessage string
	FinishedAt   time.Time
}

// Recorder keeps build history. Recording failures never fail a build.
type Recorder interface {
	Start(ctx context.Context, name, dir string, startedAt time.Time) (int64, error)
	Finish(ctx context.Context, id int64, outcome Outcome) error
}

// Options configures an Assembler. Zero values select random identifiers,
// the wall clock, no locking, GOMAXPROCS digest workers, and no cleanup.
type Options struct {
	Logger           *slog.Logger
	IDs              ident.Source
	Clock            func() time.Time
	LockDir          string
	DigestWorkers    int
	CleanupOnFailure bool
	Recorder         Recorder
}

// OptionsFromConfig maps the [package] and [paths] settings onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		LockDir:          cfg.LockDir(),
		DigestWorkers:    cfg.Package.DigestWorkers,
		CleanupOnFailure: cfg.Package.CleanupOnFailure,
	}
}

// RequestFromConfig fills the package-wide fields of a request from cfg.
func RequestFromConfig(cfg *config.Config, name string, reg *assets.Registry) (Request, error) {
	rate, err := cfg.EditRate()
	if err != nil {
		return Request{}, faults.Wrap(faults.ErrConfiguration, "config", "edit_rate", "", err)
	}
	return Request{
		Destination:       cfg.Paths.OutputDir,
		Name:              name,
		ContentKind:       cfg.Package.ContentKind,
		Creator:           cfg.Package.Creator,
		Issuer:            cfg.Package.Issuer,
		ContentOriginator: cfg.Package.ContentOriginator,
		EditRate:          rate,
		Assets:            reg,
	}, nil
}

// Result describes a build, successful or not.
type Result struct {
	Name    string
	Dir     string
	State   State
	Phase   Phase
	BuildID int64

	IDs                 ident.Allocation
	Assets              *assets.Registry
	CompositionFile     string
	OutputProfileFile   string
	PackingListFile     string
	Entries             []imf.Entry
	Bindings            []imf.Binding
	Files               []string
	CompositionDuration int64
	EditRate            assets.Rational
	IssueDate           time.Time
	Elapsed             time.Duration
}

// Assembler runs package builds.
type Assembler struct {
	opts   Options
	logger *slog.Logger
}

// New returns an Assembler.
func New(opts Options) *Assembler {
	if opts.IDs == nil {
		opts.IDs = ident.RandomSource{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Assembler{opts: opts, logger: logging.NewComponentLogger(opts.Logger, "assembler")}
}

// Build assembles req into <Destination>/<Name>. On failure the returned
// error is a *BuildError and the Result reports the state reached.
func (a *Assembler) Build(ctx context.Context, req Request) (*Result, error) {
	started := a.opts.Clock()
	res := &Result{Name: req.Name, State: StateInitialized, IssueDate: req.IssueDate}
	if res.IssueDate.IsZero() {
		res.IssueDate = started
	}

	pkg, err := a.prepare(req, res)
	if err != nil {
		res.State, res.Phase = StateFailed, PhaseValidate
		return res, &BuildError{Phase: PhaseValidate, Err: err}
	}
	res.Name, res.Dir = pkg.Name, pkg.Dir()
	ctx = logging.WithPackage(ctx, pkg.Name)

	if a.opts.Recorder != nil {
		id, rerr := a.opts.Recorder.Start(ctx, pkg.Name, res.Dir, started)
		if rerr != nil {
			logging.WarnWithContext(a.logger, "build history unavailable", "ledger_start_failed",
				logging.Error(rerr),
				logging.String(logging.FieldImpact, "this build will not appear in history"))
		} else {
			res.BuildID = id
			ctx = logging.WithBuildID(ctx, id)
		}
	}

	b := &build{
		assembler: a,
		pkg:       pkg,
		res:       res,
		started:   started,
		logger:    logging.WithContext(ctx, a.logger),
	}
	err = b.run(ctx)
	res.Elapsed = a.opts.Clock().Sub(started)
	a.record(ctx, res, err)
	return res, err
}

func (a *Assembler) prepare(req Request, res *Result) (*imf.Package, error) {
	name, err := textutil.ValidatePackageName(req.Name)
	if err != nil {
		return nil, faults.Wrap(faults.ErrValidation, "validate", "name", "", err)
	}
	if strings.TrimSpace(req.Destination) == "" {
		return nil, faults.Wrap(faults.ErrValidation, "validate", "destination", "destination directory is required", nil)
	}
	kind := strings.ToLower(strings.TrimSpace(req.ContentKind))
	if kind == "" {
		kind = config.ContentKinds[0]
	}
	if !slices.Contains(config.ContentKinds, kind) {
		return nil, faults.Wrap(faults.ErrValidation, "validate", "content kind",
			fmt.Sprintf("unsupported content kind %q", req.ContentKind), nil)
	}
	if err := req.Assets.Validate(); err != nil {
		return nil, err
	}
	if _, err := digest.New(); err != nil {
		return nil, err
	}
	reg := req.Assets.Clone()
	for _, asset := range reg.All() {
		if imf.IsReservedName(asset.Name) {
			return nil, faults.Wrap(faults.ErrValidation, "validate", asset.Name,
				"target name collides with a generated document", nil)
		}
	}
	rate := imf.CompositionEditRate(reg, req.EditRate)
	if !rate.Valid() {
		return nil, faults.Wrap(faults.ErrValidation, "validate", "edit rate",
			"no image asset declares an edit rate and no default is set", nil)
	}
	res.EditRate = rate
	res.Assets = reg

	return &imf.Package{
		Destination:       req.Destination,
		Name:              name,
		ContentKind:       kind,
		IssueDate:         res.IssueDate,
		Creator:           req.Creator,
		Issuer:            req.Issuer,
		ContentOriginator: req.ContentOriginator,
		EditRate:          rate,
		Assets:            reg,
	}, nil
}

func (a *Assembler) record(ctx context.Context, res *Result, err error) {
	if a.opts.Recorder == nil || res.BuildID == 0 {
		return
	}
	outcome := Outcome{
		State:      res.State,
		Phase:      res.Phase,
		Dir:        res.Dir,
		Files:      len(res.Files),
		FinishedAt: a.opts.Clock(),
	}
	if res.CompositionFile != "" {
		outcome.Composition = ident.URN(res.IDs.CPL)
	}
	if err != nil {
		outcome.ErrorKind = faults.Kind(err)
		outcome.ErrorMessage = err.Error()
	}
	if rerr := a.opts.Recorder.Finish(context.WithoutCancel(ctx), res.BuildID, outcome); rerr != nil {
		a.logger.Warn("record build outcome failed", logging.Error(rerr), logging.Int64(logging.FieldBuildID, res.BuildID))
	}
}

// LockPath is the lock file guarding builds of the package directory dir.
func LockPath(lockDir, dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return filepath.Join(lockDir, textutil.SanitizeToken(dir)+".lock")
}

// lock serializes builds of the same package directory across processes.
func (a *Assembler) lock(dir string) (*flock.Flock, error) {
	if a.opts.LockDir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(a.opts.LockDir, 0o755); err != nil {
		return nil, faults.Wrap(faults.ErrIOFailure, "lock", a.opts.LockDir, "create lock directory", err)
	}
	path := LockPath(a.opts.LockDir, dir)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, faults.Wrap(faults.ErrIOFailure, "lock", path, "acquire", err)
	}
	if !ok {
		return nil, faults.Wrap(faults.ErrDirectoryConflict, "lock", dir, "another build of this package is running", nil)
	}
	return fl, nil
}

func unlock(fl *flock.Flock, logger *slog.Logger) {
	if fl == nil {
		return
	}
	if err := fl.Unlock(); err != nil && !errors.Is(err, os.ErrClosed) {
		logger.Warn("release build lock failed", logging.Error(err), logging.String("lock", fl.Path()))
	}
}
