package assembler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"imfpack/internal/digest"
	"imfpack/internal/faults"
	"imfpack/internal/fileutil"
	"imfpack/internal/ident"
	"imfpack/internal/imf"
	"imfpack/internal/logging"
	"imfpack/internal/xmldoc"
)

// build carries one run of the state machine.
type build struct {
	assembler *Assembler
	pkg       *imf.Package
	res       *Result
	logger    *slog.Logger

	created bool
	started time.Time
	copies  map[string]digest.Result
}

func (b *build) run(ctx context.Context) error {
	fl, err := b.assembler.lock(b.res.Dir)
	if err != nil {
		return b.fail(PhaseLock, err)
	}
	defer unlock(fl, b.logger)

	steps := []struct {
		phase Phase
		next  State
		fn    func(context.Context) error
	}{
		{PhaseDirectory, StateDirectoryCreated, b.createDirectory},
		{PhaseCopy, StateAssetsCopied, b.copyAssets},
		{PhaseAllocate, StateIdentifiersAllocated, b.allocate},
		{PhaseGenerate, StateDocumentsGenerated, b.generate},
		{PhaseVerify, StateComplete, b.verify},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return b.fail(step.phase, err)
		}
		if err := step.fn(ctx); err != nil {
			var pe *phaseError
			if errors.As(err, &pe) {
				return b.fail(pe.phase, pe.err)
			}
			return b.fail(step.phase, err)
		}
		b.res.State = step.next
		b.logger.Debug("build state advanced",
			logging.String(logging.FieldPhase, string(step.phase)),
			logging.String("state", step.next.String()))
	}

	b.logger.Info("package assembled",
		logging.String("dir", b.res.Dir),
		logging.Int("files", len(b.res.Files)),
		logging.Any("cpl_id", b.res.IDs.CPL),
		logging.Any("edit_rate", b.res.EditRate),
		logging.Int64("duration_edit_units", b.res.CompositionDuration),
		logging.Duration("elapsed", b.assembler.opts.Clock().Sub(b.started)),
	)
	return nil
}

// phaseError lets a step attribute a failure to a finer phase than its own.
type phaseError struct {
	phase Phase
	err   error
}

func (e *phaseError) Error() string { return e.err.Error() }

func (b *build) fail(phase Phase, err error) error {
	b.res.State = StateFailed
	b.res.Phase = phase
	berr := &BuildError{Phase: phase, Err: err}

	if b.created {
		if b.assembler.opts.CleanupOnFailure {
			if rmErr := os.RemoveAll(b.res.Dir); rmErr != nil {
				logging.WarnWithContext(b.logger, "remove partial package failed", "cleanup_failed",
					logging.String("dir", b.res.Dir),
					logging.Error(rmErr),
					logging.String(logging.FieldImpact, "partial package left on disk"),
					logging.String(logging.FieldErrorHint, "remove the directory before retrying"))
				berr.Dir = b.res.Dir
			} else {
				b.logger.Info("removed partial package", logging.String("dir", b.res.Dir))
			}
		} else {
			berr.Dir = b.res.Dir
		}
	}

	logging.ErrorWithContext(b.logger, "package build failed", "build_failed",
		logging.String(logging.FieldPhase, string(phase)),
		logging.String("error_kind", faults.Kind(err)),
		logging.Bool("partial_kept", berr.Dir != ""),
		logging.Error(err))
	return berr
}

func (b *build) createDirectory(context.Context) error {
	if err := os.MkdirAll(b.pkg.Destination, 0o755); err != nil {
		return faults.Wrap(faults.ErrDirectoryConflict, "directory", b.pkg.Destination, "create destination", err)
	}
	if err := os.Mkdir(b.res.Dir, 0o755); err != nil {
		msg := "create package directory"
		if errors.Is(err, fs.ErrExist) {
			msg = "package directory already exists"
		}
		return faults.Wrap(faults.ErrDirectoryConflict, "directory", b.res.Dir, msg, err)
	}
	b.created = true
	return nil
}

func (b *build) copyAssets(ctx context.Context) error {
	all := b.pkg.Assets.All()
	b.copies = make(map[string]digest.Result, len(all))
	for _, a := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := fileutil.CopyFile(a.Source, filepath.Join(b.res.Dir, a.Name))
		if err != nil {
			return faults.Wrap(faults.ErrCopyFailure, "copy", a.Name, a.Source, err)
		}
		b.copies[a.Name] = res
		b.logger.Debug("asset copied",
			logging.String("asset", a.Name),
			logging.String("kind", string(a.Kind)),
			logging.Int64("bytes", res.Size))
	}
	return nil
}

func (b *build) allocate(context.Context) error {
	alloc, err := ident.Allocate(b.assembler.opts.IDs, b.pkg.Assets.Len())
	if err != nil {
		return faults.Wrap(faults.ErrValidation, "allocate", "identifiers", "", err)
	}
	if err := b.pkg.Assets.AssignIDs(alloc.Assets); err != nil {
		return faults.Wrap(faults.ErrValidation, "allocate", "assets", "", err)
	}
	b.res.IDs = alloc
	return nil
}

func (b *build) generate(ctx context.Context) error {
	if err := b.pkg.Assets.Digest(ctx, b.res.Dir, b.assembler.opts.DigestWorkers); err != nil {
		return &phaseError{phase: PhaseDigest, err: err}
	}
	for _, a := range b.pkg.Assets.All() {
		if written, ok := b.copies[a.Name]; ok && written != (digest.Result{Digest: a.Digest, Size: a.Size}) {
			return &phaseError{phase: PhaseDigest, err: faults.Wrap(faults.ErrCopyFailure, "digest", a.Name, "copied file changed after it was written", nil)}
		}
	}

	alloc := b.res.IDs
	dir := b.res.Dir

	b.res.CompositionFile = imf.CompositionFile(alloc.CPL)
	cpl, err := b.write(b.res.CompositionFile, alloc.CPL, imf.Composition(b.pkg, alloc))
	if err != nil {
		return err
	}
	b.res.OutputProfileFile = imf.OutputProfileFile(alloc.OPL)
	opl, err := b.write(b.res.OutputProfileFile, alloc.OPL, imf.OutputProfile(b.pkg, alloc))
	if err != nil {
		return err
	}

	entries := []imf.Entry{cpl, opl}
	for _, a := range b.pkg.Assets.All() {
		entries = append(entries, imf.DescribeAsset(a))
	}
	b.res.PackingListFile = imf.PackingListFile(alloc.PKL)
	pkl, err := b.write(b.res.PackingListFile, alloc.PKL, imf.PackingList(b.pkg, alloc, entries))
	if err != nil {
		return err
	}

	if err := xmldoc.WriteFile(filepath.Join(dir, imf.VolumeIndexFile), imf.VolumeIndex()); err != nil {
		return err
	}

	bindings := imf.Bindings(pkl, entries)
	if err := xmldoc.WriteFile(filepath.Join(dir, imf.AssetMapFile), imf.AssetMap(b.pkg, alloc, bindings)); err != nil {
		return err
	}

	b.res.Entries = entries
	b.res.Bindings = bindings
	b.res.CompositionDuration = imf.CompositionDuration(b.pkg)
	return nil
}

// write serializes doc into the package and describes the written bytes.
func (b *build) write(name string, id uuid.UUID, doc *xmldoc.Document) (imf.Entry, error) {
	if err := xmldoc.WriteFile(filepath.Join(b.res.Dir, name), doc); err != nil {
		return imf.Entry{}, err
	}
	entry, err := imf.DescribeFile(b.res.Dir, name, id)
	if err != nil {
		return imf.Entry{}, err
	}
	b.logger.Debug("document written", logging.String("file", name), logging.Int64("bytes", entry.Size))
	return entry, nil
}

// verify checks the directory holds exactly the bound files plus the two
// volume documents.
func (b *build) verify(context.Context) error {
	entries, err := os.ReadDir(b.res.Dir)
	if err != nil {
		return faults.Wrap(faults.ErrIOFailure, "verify", b.res.Dir, "list package", err)
	}
	expected := map[string]bool{imf.AssetMapFile: false, imf.VolumeIndexFile: false}
	for _, bind := range b.res.Bindings {
		if _, dup := expected[bind.Path]; dup {
			return faults.Wrap(faults.ErrValidation, "verify", bind.Path, "bound more than once", nil)
		}
		expected[bind.Path] = false
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if _, ok := expected[name]; !ok {
			return faults.Wrap(faults.ErrValidation, "verify", name, "file not bound by the asset map", nil)
		}
		if !e.Type().IsRegular() {
			return faults.Wrap(faults.ErrValidation, "verify", name, "not a regular file", nil)
		}
		expected[name] = true
		files = append(files, name)
	}
	for name, seen := range expected {
		if !seen {
			return faults.Wrap(faults.ErrValidation, "verify", name, "bound file missing from package", nil)
		}
	}
	if want := len(b.res.Bindings) + 2; len(files) != want {
		return faults.Wrap(faults.ErrValidation, "verify", b.res.Dir, fmt.Sprintf("expected %d files, found %d", want, len(files)), nil)
	}
	sort.Strings(files)
	b.res.Files = files
	return nil
}
