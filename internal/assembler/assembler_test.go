package assembler_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imfpack/internal/assembler"
	"imfpack/internal/assets"
	"imfpack/internal/digest"
	"imfpack/internal/faults"
	"imfpack/internal/ident"
	"imfpack/internal/imf"
	"imfpack/internal/testsupport"
	"imfpack/internal/verify"
)

func newRequest(t *testing.T, dest string) assembler.Request {
	t.Helper()
	src := t.TempDir()
	frame := filepath.Join(src, "frame0001.j2c")
	audio := filepath.Join(src, "audio.wav")
	testsupport.WriteFile(t, frame, 1024)
	testsupport.WriteFile(t, audio, 2048)

	reg := assets.NewRegistry(
		[]*assets.Asset{assets.NewImage(frame, assets.Technical{EditRate: assets.Rational{Num: 24, Den: 1}, IntrinsicDuration: 1})},
		[]*assets.Asset{assets.NewAudio(audio, assets.Technical{IntrinsicDuration: 1, SampleRate: assets.Rational{Num: 48000, Den: 1}, Channels: 2})},
	)
	return assembler.Request{
		Destination: dest,
		Name:        "EP01",
		ContentKind: "episode",
		Creator:     "imfpack test",
		Issuer:      "imfpack test",
		EditRate:    assets.Rational{Num: 25, Den: 1},
		Assets:      reg,
	}
}

func newAssembler(t *testing.T, opts assembler.Options) *assembler.Assembler {
	t.Helper()
	if opts.IDs == nil {
		opts.IDs = testsupport.Identifiers(t.Name())
	}
	if opts.Clock == nil {
		opts.Clock = testsupport.FixedClock()
	}
	if opts.LockDir == "" {
		opts.LockDir = filepath.Join(t.TempDir(), "locks")
	}
	return assembler.New(opts)
}

func TestBuildEndToEnd(t *testing.T) {
	dest := t.TempDir()
	req := newRequest(t, dest)
	asm := newAssembler(t, assembler.Options{CleanupOnFailure: true})

	res, err := asm.Build(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, assembler.StateComplete, res.State)

	dir := filepath.Join(dest, "EP01")
	assert.Equal(t, dir, res.Dir)

	files := testsupport.ListDir(t, dir)
	require.Len(t, files, 7)
	assert.Equal(t, res.Files, files)
	assert.Contains(t, files, "frame0001.j2c")
	assert.Contains(t, files, "audio.wav")
	assert.Contains(t, files, imf.AssetMapFile)
	assert.Contains(t, files, imf.VolumeIndexFile)
	for _, prefix := range []string{"CPL_", "PKL_", "OPL_"} {
		matches, err := filepath.Glob(filepath.Join(dir, prefix+"*.xml"))
		require.NoError(t, err)
		assert.Len(t, matches, 1, prefix)
	}

	pkl, err := imf.ReadPackingList(filepath.Join(dir, res.PackingListFile))
	require.NoError(t, err)
	var frameEntry *imf.PackingListAsset
	for i := range pkl.Assets {
		if pkl.Assets[i].OriginalFileName == "frame0001.j2c" {
			frameEntry = &pkl.Assets[i]
		}
	}
	require.NotNil(t, frameEntry)
	assert.Equal(t, int64(1024), frameEntry.Size)
	want, err := digest.File(filepath.Join(dir, "frame0001.j2c"))
	require.NoError(t, err)
	assert.Equal(t, want.Digest, frameEntry.Hash)

	report, err := verify.Package(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, report.OK(), "%v", report.Problems)
	assert.Equal(t, 4, report.FilesChecked)
}

func TestBuildAssetMapCoversEveryFile(t *testing.T) {
	dest := t.TempDir()
	res, err := newAssembler(t, assembler.Options{}).Build(context.Background(), newRequest(t, dest))
	require.NoError(t, err)

	am, err := imf.ReadAssetMap(filepath.Join(res.Dir, imf.AssetMapFile))
	require.NoError(t, err)

	paths := map[string]int{}
	for _, a := range am.Assets {
		require.Len(t, a.Chunks, 1)
		paths[a.Chunks[0].Path]++
	}
	for _, name := range testsupport.ListDir(t, res.Dir) {
		if name == imf.AssetMapFile || name == imf.VolumeIndexFile {
			assert.Zero(t, paths[name], name)
			continue
		}
		assert.Equal(t, 1, paths[name], name)
	}
	assert.Len(t, am.PackingLists(), 1)
}

func TestBuildReferentialClosure(t *testing.T) {
	res, err := newAssembler(t, assembler.Options{}).Build(context.Background(), newRequest(t, t.TempDir()))
	require.NoError(t, err)

	cpl, err := imf.ReadComposition(filepath.Join(res.Dir, res.CompositionFile))
	require.NoError(t, err)
	opl, err := imf.ReadOutputProfile(filepath.Join(res.Dir, res.OutputProfileFile))
	require.NoError(t, err)
	pkl, err := imf.ReadPackingList(filepath.Join(res.Dir, res.PackingListFile))
	require.NoError(t, err)
	am, err := imf.ReadAssetMap(filepath.Join(res.Dir, imf.AssetMapFile))
	require.NoError(t, err)

	assert.Equal(t, cpl.ID, opl.CompositionPlaylistID)

	inPKL := map[string]bool{}
	for _, a := range pkl.Assets {
		inPKL[a.ID] = true
	}
	inAM := map[string]int{}
	for _, a := range am.Assets {
		inAM[a.ID]++
	}
	assert.True(t, inPKL[cpl.ID])
	assert.True(t, inPKL[opl.ID])
	for _, id := range cpl.TrackFileIDs() {
		assert.True(t, inPKL[id], id)
		assert.Equal(t, 1, inAM[id], id)
	}
	assert.Equal(t, 1, inAM[pkl.ID])
	assert.Equal(t, 1, inAM[cpl.ID])
	assert.Equal(t, 1, inAM[opl.ID])
}

func TestBuildIsReproducibleWithSeededIdentifiers(t *testing.T) {
	read := func(dest string) (string, []byte) {
		asm := assembler.New(assembler.Options{IDs: ident.NewSeeded("ep01"), Clock: testsupport.FixedClock()})
		res, err := asm.Build(context.Background(), newRequest(t, dest))
		require.NoError(t, err)
		payload, err := os.ReadFile(filepath.Join(res.Dir, res.PackingListFile))
		require.NoError(t, err)
		return res.PackingListFile, payload
	}
	name1, pkl1 := read(t.TempDir())
	name2, pkl2 := read(t.TempDir())
	assert.Equal(t, name1, name2)
	assert.Equal(t, string(pkl1), string(pkl2))
	assert.Contains(t, string(pkl1), "<IssueDate>2024-03-01T12:30:00Z</IssueDate>")
}

func TestBuildDirectoryConflictLeavesExistingDirectory(t *testing.T) {
	dest := t.TempDir()
	existing := filepath.Join(dest, "EP01")
	testsupport.WriteFile(t, filepath.Join(existing, "keep.txt"), 10)

	res, err := newAssembler(t, assembler.Options{CleanupOnFailure: true}).Build(context.Background(), newRequest(t, dest))
	require.Error(t, err)
	require.ErrorIs(t, err, faults.ErrDirectoryConflict)

	var berr *assembler.BuildError
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, assembler.PhaseDirectory, berr.Phase)
	assert.Empty(t, berr.Dir)
	assert.Equal(t, assembler.StateFailed, res.State)

	assert.Equal(t, []string{"keep.txt"}, testsupport.ListDir(t, existing))
}

func TestBuildRejectsZeroAssets(t *testing.T) {
	dest := t.TempDir()
	req := newRequest(t, dest)
	req.Assets = assets.NewRegistry(nil, nil)

	res, err := newAssembler(t, assembler.Options{}).Build(context.Background(), req)
	require.ErrorIs(t, err, faults.ErrValidation)
	assert.Equal(t, assembler.PhaseValidate, res.Phase)
	_, statErr := os.Stat(filepath.Join(dest, "EP01"))
	assert.True(t, os.IsNotExist(statErr), "no directory for a rejected build")
}

func TestBuildRejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*assembler.Request)
	}{
		{"empty name", func(r *assembler.Request) { r.Name = " " }},
		{"nested name", func(r *assembler.Request) { r.Name = "a/b" }},
		{"unknown kind", func(r *assembler.Request) { r.ContentKind = "feature" }},
		{"no destination", func(r *assembler.Request) { r.Destination = "" }},
		{"reserved asset name", func(r *assembler.Request) {
			src := filepath.Join(t.TempDir(), "ASSETMAP.xml")
			testsupport.WriteFile(t, src, 4)
			r.Assets = assets.NewRegistry([]*assets.Asset{assets.NewImage(src, assets.Technical{})}, nil)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(t, t.TempDir())
			tt.mutate(&req)
			_, err := newAssembler(t, assembler.Options{}).Build(context.Background(), req)
			require.ErrorIs(t, err, faults.ErrValidation)
		})
	}
}

// startHook runs fn when the build registers with its recorder, after
// validation and before the package directory is created.
type startHook struct {
	*memoryRecorder
	fn func()
}

func (h *startHook) Start(ctx context.Context, name, dir string, at time.Time) (int64, error) {
	h.fn()
	return h.memoryRecorder.Start(ctx, name, dir, at)
}

// allocationHook runs fn before the first identifier is drawn, which is
// after every asset is copied and before the digest pass.
type allocationHook struct {
	ident.Source
	once sync.Once
	fn   func()
}

func (h *allocationHook) NewID() (uuid.UUID, error) {
	h.once.Do(h.fn)
	return h.Source.NewID()
}

func TestBuildCopyFailureCleansUp(t *testing.T) {
	dest := t.TempDir()
	req := newRequest(t, dest)
	audio := req.Assets.Audio()[0]
	rec := &startHook{memoryRecorder: &memoryRecorder{}, fn: func() {
		require.NoError(t, os.Remove(audio.Source))
	}}

	res, err := newAssembler(t, assembler.Options{CleanupOnFailure: true, Recorder: rec}).Build(context.Background(), req)
	require.ErrorIs(t, err, faults.ErrCopyFailure)
	var berr *assembler.BuildError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, assembler.PhaseCopy, berr.Phase)
	assert.Empty(t, berr.Dir)
	assert.Equal(t, assembler.PhaseCopy, res.Phase)

	_, statErr := os.Stat(filepath.Join(dest, "EP01"))
	assert.True(t, os.IsNotExist(statErr), "partial package should be removed")
}

func TestBuildCopyFailureKeepsPartialWhenCleanupDisabled(t *testing.T) {
	dest := t.TempDir()
	req := newRequest(t, dest)
	rec := &startHook{memoryRecorder: &memoryRecorder{}, fn: func() {
		require.NoError(t, os.Remove(req.Assets.Audio()[0].Source))
	}}

	_, err := newAssembler(t, assembler.Options{CleanupOnFailure: false, Recorder: rec}).Build(context.Background(), req)
	var berr *assembler.BuildError
	require.ErrorAs(t, err, &berr)
	dir := filepath.Join(dest, "EP01")
	assert.Equal(t, dir, berr.Dir)
	assert.Contains(t, berr.Error(), "partial package left at")
	assert.Equal(t, []string{"frame0001.j2c"}, testsupport.ListDir(t, dir), "no documents over an incomplete asset set")
}

func TestBuildDigestMismatchFails(t *testing.T) {
	dest := t.TempDir()
	dir := filepath.Join(dest, "EP01")
	ids := &allocationHook{Source: testsupport.Identifiers(t.Name()), fn: func() {
		// Same size, different bytes: only the digest can tell.
		path := filepath.Join(dir, "frame0001.j2c")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		data[0] ^= 0xff
		require.NoError(t, os.WriteFile(path, data, 0o644))
	}}

	res, err := newAssembler(t, assembler.Options{IDs: ids, CleanupOnFailure: true}).Build(context.Background(), newRequest(t, dest))
	require.ErrorIs(t, err, faults.ErrCopyFailure)
	assert.Contains(t, err.Error(), "copied file changed after it was written")
	var berr *assembler.BuildError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, assembler.PhaseDigest, berr.Phase)
	assert.Empty(t, berr.Dir)
	assert.Equal(t, assembler.PhaseDigest, res.Phase)
	assert.Equal(t, assembler.StateFailed, res.State)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "partial package should be removed")
}

func TestBuildDigestFailureKeepsPartial(t *testing.T) {
	dest := t.TempDir()
	dir := filepath.Join(dest, "EP01")
	ids := &allocationHook{Source: testsupport.Identifiers(t.Name()), fn: func() {
		require.NoError(t, os.Remove(filepath.Join(dir, "audio.wav")))
	}}
	req := newRequest(t, dest)

	res, err := newAssembler(t, assembler.Options{IDs: ids}).Build(context.Background(), req)
	require.ErrorIs(t, err, faults.ErrIOFailure)
	assert.Equal(t, "io_failure", faults.Kind(err))
	var berr *assembler.BuildError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, assembler.PhaseDigest, berr.Phase)
	assert.Equal(t, dir, berr.Dir)
	assert.Equal(t, assembler.PhaseDigest, res.Phase)
	assert.Equal(t, []string{"frame0001.j2c"}, testsupport.ListDir(t, dir), "no documents written")

	// The sources are untouched, so the same request builds elsewhere.
	req.Destination = t.TempDir()
	retry, err := newAssembler(t, assembler.Options{}).Build(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, assembler.StateComplete, retry.State)
}

func TestBuildGenerateFailureCleansUp(t *testing.T) {
	dest := t.TempDir()
	dir := filepath.Join(dest, "EP01")
	ids := &allocationHook{Source: testsupport.Identifiers(t.Name()), fn: func() {
		// A directory where the volume index belongs makes its final rename fail.
		require.NoError(t, os.MkdirAll(filepath.Join(dir, imf.VolumeIndexFile, "occupied"), 0o755))
	}}

	res, err := newAssembler(t, assembler.Options{IDs: ids, CleanupOnFailure: true}).Build(context.Background(), newRequest(t, dest))
	require.ErrorIs(t, err, faults.ErrIOFailure)
	var berr *assembler.BuildError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, assembler.PhaseGenerate, berr.Phase)
	assert.Empty(t, berr.Dir)
	assert.Equal(t, assembler.PhaseGenerate, res.Phase)
	assert.Equal(t, assembler.StateFailed, res.State)
	assert.NotEmpty(t, res.CompositionFile, "composition was written before the failure")

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "partial package should be removed")
}

func TestBuildGenerateFailureKeepsPartial(t *testing.T) {
	dest := t.TempDir()
	dir := filepath.Join(dest, "EP01")
	ids := &allocationHook{Source: testsupport.Identifiers(t.Name()), fn: func() {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, imf.VolumeIndexFile, "occupied"), 0o755))
	}}

	res, err := newAssembler(t, assembler.Options{IDs: ids}).Build(context.Background(), newRequest(t, dest))
	var berr *assembler.BuildError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, assembler.PhaseGenerate, berr.Phase)
	assert.Equal(t, dir, berr.Dir)
	files := testsupport.ListDir(t, dir)
	assert.Contains(t, files, res.CompositionFile)
	assert.Contains(t, files, res.PackingListFile)
	assert.NotContains(t, files, imf.AssetMapFile, "asset map is written last")
}

func TestBuildDigestUnavailableIsReportedBeforeCopy(t *testing.T) {
	saved := digest.Algorithm
	digest.Algorithm = 0
	t.Cleanup(func() { digest.Algorithm = saved })

	dest := t.TempDir()
	res, err := newAssembler(t, assembler.Options{CleanupOnFailure: true}).Build(context.Background(), newRequest(t, dest))
	require.ErrorIs(t, err, faults.ErrDigestUnavailable)
	assert.Equal(t, "digest_unavailable", faults.Kind(err))
	assert.True(t, faults.Fatal(err))
	assert.Equal(t, assembler.PhaseValidate, res.Phase)
	_, statErr := os.Stat(filepath.Join(dest, "EP01"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestBuildSameRequestTwice(t *testing.T) {
	req := newRequest(t, t.TempDir())
	asm := newAssembler(t, assembler.Options{IDs: ident.RandomSource{}})

	first, err := asm.Build(context.Background(), req)
	require.NoError(t, err)
	for _, a := range req.Assets.All() {
		assert.Equal(t, uuid.Nil, a.ID, a.Name)
		assert.Empty(t, a.Digest, a.Name)
		assert.Zero(t, a.Size, a.Name)
	}

	req.Destination = t.TempDir()
	second, err := asm.Build(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, assembler.StateComplete, second.State)
	assert.NotEqual(t, first.IDs.CPL, second.IDs.CPL)

	built := second.Assets.All()
	require.Len(t, built, 2)
	for i, a := range built {
		assert.Equal(t, second.IDs.Assets[i], a.ID, a.Name)
		assert.NotEmpty(t, a.Digest, a.Name)
	}
	assert.Equal(t, int64(1024), built[0].Size)
	assert.Equal(t, first.Assets.All()[0].Digest, built[0].Digest)
}

func TestBuildAllocationFailure(t *testing.T) {
	dest := t.TempDir()
	ids := ident.NewSequence("00000000-0000-4000-8000-000000000001")

	res, err := newAssembler(t, assembler.Options{IDs: ids, CleanupOnFailure: true}).Build(context.Background(), newRequest(t, dest))
	require.ErrorIs(t, err, faults.ErrValidation)
	require.ErrorIs(t, err, ident.ErrExhausted)
	assert.Equal(t, assembler.PhaseAllocate, res.Phase)
	assert.Equal(t, assembler.StateFailed, res.State)
}

func TestBuildHonoursCancellation(t *testing.T) {
	dest := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newAssembler(t, assembler.Options{CleanupOnFailure: true}).Build(ctx, newRequest(t, dest))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, assembler.PhaseDirectory, res.Phase)
	assert.Equal(t, "canceled", faults.Kind(err))
}

func TestBuildLockConflict(t *testing.T) {
	dest := t.TempDir()
	lockDir := t.TempDir()
	held := flock.New(assembler.LockPath(lockDir, filepath.Join(dest, "EP01")))
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer held.Unlock()

	res, err := newAssembler(t, assembler.Options{LockDir: lockDir}).Build(context.Background(), newRequest(t, dest))
	require.ErrorIs(t, err, faults.ErrDirectoryConflict)
	assert.Equal(t, assembler.PhaseLock, res.Phase)
	_, statErr := os.Stat(filepath.Join(dest, "EP01"))
	assert.True(t, os.IsNotExist(statErr))
}

type recordedOutcome struct {
	id      int64
	outcome assembler.Outcome
}

type memoryRecorder struct {
	mu       sync.Mutex
	started  []string
	finished []recordedOutcome
	startErr error
}

func (m *memoryRecorder) Start(_ context.Context, name, _ string, _ time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return 0, m.startErr
	}
	m.started = append(m.started, name)
	return int64(len(m.started)), nil
}

func (m *memoryRecorder) Finish(_ context.Context, id int64, outcome assembler.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, recordedOutcome{id: id, outcome: outcome})
	return nil
}

func TestBuildRecordsOutcome(t *testing.T) {
	rec := &memoryRecorder{}
	asm := newAssembler(t, assembler.Options{Recorder: rec})

	res, err := asm.Build(context.Background(), newRequest(t, t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.BuildID)

	_, err = asm.Build(context.Background(), newRequest(t, filepath.Dir(res.Dir)))
	require.ErrorIs(t, err, faults.ErrDirectoryConflict)

	require.Len(t, rec.finished, 2)
	ok := rec.finished[0].outcome
	assert.Equal(t, assembler.StateComplete, ok.State)
	assert.Equal(t, 7, ok.Files)
	assert.True(t, strings.HasPrefix(ok.Composition, "urn:uuid:"))
	assert.Empty(t, ok.ErrorKind)

	failed := rec.finished[1].outcome
	assert.Equal(t, int64(2), rec.finished[1].id)
	assert.Equal(t, assembler.StateFailed, failed.State)
	assert.Equal(t, assembler.PhaseDirectory, failed.Phase)
	assert.Equal(t, "directory_conflict", failed.ErrorKind)
}

func TestBuildSurvivesRecorderFailure(t *testing.T) {
	rec := &memoryRecorder{startErr: errors.New("ledger locked")}
	res, err := newAssembler(t, assembler.Options{Recorder: rec}).Build(context.Background(), newRequest(t, t.TempDir()))
	require.NoError(t, err)
	assert.Zero(t, res.BuildID)
	assert.Empty(t, rec.finished)
}

func TestBuildIdentifiersAreDistinct(t *testing.T) {
	res, err := newAssembler(t, assembler.Options{IDs: ident.RandomSource{}}).Build(context.Background(), newRequest(t, t.TempDir()))
	require.NoError(t, err)
	ids := []uuid.UUID{res.IDs.AssetMap, res.IDs.CPL, res.IDs.OPL, res.IDs.PKL}
	seen := map[uuid.UUID]bool{}
	for _, id := range append(ids, res.IDs.Assets...) {
		assert.False(t, seen[id], id.String())
		seen[id] = true
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "directory_created", assembler.StateDirectoryCreated.String())
	assert.Equal(t, "complete", assembler.StateComplete.String())
	assert.Equal(t, "unknown", assembler.State(42).String())
}
