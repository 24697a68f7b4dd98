package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"imfpack/internal/digest"
	"imfpack/internal/faults"
)

// Registry is the ordered set of assets for one package.
type Registry struct {
	images []*Asset
	audio  []*Asset
}

// NewRegistry returns a registry over the given images and audio, kept in
// input order. Nil entries are dropped.
func NewRegistry(images, audio []*Asset) *Registry {
	r := &Registry{}
	for _, a := range images {
		if a != nil {
			r.images = append(r.images, a)
		}
	}
	for _, a := range audio {
		if a != nil {
			r.audio = append(r.audio, a)
		}
	}
	return r
}

// Images returns the image assets in order.
func (r *Registry) Images() []*Asset { return r.images }

// Audio returns the audio assets in order.
func (r *Registry) Audio() []*Asset { return r.audio }

// All returns every asset in copy order: images, then audio.
func (r *Registry) All() []*Asset {
	all := make([]*Asset, 0, len(r.images)+len(r.audio))
	all = append(all, r.images...)
	return append(all, r.audio...)
}

// Clone returns a registry holding copies of every asset, so build-time
// fields (ID, Digest, Size) can be filled in without touching r.
func (r *Registry) Clone() *Registry {
	if r == nil {
		return nil
	}
	clone := &Registry{
		images: make([]*Asset, 0, len(r.images)),
		audio:  make([]*Asset, 0, len(r.audio)),
	}
	for _, a := range r.images {
		c := *a
		clone.images = append(clone.images, &c)
	}
	for _, a := range r.audio {
		c := *a
		clone.audio = append(clone.audio, &c)
	}
	return clone
}

// Len is the total number of assets.
func (r *Registry) Len() int { return len(r.images) + len(r.audio) }

// Validate checks the registry can produce a package: at least one asset,
// correctly classified, each with a readable regular source file and a
// target name no other asset uses.
func (r *Registry) Validate() error {
	if r == nil || r.Len() == 0 {
		return faults.Wrap(faults.ErrValidation, "validate", "assets", "package needs at least one image or audio asset", nil)
	}
	seen := make(map[string]string, r.Len())
	for _, a := range r.All() {
		if err := validateAsset(a); err != nil {
			return err
		}
		key := strings.ToLower(a.Name)
		if prev, dup := seen[key]; dup {
			return faults.Wrap(faults.ErrValidation, "validate", a.Name,
				fmt.Sprintf("target name collides with %s", prev), nil)
		}
		seen[key] = a.Source
	}
	for _, a := range r.images {
		if a.Kind != KindImage {
			return faults.Wrap(faults.ErrValidation, "validate", a.Name, "audio asset listed as image", nil)
		}
	}
	for _, a := range r.audio {
		if a.Kind != KindAudio {
			return faults.Wrap(faults.ErrValidation, "validate", a.Name, "image asset listed as audio", nil)
		}
	}
	return nil
}

func validateAsset(a *Asset) error {
	name := strings.TrimSpace(a.Name)
	if name == "" || name == "." || name != filepath.Base(name) {
		return faults.Wrap(faults.ErrValidation, "validate", a.Source, fmt.Sprintf("invalid target name %q", a.Name), nil)
	}
	info, err := os.Stat(a.Source)
	if err != nil {
		return faults.Wrap(faults.ErrValidation, "validate", a.Source, "source not readable", err)
	}
	if !info.Mode().IsRegular() {
		return faults.Wrap(faults.ErrValidation, "validate", a.Source, "source is not a regular file", nil)
	}
	if a.Technical.EntryPoint < 0 || a.Technical.IntrinsicDuration < 0 || a.Technical.SourceDuration < 0 {
		return faults.Wrap(faults.ErrValidation, "validate", a.Name, "durations must not be negative", nil)
	}
	return nil
}

// AssignIDs gives each asset, in copy order, its identifier from ids.
// Identifiers are assigned once; a second call fails.
func (r *Registry) AssignIDs(ids []uuid.UUID) error {
	all := r.All()
	if len(ids) != len(all) {
		return fmt.Errorf("assign asset ids: have %d ids for %d assets", len(ids), len(all))
	}
	for i, a := range all {
		if a.ID != uuid.Nil {
			return fmt.Errorf("assign asset ids: %s already has id %s", a.Name, a.ID)
		}
		if ids[i] == uuid.Nil {
			return fmt.Errorf("assign asset ids: nil id for %s", a.Name)
		}
	}
	for i, a := range all {
		a.ID = ids[i]
	}
	return nil
}

// Digest computes the digest and size of every asset's file under root
// (the package directory). Work is spread over at most workers goroutines;
// each goroutine writes only the record it was handed, and Digest returns
// after all of them have finished.
func (r *Registry) Digest(ctx context.Context, root string, workers int) error {
	if _, err := digest.New(); err != nil {
		return err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, a := range r.All() {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := digest.File(filepath.Join(root, a.Name))
			if err != nil {
				return err
			}
			a.Digest = res.Digest
			a.Size = res.Size
			return nil
		})
	}
	return g.Wait()
}
