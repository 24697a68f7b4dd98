package ident

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const urnPrefix = "urn:uuid:"

// Allocation is the complete set of identifiers for one build. Assets and
// Resources are indexed like the registry's copy order (images then audio).
type Allocation struct {
	AssetMap uuid.UUID
	CPL      uuid.UUID
	OPL      uuid.UUID
	PKL      uuid.UUID

	Segment       uuid.UUID
	ImageSequence uuid.UUID
	ImageTrack    uuid.UUID
	AudioSequence uuid.UUID
	AudioTrack    uuid.UUID

	Assets    []uuid.UUID
	Resources []uuid.UUID
}

// Allocate draws every identifier a build needs from src. It fails if src
// errors or ever repeats an identifier.
func Allocate(src Source, assetCount int) (Allocation, error) {
	if src == nil {
		src = RandomSource{}
	}
	if assetCount < 0 {
		return Allocation{}, fmt.Errorf("allocate identifiers: negative asset count %d", assetCount)
	}
	seen := make(map[uuid.UUID]struct{}, 9+2*assetCount)
	next := func(label string) (uuid.UUID, error) {
		id, err := src.NewID()
		if err != nil {
			return uuid.Nil, fmt.Errorf("allocate %s id: %w", label, err)
		}
		if id == uuid.Nil {
			return uuid.Nil, fmt.Errorf("allocate %s id: source returned nil uuid", label)
		}
		if _, dup := seen[id]; dup {
			return uuid.Nil, fmt.Errorf("allocate %s id: duplicate %s", label, id)
		}
		seen[id] = struct{}{}
		return id, nil
	}

	var (
		a   Allocation
		err error
	)
	fixed := []struct {
		label string
		dst   *uuid.UUID
	}{
		{"asset map", &a.AssetMap},
		{"composition", &a.CPL},
		{"output profile", &a.OPL},
		{"packing list", &a.PKL},
		{"segment", &a.Segment},
		{"image sequence", &a.ImageSequence},
		{"image track", &a.ImageTrack},
		{"audio sequence", &a.AudioSequence},
		{"audio track", &a.AudioTrack},
	}
	for _, f := range fixed {
		if *f.dst, err = next(f.label); err != nil {
			return Allocation{}, err
		}
	}

	a.Assets = make([]uuid.UUID, assetCount)
	a.Resources = make([]uuid.UUID, assetCount)
	for i := 0; i < assetCount; i++ {
		if a.Assets[i], err = next(fmt.Sprintf("asset %d", i)); err != nil {
			return Allocation{}, err
		}
		if a.Resources[i], err = next(fmt.Sprintf("resource %d", i)); err != nil {
			return Allocation{}, err
		}
	}
	return a, nil
}

// URN formats id the way IMF documents reference identifiers.
func URN(id uuid.UUID) string {
	return urnPrefix + id.String()
}

// ParseURN accepts "urn:uuid:<uuid>" (case-insensitive prefix) and returns
// the identifier.
func ParseURN(value string) (uuid.UUID, error) {
	value = strings.TrimSpace(value)
	if len(value) < len(urnPrefix) || !strings.EqualFold(value[:len(urnPrefix)], urnPrefix) {
		return uuid.Nil, fmt.Errorf("parse urn %q: missing %s prefix", value, urnPrefix)
	}
	id, err := uuid.Parse(value[len(urnPrefix):])
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse urn %q: %w", value, err)
	}
	return id, nil
}
