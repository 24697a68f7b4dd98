// Package manifest reads the YAML description of a package to build and
// expands its source patterns into an asset registry.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"imfpack/internal/assets"
	"imfpack/internal/faults"
)

// Manifest describes one package. Package-wide fields left empty fall back
// to configuration.
type Manifest struct {
	Name              string  `yaml:"name"`
	ContentKind       string  `yaml:"content_kind,omitempty"`
	EditRate          string  `yaml:"edit_rate,omitempty"`
	Creator           string  `yaml:"creator,omitempty"`
	Issuer            string  `yaml:"issuer,omitempty"`
	ContentOriginator string  `yaml:"content_originator,omitempty"`
	Images            []Entry `yaml:"images,omitempty"`
	Audio             []Entry `yaml:"audio,omitempty"`

	// BaseDir anchors relative source patterns. Load sets it to the
	// manifest's directory.
	BaseDir string `yaml:"-"`
}

// Entry is one source pattern and the technical attributes shared by every
// file it matches.
type Entry struct {
	Path              string `yaml:"path"`
	EditRate          string `yaml:"edit_rate,omitempty"`
	IntrinsicDuration int64  `yaml:"intrinsic_duration,omitempty"`
	EntryPoint        int64  `yaml:"entry_point,omitempty"`
	SourceDuration    int64  `yaml:"source_duration,omitempty"`
	SampleRate        string `yaml:"sample_rate,omitempty"`
	Channels          int    `yaml:"channels,omitempty"`
	Width             int    `yaml:"width,omitempty"`
	Height            int    `yaml:"height,omitempty"`
}

// Load reads the manifest at path. Unknown keys are rejected.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, faults.Wrap(faults.ErrIOFailure, "manifest", path, "read", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, faults.Wrap(faults.ErrValidation, "manifest", path, "", err)
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, faults.Wrap(faults.ErrIOFailure, "manifest", path, "resolve directory", err)
	}
	m.BaseDir = abs
	return m, nil
}

// Parse decodes a manifest document.
func Parse(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("manifest is empty")
		}
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	m.Name = strings.TrimSpace(m.Name)
	return &m, nil
}

// Registry expands every entry and returns the assets in manifest order;
// files matched by one pattern are sorted by path.
func (m *Manifest) Registry() (*assets.Registry, error) {
	images, err := m.expand(assets.KindImage, m.Images)
	if err != nil {
		return nil, err
	}
	audio, err := m.expand(assets.KindAudio, m.Audio)
	if err != nil {
		return nil, err
	}
	return assets.NewRegistry(images, audio), nil
}

func (m *Manifest) expand(kind assets.Kind, entries []Entry) ([]*assets.Asset, error) {
	var out []*assets.Asset
	for i, e := range entries {
		tech, err := e.technical()
		if err != nil {
			return nil, faults.Wrap(faults.ErrValidation, "manifest", fmt.Sprintf("%s[%d]", kind, i), "", err)
		}
		paths, err := Expand(m.BaseDir, e.Path)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			out = append(out, assets.New(kind, p, tech))
		}
	}
	return out, nil
}

func (e Entry) technical() (assets.Technical, error) {
	editRate, err := assets.ParseRational(e.EditRate)
	if err != nil {
		return assets.Technical{}, fmt.Errorf("edit_rate: %w", err)
	}
	sampleRate, err := assets.ParseRational(e.SampleRate)
	if err != nil {
		return assets.Technical{}, fmt.Errorf("sample_rate: %w", err)
	}
	return assets.Technical{
		EditRate:          editRate,
		IntrinsicDuration: e.IntrinsicDuration,
		EntryPoint:        e.EntryPoint,
		SourceDuration:    e.SourceDuration,
		SampleRate:        sampleRate,
		Channels:          e.Channels,
		Width:             e.Width,
		Height:            e.Height,
	}, nil
}

// Expand resolves pattern against baseDir and returns the matching regular
// files, sorted. A pattern without glob metacharacters must name an existing
// file; a glob must match at least one.
func Expand(baseDir, pattern string) ([]string, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, faults.Wrap(faults.ErrValidation, "manifest", "path", "empty source pattern", nil)
	}
	if !filepath.IsAbs(pattern) && baseDir != "" {
		pattern = filepath.Join(baseDir, pattern)
	}
	if !strings.ContainsAny(pattern, "*?[{") {
		return []string{filepath.Clean(pattern)}, nil
	}
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, faults.Wrap(faults.ErrValidation, "manifest", pattern, "bad pattern", err)
	}
	if len(matches) == 0 {
		return nil, faults.Wrap(faults.ErrValidation, "manifest", pattern, "pattern matched no files", nil)
	}
	sort.Strings(matches)
	return matches, nil
}
