package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imfpack/internal/assets"
	"imfpack/internal/faults"
	"imfpack/internal/manifest"
	"imfpack/internal/testsupport"
)

const sample = `name: EP01
content_kind: episode
edit_rate: 24000/1001
content_originator: Example Studio
images:
  - path: frames/**/*.j2c
    edit_rate: 24000/1001
    intrinsic_duration: 1
    width: 1920
    height: 1080
audio:
  - path: audio/main.wav
    sample_rate: "48000"
    channels: 2
    intrinsic_duration: 2002
`

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "package.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAndExpand(t *testing.T) {
	path := writeManifest(t, sample)
	dir := filepath.Dir(path)
	testsupport.WriteFile(t, filepath.Join(dir, "frames", "b", "frame0002.j2c"), 4)
	testsupport.WriteFile(t, filepath.Join(dir, "frames", "a", "frame0001.j2c"), 4)
	testsupport.WriteFile(t, filepath.Join(dir, "frames", "notes.txt"), 4)
	testsupport.WriteFile(t, filepath.Join(dir, "audio", "main.wav"), 4)

	m, err := manifest.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "EP01", m.Name)
	assert.Equal(t, "Example Studio", m.ContentOriginator)

	reg, err := m.Registry()
	require.NoError(t, err)
	require.Len(t, reg.Images(), 2)
	assert.Equal(t, "frame0001.j2c", reg.Images()[0].Name)
	assert.Equal(t, "frame0002.j2c", reg.Images()[1].Name)
	assert.Equal(t, assets.Rational{Num: 24000, Den: 1001}, reg.Images()[0].Technical.EditRate)
	assert.Equal(t, 1920, reg.Images()[0].Technical.Width)

	require.Len(t, reg.Audio(), 1)
	wav := reg.Audio()[0]
	assert.Equal(t, assets.KindAudio, wav.Kind)
	assert.Equal(t, filepath.Join(dir, "audio", "main.wav"), wav.Source)
	assert.Equal(t, assets.Rational{Num: 48000, Den: 1}, wav.Technical.SampleRate)
	assert.Equal(t, 2, wav.Technical.Channels)

	require.NoError(t, reg.Validate())
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := manifest.Parse([]byte("name: EP01\nimagez: []\n"))
	require.Error(t, err)
}

func TestParseEmpty(t *testing.T) {
	_, err := manifest.Parse(nil)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := manifest.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, faults.ErrIOFailure)
}

func TestRegistryBadRate(t *testing.T) {
	m, err := manifest.Parse([]byte("name: EP01\nimages:\n  - path: x.j2c\n    edit_rate: fast\n"))
	require.NoError(t, err)
	_, err = m.Registry()
	require.ErrorIs(t, err, faults.ErrValidation)
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "a.wav"), 1)

	got, err := manifest.Expand(dir, "a.wav")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.wav")}, got)

	got, err = manifest.Expand("", filepath.Join(dir, "*.wav"))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = manifest.Expand(dir, "*.mxf")
	require.ErrorIs(t, err, faults.ErrValidation)

	_, err = manifest.Expand(dir, "  ")
	require.ErrorIs(t, err, faults.ErrValidation)
}
