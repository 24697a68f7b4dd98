package assets

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"imfpack/internal/textutil"
)

// Kind distinguishes image from audio essence.
type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

// Rational is an exact rate such as 24000/1001.
type Rational struct {
	Num int64
	Den int64
}

// IsZero reports whether r is unset.
func (r Rational) IsZero() bool { return r.Num == 0 && r.Den == 0 }

// Valid reports whether r is a usable positive rate.
func (r Rational) Valid() bool { return r.Num > 0 && r.Den > 0 }

// String renders r in the "num den" form used by CPL EditRate fields.
func (r Rational) String() string {
	return strconv.FormatInt(r.Num, 10) + " " + strconv.FormatInt(r.Den, 10)
}

// ParseRational accepts "24", "24/1", "24000/1001" or "24 1".
func ParseRational(value string) (Rational, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Rational{}, nil
	}
	fields := strings.FieldsFunc(value, func(r rune) bool { return r == '/' || r == ' ' })
	if len(fields) == 0 || len(fields) > 2 {
		return Rational{}, fmt.Errorf("parse rate %q: expected num/den", value)
	}
	num, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Rational{}, fmt.Errorf("parse rate %q: %w", value, err)
	}
	den := int64(1)
	if len(fields) == 2 {
		if den, err = strconv.ParseInt(fields[1], 10, 64); err != nil {
			return Rational{}, fmt.Errorf("parse rate %q: %w", value, err)
		}
	}
	r := Rational{Num: num, Den: den}
	if !r.Valid() {
		return Rational{}, fmt.Errorf("parse rate %q: must be positive", value)
	}
	return r, nil
}

// MarshalText implements encoding.TextMarshaler.
func (r Rational) MarshalText() ([]byte, error) {
	if r.IsZero() {
		return []byte{}, nil
	}
	return []byte(fmt.Sprintf("%d/%d", r.Num, r.Den)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so rates can be written
// as strings in TOML and YAML.
func (r *Rational) UnmarshalText(text []byte) error {
	parsed, err := ParseRational(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Technical carries the already-parsed essence attributes the composition
// needs. Durations are in edit units of EditRate.
type Technical struct {
	EditRate          Rational
	IntrinsicDuration int64
	EntryPoint        int64
	SourceDuration    int64
	SampleRate        Rational
	Channels          int
	Width             int
	Height            int
}

// PlayableDuration is the number of edit units the resource contributes.
func (t Technical) PlayableDuration() int64 {
	if t.SourceDuration > 0 {
		return t.SourceDuration
	}
	if d := t.IntrinsicDuration - t.EntryPoint; d > 0 {
		return d
	}
	return 0
}

// Asset is one essence file. ID, Digest and Size are filled in during the
// build and never change afterwards.
type Asset struct {
	Kind      Kind
	Source    string
	Name      string
	Technical Technical

	ID     uuid.UUID
	Digest string
	Size   int64
}

// New builds an asset record for source, targeting its (NFC-normalized) base
// name inside the package.
func New(kind Kind, source string, tech Technical) *Asset {
	return &Asset{
		Kind:      kind,
		Source:    source,
		Name:      textutil.NormalizeName(filepath.Base(source)),
		Technical: tech,
	}
}

// NewImage is shorthand for New(KindImage, ...).
func NewImage(source string, tech Technical) *Asset { return New(KindImage, source, tech) }

// NewAudio is shorthand for New(KindAudio, ...).
func NewAudio(source string, tech Technical) *Asset { return New(KindAudio, source, tech) }
