package imf

import (
	"path/filepath"
	"time"

	"imfpack/internal/assets"
)

// Package is the aggregate a build turns into a directory.
type Package struct {
	Destination       string
	Name              string
	ContentKind       string
	IssueDate         time.Time
	Creator           string
	Issuer            string
	ContentOriginator string
	EditRate          assets.Rational
	Assets            *assets.Registry
}

// Dir is the package directory, <destination>/<name>.
func (p *Package) Dir() string {
	return filepath.Join(p.Destination, p.Name)
}

// FormatDate renders t as an xs:dateTime in UTC with second precision.
func FormatDate(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func (p *Package) issueDate() string {
	return FormatDate(p.IssueDate)
}

// CompositionEditRate picks the composition edit rate: the first image asset
// that declares one wins, otherwise fallback.
func CompositionEditRate(reg *assets.Registry, fallback assets.Rational) assets.Rational {
	if reg != nil {
		for _, a := range reg.Images() {
			if a.Technical.EditRate.Valid() {
				return a.Technical.EditRate
			}
		}
	}
	return fallback
}
