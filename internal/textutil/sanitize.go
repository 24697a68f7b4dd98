package textutil

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName trims name and converts it to Unicode NFC so the name written
// into metadata documents is byte-identical to the file created on disk.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// ValidatePackageName checks that name can be used verbatim as a single
// directory component. It returns the normalized name.
func ValidatePackageName(name string) (string, error) {
	name = NormalizeName(name)
	switch {
	case name == "":
		return "", fmt.Errorf("package name is empty")
	case name == "." || name == "..":
		return "", fmt.Errorf("package name %q is not a directory name", name)
	case strings.ContainsAny(name, `/\`):
		return "", fmt.Errorf("package name %q contains a path separator", name)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("package name %q contains control characters", name)
		}
	}
	return name, nil
}

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
