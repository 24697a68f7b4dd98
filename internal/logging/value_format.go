package logging

import (
	"encoding"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// formatValue renders v for a console key=value pair, quoting it when the
// bare text would not survive a split on spaces.
func formatValue(v slog.Value) string {
	return quoteIfNeeded(plainValue(v))
}

// plainValue renders v without quoting. Identifiers print as URNs, the
// form they take in package documents.
func plainValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return roundDuration(v.Duration()).String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		return anyText(v.Any())
	default:
		return v.String()
	}
}

func anyText(x any) string {
	switch t := x.(type) {
	case nil:
		return ""
	case error:
		return t.Error()
	case uuid.UUID:
		return t.URN()
	case encoding.TextMarshaler:
		if b, err := t.MarshalText(); err == nil {
			return string(b)
		}
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(x)
}

// roundDuration drops precision nobody reads in a log line: milliseconds
// above a second, microseconds above a millisecond.
func roundDuration(d time.Duration) time.Duration {
	switch {
	case d >= time.Second || d <= -time.Second:
		return d.Round(time.Millisecond)
	case d >= time.Millisecond || d <= -time.Millisecond:
		return d.Round(time.Microsecond)
	default:
		return d
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}
