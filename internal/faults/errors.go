package faults

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDirectoryConflict = errors.New("directory conflict")
	ErrCopyFailure       = errors.New("copy failure")
	ErrDigestUnavailable = errors.New("digest unavailable")
	ErrIOFailure         = errors.New("i/o failure")
	ErrXMLBuildFailure   = errors.New("xml build failure")
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
)

// Wrap builds an error message that includes phase context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, phase, operation, message string, err error) error {
	detail := buildDetail(phase, operation, message)
	if marker == nil {
		marker = ErrIOFailure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a stable classification for err. A missing digest algorithm
// wins over the marker of the step that ran into it. Cancellation reports
// "canceled"; other unknown errors report
// "internal"; nil reports "".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDigestUnavailable):
		return "digest_unavailable"
	case errors.Is(err, ErrDirectoryConflict):
		return "directory_conflict"
	case errors.Is(err, ErrCopyFailure):
		return "copy_failure"
	case errors.Is(err, ErrXMLBuildFailure):
		return "xml_build_failure"
	case errors.Is(err, ErrIOFailure):
		return "io_failure"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}

// Fatal reports whether err should be treated as a configuration problem
// rather than a property of one particular build.
func Fatal(err error) bool {
	return errors.Is(err, ErrDigestUnavailable) || errors.Is(err, ErrConfiguration)
}

func buildDetail(phase, operation, message string) string {
	parts := make([]string, 0, 3)
	if phase = strings.TrimSpace(phase); phase != "" {
		parts = append(parts, phase)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "build failure"
	}
	return strings.Join(parts, ": ")
}
