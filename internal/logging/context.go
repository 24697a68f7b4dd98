package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldPackage is the package (IMF volume) name being built.
	FieldPackage = "package"
	// FieldPhase is the assembler phase a record belongs to.
	FieldPhase = "phase"
	// FieldBuildID is the ledger identifier of the running build.
	FieldBuildID = "build_id"
	// FieldEventType classifies a record for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step after a warning or error.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type contextKey string

const (
	packageKey contextKey = "package"
	phaseKey   contextKey = "phase"
	buildIDKey contextKey = "build_id"
)

// WithPackage annotates ctx with the package name.
func WithPackage(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, packageKey, name)
}

// WithPhase annotates ctx with the current build phase.
func WithPhase(ctx context.Context, phase string) context.Context {
	if phase == "" {
		return ctx
	}
	return context.WithValue(ctx, phaseKey, phase)
}

// WithBuildID annotates ctx with the ledger build identifier.
func WithBuildID(ctx context.Context, id int64) context.Context {
	if id <= 0 {
		return ctx
	}
	return context.WithValue(ctx, buildIDKey, id)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if name, ok := ctx.Value(packageKey).(string); ok && name != "" {
		fields = append(fields, slog.String(FieldPackage, name))
	}
	if phase, ok := ctx.Value(phaseKey).(string); ok && phase != "" {
		fields = append(fields, slog.String(FieldPhase, phase))
	}
	if id, ok := ctx.Value(buildIDKey).(int64); ok && id > 0 {
		fields = append(fields, slog.Int64(FieldBuildID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
