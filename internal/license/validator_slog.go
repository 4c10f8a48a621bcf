package license

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// logOutcome records a validation decision with structured attributes and
// span correlation. License keys never reach the log stream in clear
// text; they are masked and hashed for audit correlation.
func (v *Validator) logOutcome(ctx context.Context, rec *Record, outcome string, start time.Time, policyErr error) {
	duration := v.clock().Sub(start)

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("license.outcome", outcome),
			attribute.Float64("license.duration_ms", float64(duration.Milliseconds())),
			attribute.Bool("license.valid", outcome == "valid"),
		)
		if policyErr != nil {
			span.RecordError(policyErr)
			span.SetStatus(codes.Error, policyErr.Error())
		}
	}

	attrs := []slog.Attr{
		slog.String("component", "license_validator"),
		slog.String("outcome", outcome),
		slog.Duration("duration", duration),
	}
	if rec != nil {
		attrs = append(attrs,
			slog.String("license_id", rec.ID),
			slog.String("license_key_masked", maskKey(rec.Key)),
			slog.String("license_key_hash", hashKey(rec.Key)),
			slog.String("status", string(rec.Status)),
		)
	}

	level := slog.LevelInfo
	switch {
	case policyErr != nil:
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", policyErr.Error()))
	case outcome != "valid":
		level = slog.LevelInfo
	}

	v.logger.LogAttrs(ctx, level, "License validation decided", attrs...)
}

// maskKey hides the middle of a license key for log output.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

// hashKey returns a short SHA-256 digest of a license key for audit
// trails without exposing the key itself.
func hashKey(key string) string {
	if key == "" {
		return ""
	}
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h)[:16]
}
