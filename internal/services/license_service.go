package services

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"lcgate/internal/infrastructure"
	"lcgate/internal/license"
)

// LicenseAPI is the consumed slice of the authority client the service
// needs. A nil record with a nil error means the license does not exist.
type LicenseAPI interface {
	GetLicenseByKey(ctx context.Context, key string) (*license.Record, error)
	UpdateLicense(ctx context.Context, rec *license.Record) (*license.Record, error)
}

// LicenseService wraps the validation engine with the caller-side
// plumbing around it: snapshot fetch (cached), the best-effort usage
// persist, and metrics. The engine's verdict is authoritative the moment
// it is produced; nothing that happens afterwards can retract it.
type LicenseService struct {
	api       LicenseAPI
	validator *license.Validator
	cache     *license.SnapshotCache
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger
}

// NewLicenseService wires a validation service.
func NewLicenseService(api LicenseAPI, validator *license.Validator, cache *license.SnapshotCache, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *LicenseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LicenseService{
		api:       api,
		validator: validator,
		cache:     cache,
		metrics:   metrics,
		logger:    logger.With(slog.String("service", "license")),
	}
}

// ValidateKey validates a raw license key with an optional device
// fingerprint.
//
// The key format gate runs before any network traffic; a malformed key
// is a soft-invalid verdict, not an error. Policy violations from the
// engine propagate as *license.PolicyError. On a success verdict the
// mutated record is pushed back to the authority best-effort: a persist
// failure is logged and counted but never re-raised as a validation
// failure.
func (s *LicenseService) ValidateKey(ctx context.Context, key, fingerprint string) (license.Verdict, error) {
	start := time.Now()

	if !license.ValidKeyFormat(key) {
		s.recordOutcome(ctx, "malformed_key", start)
		return license.Verdict{
			Valid:   false,
			Message: "Invalid license key format. Expected: LC-XXXXXXXX-XXXXXXXX-XXXXXXXX",
		}, nil
	}

	rec, err := s.fetch(ctx, key)
	if err != nil {
		s.recordOutcome(ctx, "fetch_error", start)
		return license.Verdict{}, err
	}

	verdict, updated, err := s.validator.Validate(ctx, rec, fingerprint)
	if err != nil {
		s.recordOutcome(ctx, "policy_violation", start)
		return license.Verdict{}, err
	}
	if !verdict.Valid {
		s.recordOutcome(ctx, "invalid", start)
		return verdict, nil
	}

	s.persistUsage(ctx, key, updated)

	s.recordOutcome(ctx, "valid", start)
	return verdict, nil
}

// fetch returns a record snapshot, served from the cache when fresh.
func (s *LicenseService) fetch(ctx context.Context, key string) (*license.Record, error) {
	if s.cache != nil {
		if rec, ok := s.cache.Get(key); ok {
			s.count(ctx, s.metricCacheHits())
			return rec, nil
		}
		s.count(ctx, s.metricCacheMisses())
	}

	rec, err := s.api.GetLicenseByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	if rec != nil && s.cache != nil {
		s.cache.Set(key, rec)
	}
	return rec, nil
}

// persistUsage pushes the post-validation record back to the authority.
// Failures here are logged as warnings and surfaced only through
// metrics; an already-granted verdict stays granted.
func (s *LicenseService) persistUsage(ctx context.Context, key string, updated *license.Record) {
	if updated == nil {
		return
	}

	if _, err := s.api.UpdateLicense(ctx, updated); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "Best-effort usage persist failed",
			slog.String("license_id", updated.ID),
			slog.String("error", err.Error()),
		)
		if s.metrics != nil {
			s.metrics.UsagePersistFailures.Add(ctx, 1)
		}
		return
	}

	// The authority now owns the new counter value; drop the stale
	// snapshot so the next validation re-fetches.
	if s.cache != nil {
		s.cache.Invalidate(key)
	}
}

// CacheStats exposes snapshot cache statistics for the health surface.
func (s *LicenseService) CacheStats() map[string]interface{} {
	if s.cache == nil {
		return map[string]interface{}{"enabled": false}
	}
	return s.cache.Stats()
}

func (s *LicenseService) recordOutcome(ctx context.Context, outcome string, start time.Time) {
	if s.metrics == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	s.metrics.LicenseValidationChecks.Add(ctx, 1, attrs)
	if outcome != "valid" {
		s.metrics.LicenseValidationFailures.Add(ctx, 1, attrs)
	}
	s.metrics.LicenseValidationDuration.Record(ctx, time.Since(start).Seconds(), attrs)
}

func (s *LicenseService) metricCacheHits() metric.Int64Counter {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.LicenseCacheHits
}

func (s *LicenseService) metricCacheMisses() metric.Int64Counter {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.LicenseCacheMisses
}

func (s *LicenseService) count(ctx context.Context, counter metric.Int64Counter) {
	if counter != nil {
		counter.Add(ctx, 1)
	}
}
