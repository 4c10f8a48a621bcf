package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lcgate/internal/license"
)

// stubAPI is an in-memory authority double.
type stubAPI struct {
	records     map[string]*license.Record
	fetchErr    error
	updateErr   error
	fetchCalls  int
	updateCalls int
	lastUpdate  *license.Record
}

func (s *stubAPI) GetLicenseByKey(ctx context.Context, key string) (*license.Record, error) {
	s.fetchCalls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}

func (s *stubAPI) UpdateLicense(ctx context.Context, rec *license.Record) (*license.Record, error) {
	s.updateCalls++
	s.lastUpdate = rec
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	if _, ok := s.records[rec.Key]; ok {
		s.records[rec.Key] = rec.Clone()
	}
	return rec.Clone(), nil
}

const testKey = "LC-ABCDEFGH-12345678-ZZZZZZZZ"

func newStubAPI() *stubAPI {
	return &stubAPI{
		records: map[string]*license.Record{
			testKey: {
				ID:     "lic_123",
				Key:    testKey,
				Status: license.StatusActive,
				Usage:  license.Usage{MaxValidations: license.UnlimitedValidations},
			},
		},
	}
}

func newTestService(api *stubAPI, cache *license.SnapshotCache) *LicenseService {
	validator := license.NewValidator(
		license.WithClock(time.Now),
	)
	return NewLicenseService(api, validator, cache, nil, nil)
}

func TestValidateKeyMalformedKeyShortCircuits(t *testing.T) {
	api := newStubAPI()
	svc := newTestService(api, nil)

	verdict, err := svc.ValidateKey(context.Background(), "not-a-key", "")

	require.NoError(t, err)
	assert.False(t, verdict.Valid)
	assert.Contains(t, verdict.Message, "Invalid license key format")
	assert.Zero(t, api.fetchCalls, "malformed keys never reach the authority")
}

func TestValidateKeyUnknownKeyIsSoftInvalid(t *testing.T) {
	api := newStubAPI()
	svc := newTestService(api, nil)

	verdict, err := svc.ValidateKey(context.Background(), "LC-NOSUCHKE-NOSUCHKE-NOSUCHKE", "")

	require.NoError(t, err)
	assert.False(t, verdict.Valid)
	assert.Equal(t, "License not found", verdict.Message)
}

func TestValidateKeySuccessPersistsUsage(t *testing.T) {
	api := newStubAPI()
	svc := newTestService(api, nil)

	verdict, err := svc.ValidateKey(context.Background(), testKey, "dev-1")

	require.NoError(t, err)
	assert.True(t, verdict.Valid)
	require.Equal(t, 1, api.updateCalls)
	require.NotNil(t, api.lastUpdate)
	assert.Equal(t, 1, api.lastUpdate.Usage.TotalValidations)
	require.Len(t, api.lastUpdate.Hardware, 1)
	assert.Equal(t, "dev-1", api.lastUpdate.Hardware[0].Fingerprint)
}

func TestValidateKeyPersistFailureKeepsVerdict(t *testing.T) {
	api := newStubAPI()
	api.updateErr = errors.New("authority unreachable")
	svc := newTestService(api, nil)

	verdict, err := svc.ValidateKey(context.Background(), testKey, "dev-1")

	require.NoError(t, err, "a persist failure must never surface as a validation error")
	assert.True(t, verdict.Valid)
	assert.Equal(t, 1, api.updateCalls)
}

func TestValidateKeyPolicyViolationPropagates(t *testing.T) {
	api := newStubAPI()
	api.records[testKey].Status = license.StatusSuspended
	svc := newTestService(api, nil)

	_, err := svc.ValidateKey(context.Background(), testKey, "")

	require.Error(t, err)
	assert.ErrorIs(t, err, license.ErrLicenseSuspended)
	assert.Zero(t, api.updateCalls, "a denied validation persists nothing")
}

func TestValidateKeyFetchErrorPropagates(t *testing.T) {
	api := newStubAPI()
	api.fetchErr = errors.New("connection refused")
	svc := newTestService(api, nil)

	_, err := svc.ValidateKey(context.Background(), testKey, "")

	require.Error(t, err)
	assert.ErrorIs(t, err, api.fetchErr)
}

func TestValidateKeyServesFromCache(t *testing.T) {
	api := newStubAPI()
	api.updateErr = errors.New("persist disabled for this test")

	cache := license.NewSnapshotCache(time.Minute, 10)
	defer cache.Stop()
	svc := newTestService(api, cache)

	_, err := svc.ValidateKey(context.Background(), testKey, "")
	require.NoError(t, err)
	_, err = svc.ValidateKey(context.Background(), testKey, "")
	require.NoError(t, err)

	assert.Equal(t, 1, api.fetchCalls, "second validation is served from the cache")
}

func TestValidateKeyPersistInvalidatesCache(t *testing.T) {
	api := newStubAPI()

	cache := license.NewSnapshotCache(time.Minute, 10)
	defer cache.Stop()
	svc := newTestService(api, cache)

	_, err := svc.ValidateKey(context.Background(), testKey, "")
	require.NoError(t, err)
	_, err = svc.ValidateKey(context.Background(), testKey, "")
	require.NoError(t, err)

	// Each successful persist drops the snapshot, so every validation
	// re-fetches and sees the authority's counter.
	assert.Equal(t, 2, api.fetchCalls)
	assert.Equal(t, 2, api.lastUpdate.Usage.TotalValidations)
}

func TestCacheStats(t *testing.T) {
	svc := newTestService(newStubAPI(), nil)
	assert.Equal(t, map[string]interface{}{"enabled": false}, svc.CacheStats())

	cache := license.NewSnapshotCache(time.Minute, 10)
	defer cache.Stop()
	svc = newTestService(newStubAPI(), cache)
	assert.Contains(t, svc.CacheStats(), "hit_count")
}
