// Package security provides the host-derived device fingerprint used by
// callers that do not supply one. Fingerprint acquisition is a
// collaborator of the validation engine, never part of it: the engine
// only ever sees an opaque string.
package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// FingerprintProvider yields an opaque device identifier for hardware
// binding enforcement.
type FingerprintProvider interface {
	Fingerprint() (string, error)
}

// HostFingerprint derives a stable fingerprint from host identity
// factors (hostname, primary MAC address, OS, architecture) and caches
// it. The derivation deliberately avoids OS-specific probing; the
// factors used here are portable and cheap.
type HostFingerprint struct {
	mu       sync.Mutex
	cached   string
	cachedAt time.Time
	ttl      time.Duration
}

// NewHostFingerprint creates a provider with a one-hour cache.
func NewHostFingerprint() *HostFingerprint {
	return &HostFingerprint{ttl: time.Hour}
}

// Fingerprint returns the host's fingerprint, computing it at most once
// per cache window.
func (h *HostFingerprint) Fingerprint() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cached != "" && time.Since(h.cachedAt) < h.ttl {
		return h.cached, nil
	}

	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("failed to get hostname: %w", err)
	}
	hostname = strings.ToLower(strings.TrimSpace(hostname))

	mac := primaryMAC()

	combined := strings.Join([]string{hostname, mac, runtime.GOOS, runtime.GOARCH}, "|")
	sum := sha256.Sum256([]byte(combined))

	h.cached = hex.EncodeToString(sum[:])
	h.cachedAt = time.Now()
	return h.cached, nil
}

// primaryMAC returns the hardware address of the first up, non-loopback
// interface, or a fixed fallback when none is available (containers,
// stripped-down hosts).
func primaryMAC() string {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "no-mac"
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if mac := iface.HardwareAddr.String(); mac != "" && mac != "00:00:00:00:00:00" {
			return mac
		}
	}

	for _, iface := range interfaces {
		if mac := iface.HardwareAddr.String(); mac != "" && mac != "00:00:00:00:00:00" {
			return mac
		}
	}

	return "no-mac"
}

// StaticFingerprint is a fixed-value provider for tests and for callers
// that manage device identity themselves.
type StaticFingerprint string

// Fingerprint returns the static value.
func (s StaticFingerprint) Fingerprint() (string, error) {
	return string(s), nil
}
