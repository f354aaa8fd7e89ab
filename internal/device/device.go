// Package device produces the privacy-preserving identifier used to
// deduplicate validators.
//
// The identifier is never resolvable to a real-world identity: it is either
// an opaque token the client minted locally, or a hash over coarse browser
// signals. No email, name, or precise location ever feeds it.
package device

import (
	"encoding/hex"
	"strings"

	"github.com/mssola/useragent"
	"golang.org/x/crypto/blake2b"

	dErrors "watchpost/pkg/domain-errors"
)

// Identifier length bounds for storage as a device fingerprint.
const (
	MinIdentifierLength = 16
	MaxIdentifierLength = 256
)

// Signals are the coarse request attributes a server-side fingerprint is
// derived from. Minor browser version churn must not change the result, so
// only the major version participates.
type Signals struct {
	UserAgent      string
	AcceptLanguage string
	Platform       string
}

// Service computes stable device fingerprints. Disabled instances return
// empty fingerprints so callers can treat fingerprinting as optional.
type Service struct {
	enabled bool
}

func NewService(enabled bool) *Service {
	return &Service{enabled: enabled}
}

// ValidateIdentifier enforces the stored-identifier contract: an opaque
// string of 16 to 256 characters.
func ValidateIdentifier(identifier string) error {
	if len(identifier) < MinIdentifierLength {
		return dErrors.Newf(dErrors.CodeInvalidInput, "device identifier must be at least %d characters", MinIdentifierLength)
	}
	if len(identifier) > MaxIdentifierLength {
		return dErrors.Newf(dErrors.CodeInvalidInput, "device identifier must be at most %d characters", MaxIdentifierLength)
	}
	return nil
}

// ComputeFingerprint derives a stable identifier from request signals.
// The same device yields the same value across sessions; a major browser
// upgrade or OS change yields a new one. Returns 64 hex characters, inside
// the [MinIdentifierLength, MaxIdentifierLength] contract.
func (s *Service) ComputeFingerprint(signals Signals) string {
	if !s.enabled {
		return ""
	}

	ua := useragent.New(signals.UserAgent)
	browser, version := ua.Browser()

	parts := []string{
		browser,
		majorVersion(version),
		ua.OS(),
		ua.Platform(),
		primaryLanguage(signals.AcceptLanguage),
		strings.TrimSpace(signals.Platform),
	}

	sum := blake2b.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// CompareFingerprints reports whether two fingerprints match and whether a
// mismatch constitutes drift worth surfacing.
func (s *Service) CompareFingerprints(stored, observed string) (matched, drift bool) {
	if stored == "" || observed == "" {
		return false, false
	}
	if stored == observed {
		return true, false
	}
	return false, true
}

func majorVersion(version string) string {
	if idx := strings.IndexByte(version, '.'); idx >= 0 {
		return version[:idx]
	}
	return version
}

func primaryLanguage(acceptLanguage string) string {
	lang := acceptLanguage
	if idx := strings.IndexByte(lang, ','); idx >= 0 {
		lang = lang[:idx]
	}
	if idx := strings.IndexByte(lang, ';'); idx >= 0 {
		lang = lang[:idx]
	}
	return strings.ToLower(strings.TrimSpace(lang))
}
