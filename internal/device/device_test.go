package device

import (
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "watchpost/pkg/domain-errors"
)

// DeviceServiceSuite tests fingerprint derivation and the identifier
// contract. Deterministic hashing is a pure function invariant not covered
// by handler tests.
type DeviceServiceSuite struct {
	suite.Suite
	svc *Service
}

func (s *DeviceServiceSuite) SetupTest() {
	s.svc = NewService(true)
}

func TestDeviceServiceSuite(t *testing.T) {
	suite.Run(t, new(DeviceServiceSuite))
}

func (s *DeviceServiceSuite) TestFingerprintStability() {
	s.Run("disabled service returns empty fingerprint", func() {
		disabled := NewService(false)
		fp := disabled.ComputeFingerprint(Signals{UserAgent: "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0.0.0"})
		s.Empty(fp)
	})

	s.Run("same signals yield deterministic fingerprint", func() {
		signals := Signals{
			UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			AcceptLanguage: "en-US,en;q=0.9",
		}

		fp1 := s.svc.ComputeFingerprint(signals)
		fp2 := s.svc.ComputeFingerprint(signals)

		s.Equal(fp1, fp2)
		s.Len(fp1, 64) // BLAKE2b-256 hex
	})

	s.Run("fingerprint length satisfies identifier contract", func() {
		fp := s.svc.ComputeFingerprint(Signals{UserAgent: "Mozilla/5.0"})
		s.NoError(ValidateIdentifier(fp))
	})

	s.Run("minor version changes do not affect fingerprint", func() {
		base := Signals{AcceptLanguage: "en-US"}
		a, b := base, base
		a.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.109 Safari/537.36"
		b.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.224 Safari/537.36"

		s.Equal(s.svc.ComputeFingerprint(a), s.svc.ComputeFingerprint(b))
	})

	s.Run("major version changes affect fingerprint", func() {
		base := Signals{AcceptLanguage: "en-US"}
		a, b := base, base
		a.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
		b.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

		s.NotEqual(s.svc.ComputeFingerprint(a), s.svc.ComputeFingerprint(b))
	})

	s.Run("different language changes fingerprint", func() {
		ua := "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
		a := Signals{UserAgent: ua, AcceptLanguage: "en-US,en;q=0.9"}
		b := Signals{UserAgent: ua, AcceptLanguage: "de-DE,de;q=0.9"}

		s.NotEqual(s.svc.ComputeFingerprint(a), s.svc.ComputeFingerprint(b))
	})
}

func (s *DeviceServiceSuite) TestIdentifierContract() {
	s.Run("too short is rejected", func() {
		err := ValidateIdentifier("short-token")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("too long is rejected", func() {
		long := make([]byte, MaxIdentifierLength+1)
		for i := range long {
			long[i] = 'a'
		}
		err := ValidateIdentifier(string(long))
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("bounds are inclusive", func() {
		s.NoError(ValidateIdentifier("0123456789abcdef"))
		max := make([]byte, MaxIdentifierLength)
		for i := range max {
			max[i] = 'x'
		}
		s.NoError(ValidateIdentifier(string(max)))
	})
}

func (s *DeviceServiceSuite) TestFingerprintComparison() {
	s.Run("mismatch reports drift", func() {
		matched, drift := s.svc.CompareFingerprints("a", "b")
		s.False(matched)
		s.True(drift)
	})

	s.Run("match reports no drift", func() {
		matched, drift := s.svc.CompareFingerprints("abc", "abc")
		s.True(matched)
		s.False(drift)
	})

	s.Run("missing side is neither match nor drift", func() {
		matched, drift := s.svc.CompareFingerprints("", "abc")
		s.False(matched)
		s.False(drift)
	})
}
