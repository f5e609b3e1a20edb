package domain

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/idna"
)

// MXRecord is a single mail-exchange entry. Lower priority = more preferred.
type MXRecord struct {
	Priority int    `json:"priority"`
	Host     string `json:"host"`
}

// DomainVerification is the cached outcome of an MX lookup for one domain.
// Records are sorted ascending by priority.
type DomainVerification struct {
	Domain    string
	HasMX     bool
	Records   []MXRecord
	CheckedAt time.Time
}

// NormalizeDomain lowercases, IDNA-encodes and validates a hostname.
// Returns ErrInvalidDomain for anything that is not a plausible mail domain.
func NormalizeDomain(raw string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(raw))
	d = strings.TrimSuffix(d, ".")
	if d == "" {
		return "", ErrInvalidDomain
	}

	ascii, err := idna.Lookup.ToASCII(d)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDomain, raw)
	}

	// A mail domain needs at least one dot and no scheme/path/port noise.
	if !strings.Contains(ascii, ".") || strings.ContainsAny(ascii, "/:@ ") {
		return "", fmt.Errorf("%w: %q", ErrInvalidDomain, raw)
	}
	if len(ascii) > 253 {
		return "", fmt.Errorf("%w: %q", ErrInvalidDomain, raw)
	}
	for _, label := range strings.Split(ascii, ".") {
		if label == "" || len(label) > 63 {
			return "", fmt.Errorf("%w: %q", ErrInvalidDomain, raw)
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return "", fmt.Errorf("%w: %q", ErrInvalidDomain, raw)
		}
	}
	return ascii, nil
}
