package pattern

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/scoutlabs/mailscout/internal/domain"
)

var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeName lowercases, strips diacritics and drops everything that is
// not a-z or 0-9. "José-María" becomes "josemaria".
func normalizeName(raw string) string {
	folded, _, err := transform.String(asciiFold, strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		folded = strings.ToLower(raw)
	}

	var b strings.Builder
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Generate applies every pattern in the canonical table to the given name and
// returns one candidate per applicable tag, in table order. Patterns that
// need a name field which normalized to the empty string are skipped; if both
// fields are empty the result is empty. Deterministic and never fails.
func Generate(firstName, lastName, emailDomain string) []domain.EmailCandidate {
	first := normalizeName(firstName)
	last := normalizeName(lastName)

	p := parts{first: first, last: last}
	if first != "" {
		p.fInitial = first[:1]
	}
	if last != "" {
		p.lInitial = last[:1]
	}

	out := make([]domain.EmailCandidate, 0, len(table))
	for _, pat := range table {
		if pat.needsFirst && first == "" {
			continue
		}
		if pat.needsLast && last == "" {
			continue
		}
		out = append(out, domain.EmailCandidate{
			Email:      pat.build(p) + "@" + emailDomain,
			Pattern:    pat.Tag,
			Confidence: pat.Confidence,
		})
	}
	return out
}
