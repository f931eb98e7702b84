// Package identity canonicalizes raw organization names and URLs into the
// comparison keys used by the entity resolver. Every function here is pure:
// same input, same output, no I/O.
package identity

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	listPrefixRe = regexp.MustCompile(`^\d+\.\s*`)
	boldRe       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe     = regexp.MustCompile(`\*(.+?)\*`)
	underscoreRe = regexp.MustCompile(`_(.+?)_`)
	punctRe      = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	protocolRe   = regexp.MustCompile(`^https?://`)
)

// DefaultLegalSuffixes are the legal-entity suffixes stripped by aggressive
// name normalization. The list is configuration; this is the fallback.
var DefaultLegalSuffixes = []string{
	"inc", "incorporated", "corporation", "corp", "llc", "ltd",
	"limited", "co", "company", "pbc", "pllc", "lp", "llp",
}

// DefaultDomainSuffixTokens are the tokens stripped from a domain base before
// substring comparison (brightwave.io vs brightwaveai.com).
var DefaultDomainSuffixTokens = []string{"ai", "io", "com", "co"}

// CleanName produces a display name from raw discovery output: numbered-list
// prefixes, markdown emphasis, stray bullets, and duplicated whitespace are
// removed, but case and punctuation inside the name are kept.
func CleanName(raw string) string {
	if raw == "" {
		return ""
	}
	name := norm.NFKC.String(raw)
	name = listPrefixRe.ReplaceAllString(name, "")
	name = boldRe.ReplaceAllString(name, "$1")
	name = italicRe.ReplaceAllString(name, "$1")
	name = underscoreRe.ReplaceAllString(name, "$1")
	name = strings.ReplaceAll(name, "*", "")
	name = strings.Join(strings.Fields(name), " ")
	name = strings.Trim(name, "-•· ")
	return strings.TrimSpace(name)
}

// NormalizeName lowercases a name and strips list prefixes, punctuation and
// duplicated whitespace, yielding the loose comparison form.
func NormalizeName(raw string) string {
	if raw == "" {
		return ""
	}
	name := norm.NFKC.String(raw)
	name = listPrefixRe.ReplaceAllString(name, "")
	name = strings.ToLower(strings.TrimSpace(name))
	name = punctRe.ReplaceAllString(name, "")
	return strings.Join(strings.Fields(name), " ")
}

// NormalizeURL strips protocol, a leading www label, and a trailing slash,
// and lowercases the remainder. It does not touch the path.
func NormalizeURL(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	u = protocolRe.ReplaceAllString(u, "")
	u = strings.TrimPrefix(u, "www.")
	return strings.TrimSuffix(u, "/")
}

// Domain reduces a URL to its registrable domain using the last-two-labels
// heuristic. Multi-label public suffixes (co.uk) are not special-cased.
func Domain(raw string) string {
	d := NormalizeURL(raw)
	if d == "" {
		return ""
	}
	d, _, _ = strings.Cut(d, "/")
	d, _, _ = strings.Cut(d, ":")
	parts := strings.Split(d, ".")
	if len(parts) >= 2 {
		return strings.Join(parts[len(parts)-2:], ".")
	}
	return d
}

// Normalizer applies the configurable heuristics: legal-suffix stripping for
// aggressive name keys and suffix-token stripping for domain bases.
type Normalizer struct {
	legalSuffixes []string
	domainTokens  []string
}

// NewNormalizer builds a Normalizer; nil slices fall back to the defaults.
func NewNormalizer(legalSuffixes, domainTokens []string) *Normalizer {
	if len(legalSuffixes) == 0 {
		legalSuffixes = DefaultLegalSuffixes
	}
	if len(domainTokens) == 0 {
		domainTokens = DefaultDomainSuffixTokens
	}
	return &Normalizer{legalSuffixes: legalSuffixes, domainTokens: domainTokens}
}

// NormalizeNameAggressive reduces a name to its tightest comparison key:
// NormalizeName plus removal of trailing legal-entity suffixes and all
// whitespace. "Bright Wave Inc." and "BrightWave" collapse to the same key,
// which is intended; the false-positive risk is accepted for records that
// lack a resolvable URL.
func (n *Normalizer) NormalizeNameAggressive(raw string) string {
	name := NormalizeName(raw)
	if name == "" {
		return ""
	}
	for changed := true; changed; {
		changed = false
		for _, suffix := range n.legalSuffixes {
			trimmed := strings.TrimSuffix(name, " "+suffix)
			if trimmed != name {
				name = strings.TrimSpace(trimmed)
				changed = true
			}
		}
	}
	return strings.ReplaceAll(name, " ", "")
}

// DomainBase extracts the first label of a domain and strips the common
// suffix tokens from it, for fuzzy same-entity comparison across TLDs.
func (n *Normalizer) DomainBase(domain string) string {
	base, _, _ := strings.Cut(domain, ".")
	for _, tok := range n.domainTokens {
		base = strings.ReplaceAll(base, tok, "")
	}
	return base
}
