package parse

import (
	"net/netip"
	"strings"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"
)

// NormalizeHostname returns the canonical form of a hostname:
// lower-case ASCII, IDNs converted to punycode, without the trailing dot.
//
// IP literals, wildcards, and names that are not valid domain names are rejected.
func NormalizeHostname(s string) (string, bool) {
	s = strings.TrimSuffix(s, ".")
	if s == "" || len(s) > 253 {
		return "", false
	}

	if !isASCII(s) {
		ascii, err := idna.Lookup.ToASCII(s)
		if err != nil {
			return "", false
		}
		s = ascii
	}
	s = strings.ToLower(s)

	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case 'a' <= c && c <= 'z', '0' <= c && c <= '9', c == '-', c == '_', c == '.':
		default:
			return "", false
		}
	}

	if _, ok := dns.IsDomainName(s); !ok || s[0] == '.' {
		return "", false
	}

	if _, err := netip.ParseAddr(s); err == nil {
		return "", false
	}

	return strings.Clone(s), true
}

// NormalizeRule normalizes a hostname rule.
// Suffix rules may be written as ".example.com", "+.example.com", or "*.example.com",
// and are returned as ".example.com".
func NormalizeRule(rule string) (string, bool) {
	var suffix bool
	switch {
	case strings.HasPrefix(rule, "+."), strings.HasPrefix(rule, "*."):
		rule = rule[2:]
		suffix = true
	case strings.HasPrefix(rule, "."):
		rule = rule[1:]
		suffix = true
	}

	hostname, ok := NormalizeHostname(rule)
	if !ok {
		return "", false
	}
	if suffix {
		return "." + hostname, true
	}
	return hostname, true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
