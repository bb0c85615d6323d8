// Package parse turns upstream rule lists into compiled hostname rules and IP prefixes.
//
// Compiled hostname rules follow the line convention of package domainset:
// "example.com" matches the domain itself, ".example.com" also matches every subdomain.
package parse

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/database64128/rulesets-go/bytestrings"
	"github.com/database64128/rulesets-go/domainset"
)

// Format is the format of a source rule list.
type Format string

const (
	// FormatPlain is one hostname rule per line. A leading "." or "+." or "*."
	// makes the rule match subdomains as well.
	FormatPlain Format = "plain"

	// FormatHosts is the hosts file format. Every hostname after the address is an exact rule.
	FormatHosts Format = "hosts"

	// FormatAdGuard is the DNS subset of the AdGuard filter syntax.
	FormatAdGuard Format = "adguard"

	// FormatDlc is the v2fly/domain-list-community data format.
	FormatDlc Format = "dlc"

	// FormatDomainSet is the domain set text format with an optional capacity hint.
	FormatDomainSet Format = "domainset"

	// FormatCIDR is one IP prefix or address per line.
	FormatCIDR Format = "cidr"
)

// Formats lists all supported formats.
var Formats = []Format{FormatPlain, FormatHosts, FormatAdGuard, FormatDlc, FormatDomainSet, FormatCIDR}

// Valid returns whether the format is supported.
func (f Format) Valid() bool {
	switch f {
	case FormatPlain, FormatHosts, FormatAdGuard, FormatDlc, FormatDomainSet, FormatCIDR:
		return true
	default:
		return false
	}
}

// IsDomain returns whether the format produces hostname rules.
func (f Format) IsDomain() bool {
	return f.Valid() && f != FormatCIDR
}

// Options are format-specific parser options.
type Options struct {
	// Tag selects dlc lines with the given attribute. If empty, all lines are selected.
	Tag string
}

// Result is the output of parsing one source.
//
// All strings are owned by the result and do not alias the parsed text.
type Result struct {
	// Hostnames are the compiled hostname rules.
	Hostnames []string

	// Whitelist are compiled hostname rules to subtract from the ruleset.
	Whitelist []string

	// Keywords are substrings that exclude any hostname containing them.
	Keywords []string

	// Prefixes are the parsed IP prefixes.
	Prefixes []netip.Prefix

	// Skipped is the number of lines that were not understood or not representable.
	Skipped int
}

// Len returns the number of rules in the result.
func (r *Result) Len() int {
	return len(r.Hostnames) + len(r.Whitelist) + len(r.Keywords) + len(r.Prefixes)
}

func (r *Result) addRule(dst *[]string, rule string) {
	rule, ok := NormalizeRule(rule)
	if !ok {
		r.Skipped++
		return
	}
	*dst = append(*dst, rule)
}

// Parse parses text in the given format.
//
// Lines that cannot be represented are counted in [Result.Skipped]. An error is returned
// only when the text as a whole is malformed for the format.
func Parse(format Format, text string, opts Options) (Result, error) {
	switch format {
	case FormatPlain:
		return parsePlain(text), nil
	case FormatHosts:
		return parseHosts(text), nil
	case FormatAdGuard:
		return parseAdGuard(text), nil
	case FormatDlc:
		return parseDlc(text, opts.Tag)
	case FormatDomainSet:
		return parseDomainSet(text)
	case FormatCIDR:
		return parseCIDR(text), nil
	default:
		return Result{}, fmt.Errorf("unknown format: %q", format)
	}
}

func parsePlain(text string) (r Result) {
	for line := range bytestrings.NonEmptyLines(text) {
		line = bytestrings.TrimComment(line)
		if line == "" {
			continue
		}
		r.addRule(&r.Hostnames, line)
	}
	return r
}

func parseDomainSet(text string) (r Result, err error) {
	_, err = domainset.ParseText(text, func(kind domainset.RuleKind, rule string) {
		switch kind {
		case domainset.RuleDomain:
			r.addRule(&r.Hostnames, rule)
		case domainset.RuleSuffix:
			r.addRule(&r.Hostnames, "."+rule)
		case domainset.RuleKeyword:
			r.Keywords = append(r.Keywords, strings.Clone(rule))
		default:
			r.Skipped++
		}
	})
	return r, err
}

func parseCIDR(text string) (r Result) {
	for line := range bytestrings.NonEmptyLines(text) {
		line = bytestrings.TrimComment(line)
		if line == "" {
			continue
		}
		prefix, ok := ParsePrefix(line)
		if !ok {
			r.Skipped++
			continue
		}
		r.Prefixes = append(r.Prefixes, prefix)
	}
	return r
}

// ParsePrefix parses an IP prefix or a single address, which becomes a full-length prefix.
// The returned prefix is masked.
func ParsePrefix(s string) (netip.Prefix, bool) {
	if strings.IndexByte(s, '/') == -1 {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return netip.Prefix{}, false
		}
		addr = addr.Unmap()
		return netip.PrefixFrom(addr, addr.BitLen()), true
	}
	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, false
	}
	return prefix.Masked(), true
}
