// Package output writes compiled rulesets in the formats understood by proxy clients.
package output

import (
	"bufio"
	"fmt"
	"io"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"

	"github.com/database64128/rulesets-go/atomicfile"
)

// Kind is an output format.
type Kind string

const (
	// KindSurgeDomainSet is the Surge DOMAIN-SET format: "example.com" and ".example.com" lines.
	KindSurgeDomainSet Kind = "surge-domainset"

	// KindSurgeRuleSet is the Surge RULE-SET format with DOMAIN, DOMAIN-SUFFIX,
	// DOMAIN-KEYWORD, IP-CIDR, and IP-CIDR6 rules.
	KindSurgeRuleSet Kind = "surge-ruleset"

	// KindClashDomainSet is the Clash domain rule provider text format: "example.com" and "+.example.com" lines.
	KindClashDomainSet Kind = "clash-domainset"

	// KindClashIPCIDR is the Clash ipcidr rule provider text format.
	KindClashIPCIDR Kind = "clash-ipcidr"

	// KindSingBox is the sing-box source rule-set format, version 2.
	KindSingBox Kind = "singbox"

	// KindDomainSet is the domain set text format with a capacity hint.
	KindDomainSet Kind = "domainset"
)

// Kinds lists all output kinds.
var Kinds = []Kind{KindSurgeDomainSet, KindSurgeRuleSet, KindClashDomainSet, KindClashIPCIDR, KindSingBox, KindDomainSet}

// Valid returns whether the kind is supported.
func (k Kind) Valid() bool {
	switch k {
	case KindSurgeDomainSet, KindSurgeRuleSet, KindClashDomainSet, KindClashIPCIDR, KindSingBox, KindDomainSet:
		return true
	default:
		return false
	}
}

// SupportsDomains returns whether the kind can carry hostname rules.
func (k Kind) SupportsDomains() bool {
	return k.Valid() && k != KindClashIPCIDR
}

// SupportsKeywords returns whether the kind can carry keyword rules.
func (k Kind) SupportsKeywords() bool {
	switch k {
	case KindSurgeRuleSet, KindSingBox, KindDomainSet:
		return true
	default:
		return false
	}
}

// SupportsPrefixes returns whether the kind can carry IP prefixes.
func (k Kind) SupportsPrefixes() bool {
	switch k {
	case KindSurgeRuleSet, KindClashIPCIDR, KindSingBox:
		return true
	default:
		return false
	}
}

// Ext returns the file name extension of the kind.
func (k Kind) Ext() string {
	switch k {
	case KindSingBox:
		return ".json"
	case KindSurgeRuleSet:
		return ".conf"
	default:
		return ".txt"
	}
}

// Path returns the path of the output file for the named ruleset under dir.
func (k Kind) Path(dir, name string) string {
	return filepath.Join(dir, string(k), name+k.Ext())
}

// Ruleset is a compiled ruleset ready for writing.
type Ruleset struct {
	Name        string
	Title       string
	Description string

	// Rules are compiled hostname rules. A leading dot marks a suffix rule.
	Rules []string

	// Keywords are keyword rules.
	Keywords []string

	// Prefixes are IP prefixes.
	Prefixes []netip.Prefix
}

// Len returns the number of rules in the ruleset.
func (rs *Ruleset) Len() int {
	return len(rs.Rules) + len(rs.Keywords) + len(rs.Prefixes)
}

// Write writes the ruleset to w in the given kind.
// Rules the kind cannot carry are left out.
func Write(w io.Writer, kind Kind, rs *Ruleset) error {
	switch kind {
	case KindSurgeDomainSet:
		return writeSurgeDomainSet(w, rs)
	case KindSurgeRuleSet:
		return writeSurgeRuleSet(w, rs)
	case KindClashDomainSet:
		return writeClashDomainSet(w, rs)
	case KindClashIPCIDR:
		return writeClashIPCIDR(w, rs)
	case KindSingBox:
		return writeSingBox(w, rs)
	case KindDomainSet:
		return writeDomainSet(w, rs)
	default:
		return fmt.Errorf("unknown output kind: %q", kind)
	}
}

// WriteFile atomically writes the ruleset to its path under dir and returns the path.
func WriteFile(dir string, kind Kind, rs *Ruleset) (string, error) {
	path := kind.Path(dir, rs.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := atomicfile.WriteFile(path, 0o644, func(w io.Writer) error {
		return Write(w, kind, rs)
	}); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// writeHeader writes comment lines describing the ruleset.
func writeHeader(bw *bufio.Writer, rs *Ruleset, count int) {
	title := rs.Title
	if title == "" {
		title = rs.Name
	}
	bw.WriteString("# ")
	bw.WriteString(title)
	bw.WriteByte('\n')
	if rs.Description != "" {
		bw.WriteString("# ")
		bw.WriteString(rs.Description)
		bw.WriteByte('\n')
	}
	bw.WriteString("# Entries: ")
	bw.WriteString(strconv.Itoa(count))
	bw.WriteByte('\n')
}
