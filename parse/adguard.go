package parse

import (
	"strings"

	"github.com/database64128/rulesets-go/bytestrings"
)

// parseAdGuard parses the basic DNS rules of the AdGuard filter syntax.
//
//	||example.com^     blocks example.com and its subdomains
//	|example.com^      blocks example.com only
//	example.com        blocks example.com only
//	@@||example.com^   exception for example.com and its subdomains
//
// Cosmetic rules, regular expressions, wildcards, paths, and rules with modifiers
// other than $important are skipped.
func parseAdGuard(text string) (r Result) {
	for line := range bytestrings.NonEmptyLines(text) {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '!' || line[0] == '#' || line[0] == '[' {
			continue
		}

		dst := &r.Hostnames
		if rest, ok := strings.CutPrefix(line, "@@"); ok {
			dst = &r.Whitelist
			line = rest
		}

		rule, ok := adGuardRule(line)
		if !ok {
			r.Skipped++
			continue
		}
		r.addRule(dst, rule)
	}
	return r
}

// adGuardRule converts a network rule without the exception marker to a hostname rule.
func adGuardRule(line string) (string, bool) {
	if strings.Contains(line, "##") || strings.Contains(line, "#@#") || strings.Contains(line, "#?#") || strings.Contains(line, "#$#") {
		return "", false
	}

	if i := strings.IndexByte(line, '$'); i != -1 {
		if line[i+1:] != "important" {
			return "", false
		}
		line = line[:i]
	}

	if len(line) > 1 && line[0] == '/' && line[len(line)-1] == '/' {
		return "", false
	}

	var suffix bool
	switch {
	case strings.HasPrefix(line, "||"):
		line = line[2:]
		suffix = true
	case strings.HasPrefix(line, "|"):
		line = line[1:]
	}

	line = strings.TrimSuffix(line, "|")
	line = strings.TrimSuffix(line, "^")

	if line == "" || strings.ContainsAny(line, "*/:|^?=&") {
		return "", false
	}

	if suffix {
		return "." + line, true
	}
	return line, true
}
