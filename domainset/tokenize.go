package domainset

import "unicode/utf8"

// separator is the label separator unit. A leading separator marks a suffix rule.
const separator = "."

// HostnameUnits appends the comparison units of hostname to units and returns the extended slice.
//
// Each label is one unit, and each '.' is a unit of its own, so that a leading separator
// (".example.com") is kept apart from no separator ("example.com").
// The units are substrings of hostname.
func HostnameUnits(hostname string, units []string) []string {
	start := 0
	for i := 0; i < len(hostname); i++ {
		if hostname[i] != '.' {
			continue
		}
		if i > start {
			units = append(units, hostname[start:i])
		}
		units = append(units, separator)
		start = i + 1
	}
	if start < len(hostname) {
		units = append(units, hostname[start:])
	}
	return units
}

// LiteralUnits appends one unit per character of s to units and returns the extended slice.
func LiteralUnits(s string, units []string) []string {
	for i := 0; i < len(s); {
		_, size := utf8.DecodeRuneInString(s[i:])
		units = append(units, s[i:i+size])
		i += size
	}
	return units
}

// isSuffixRule returns whether the rule starts with the separator and names a domain.
func isSuffixRule(rule string) bool {
	return len(rule) > 1 && rule[0] == '.'
}
