package parse

import (
	"fmt"
	"strings"

	"github.com/database64128/rulesets-go/bytestrings"
)

const (
	dlcFullPrefix    = "full:"
	dlcDomainPrefix  = "domain:"
	dlcKeywordPrefix = "keyword:"
	dlcRegexpPrefix  = "regexp:"
	dlcIncludePrefix = "include:"
)

// parseDlc parses a v2fly/domain-list-community data file.
//
// Lines without a type prefix are domain rules. Attributes follow the value
// and start with '@'. If tag is not empty, only lines carrying the attribute
// "@"+tag are selected. Regular expressions and includes are skipped.
func parseDlc(text, tag string) (r Result, err error) {
	for line := range bytestrings.NonEmptyLines(text) {
		line = bytestrings.TrimComment(line)
		if line == "" {
			continue
		}

		value, attrs, _ := strings.Cut(line, "@")
		if value == "" {
			return r, fmt.Errorf("invalid line: %s", line)
		}
		value = strings.TrimSpace(value)

		if tag != "" && !hasDlcAttr(attrs, tag) {
			continue
		}

		switch {
		case strings.HasPrefix(value, dlcFullPrefix):
			r.addRule(&r.Hostnames, value[len(dlcFullPrefix):])
		case strings.HasPrefix(value, dlcDomainPrefix):
			r.addRule(&r.Hostnames, "."+value[len(dlcDomainPrefix):])
		case strings.HasPrefix(value, dlcKeywordPrefix):
			r.Keywords = append(r.Keywords, strings.Clone(value[len(dlcKeywordPrefix):]))
		case strings.HasPrefix(value, dlcRegexpPrefix), strings.HasPrefix(value, dlcIncludePrefix):
			r.Skipped++
		case strings.IndexByte(value, ':') != -1:
			return r, fmt.Errorf("invalid line: %s", line)
		default:
			r.addRule(&r.Hostnames, "."+value)
		}
	}
	return r, nil
}

// hasDlcAttr returns whether the attribute list (without the first '@') contains tag.
func hasDlcAttr(attrs, tag string) bool {
	for attr := range strings.SplitSeq(attrs, "@") {
		if strings.TrimSpace(attr) == tag {
			return true
		}
	}
	return false
}
