package domainset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/database64128/rulesets-go/bytestrings"
)

// The text format is shared with shadowsocks-go domain sets.
const (
	capacityHintPrefix    = "# shadowsocks-go domain set capacity hint "
	capacityHintPrefixLen = len(capacityHintPrefix)
	capacityHintSuffix    = "DSKR"
)

const (
	domainPrefix     = "domain:"
	suffixPrefix     = "suffix:"
	keywordPrefix    = "keyword:"
	regexpPrefix     = "regexp:"
	domainPrefixLen  = len(domainPrefix)
	suffixPrefixLen  = len(suffixPrefix)
	keywordPrefixLen = len(keywordPrefix)
	regexpPrefixLen  = len(regexpPrefix)
)

var errEmptyFile = errors.New("empty file")

// RuleKind is the kind of a rule line in the text format.
type RuleKind uint8

const (
	RuleDomain RuleKind = iota
	RuleSuffix
	RuleKeyword
	RuleRegexp
)

// String implements [fmt.Stringer.String].
func (k RuleKind) String() string {
	switch k {
	case RuleDomain:
		return "domain"
	case RuleSuffix:
		return "suffix"
	case RuleKeyword:
		return "keyword"
	case RuleRegexp:
		return "regexp"
	default:
		return "RuleKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// WriteText writes compiled rules and keywords in the text format,
// preceded by a capacity hint line.
func WriteText(w io.Writer, rules, keywords []string) error {
	var suffixCount int
	for _, rule := range rules {
		if isSuffixRule(rule) {
			suffixCount++
		}
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s%d %d %d %d %s\n", capacityHintPrefix, len(rules)-suffixCount, suffixCount, len(keywords), 0, capacityHintSuffix)

	for _, rule := range rules {
		if isSuffixRule(rule) {
			continue
		}
		bw.WriteString(domainPrefix)
		bw.WriteString(rule)
		bw.WriteByte('\n')
	}

	for _, rule := range rules {
		if !isSuffixRule(rule) {
			continue
		}
		bw.WriteString(suffixPrefix)
		bw.WriteString(rule[1:])
		bw.WriteByte('\n')
	}

	for _, k := range keywords {
		bw.WriteString(keywordPrefix)
		bw.WriteString(k)
		bw.WriteByte('\n')
	}

	return bw.Flush()
}

// ParseText parses text in the text format and calls fn for every rule.
// It returns the capacity hint, which is all zeros if the text has none.
func ParseText(text string, fn func(kind RuleKind, rule string)) ([4]int, error) {
	line, text := bytestrings.NextNonEmptyLine(text)
	if len(line) == 0 {
		return [4]int{}, errEmptyFile
	}

	hint, found, err := ParseCapacityHint(line)
	if err != nil {
		return hint, err
	}
	if found {
		line, text = bytestrings.NextNonEmptyLine(text)
	}

	for len(line) > 0 {
		switch {
		case line[0] == '#':
		case strings.HasPrefix(line, domainPrefix):
			fn(RuleDomain, line[domainPrefixLen:])
		case strings.HasPrefix(line, suffixPrefix):
			fn(RuleSuffix, line[suffixPrefixLen:])
		case strings.HasPrefix(line, keywordPrefix):
			fn(RuleKeyword, line[keywordPrefixLen:])
		case strings.HasPrefix(line, regexpPrefix):
			fn(RuleRegexp, line[regexpPrefixLen:])
		default:
			return hint, fmt.Errorf("invalid line: %s", line)
		}
		line, text = bytestrings.NextNonEmptyLine(text)
	}

	return hint, nil
}

// ParseCapacityHint parses a capacity hint line.
// found is false if the line is not a capacity hint.
func ParseCapacityHint(line string) (hint [4]int, found bool, err error) {
	found = len(line) > capacityHintPrefixLen && line[:capacityHintPrefixLen] == capacityHintPrefix
	if !found {
		return
	}

	h := line[capacityHintPrefixLen:]

	for i := range hint {
		delimiterIndex := strings.IndexByte(h, ' ')
		if delimiterIndex == -1 {
			return hint, found, fmt.Errorf("bad capacity hint: %s", line)
		}

		c, err := strconv.Atoi(h[:delimiterIndex])
		if err != nil {
			return hint, found, fmt.Errorf("bad capacity hint: %s: %w", line, err)
		}
		if c < 0 {
			return hint, found, fmt.Errorf("bad capacity hint: %s: capacity cannot be negative", line)
		}
		hint[i] = c
		h = h[delimiterIndex+1:]
	}

	if h != capacityHintSuffix {
		return hint, found, fmt.Errorf("bad capacity hint: %s: expected suffix '%s'", line, capacityHintSuffix)
	}

	return hint, found, nil
}
