package domainset

import (
	"iter"
	"maps"
	"slices"
)

// MaxLinearSuffixes is the maximum number of suffix rules under which a linear matcher can outperform a trie matcher.
const MaxLinearSuffixes = 4

// SuffixLinearMatcher matches suffix rules by iterating over the suffixes.
// It is faster than a compact [Trie] when the number of rules is
// no greater than [MaxLinearSuffixes].
type SuffixLinearMatcher []string

// NewSuffixLinearMatcher creates a [SuffixLinearMatcher] with the specified initial capacity.
func NewSuffixLinearMatcher(capacity int) MatcherBuilder {
	slm := make(SuffixLinearMatcher, 0, capacity)
	return &slm
}

// Match implements [Matcher.Match].
func (slm SuffixLinearMatcher) Match(hostname string) bool {
	for _, suffix := range slm {
		if matchDomainSuffix(hostname, suffix) {
			return true
		}
	}
	return false
}

// Insert implements [MatcherBuilder.Insert].
func (slmp *SuffixLinearMatcher) Insert(rule string) {
	*slmp = append(*slmp, rule)
}

// Clear implements [MatcherBuilder.Clear].
func (slmp *SuffixLinearMatcher) Clear() {
	*slmp = (*slmp)[:0]
}

// Rules implements [MatcherBuilder.Rules].
func (slm SuffixLinearMatcher) Rules() (int, iter.Seq[string]) {
	return len(slm), slices.Values(slm)
}

// MatcherCount implements [MatcherBuilder.MatcherCount].
func (slm SuffixLinearMatcher) MatcherCount() int {
	if len(slm) == 0 {
		return 0
	}
	return 1
}

// AppendTo implements [MatcherBuilder.AppendTo].
func (slmp *SuffixLinearMatcher) AppendTo(matchers []Matcher) ([]Matcher, error) {
	slm := *slmp

	if len(slm) == 0 {
		return matchers, nil
	}

	if len(slm) > MaxLinearSuffixes {
		return append(matchers, SuffixTrieFromSeq(slm.Rules())), nil
	}

	return append(matchers, slmp), nil
}

func matchDomainSuffix(hostname, suffix string) bool {
	return hostname == suffix || len(hostname) > len(suffix) && hostname[len(hostname)-len(suffix)-1] == '.' && hostname[len(hostname)-len(suffix):] == suffix
}

// SuffixTrieFromSeq builds a compact [Trie] matching the suffix rules.
func SuffixTrieFromSeq(suffixCount int, suffixSeq iter.Seq[string]) *Trie {
	t := NewTrie(ModeCompact)
	t.nodes = slices.Grow(t.nodes, 2*suffixCount)
	for suffix := range suffixSeq {
		t.Add(separator + suffix)
	}
	return t
}

// SuffixMapMatcher matches suffix rules using a single map.
type SuffixMapMatcher map[string]struct{}

// NewSuffixMapMatcher creates a [SuffixMapMatcher] with the specified initial capacity.
func NewSuffixMapMatcher(capacity int) MatcherBuilder {
	smm := make(SuffixMapMatcher, capacity)
	return &smm
}

// SuffixMapMatcherFromSlice creates a [SuffixMapMatcher] from a slice of suffix rules.
func SuffixMapMatcherFromSlice(suffixes []string) SuffixMapMatcher {
	smm := make(SuffixMapMatcher, len(suffixes))
	for _, suffix := range suffixes {
		smm.Insert(suffix)
	}
	return smm
}

// Match implements [Matcher.Match].
func (smm SuffixMapMatcher) Match(hostname string) bool {
	for i := len(hostname) - 1; i >= 0; i-- {
		if hostname[i] != '.' {
			continue
		}
		if _, ok := smm[hostname[i+1:]]; ok {
			return true
		}
	}
	_, ok := smm[hostname]
	return ok
}

// Insert implements [MatcherBuilder.Insert].
func (smm SuffixMapMatcher) Insert(rule string) {
	smm[rule] = struct{}{}
}

// Clear implements [MatcherBuilder.Clear].
func (smm SuffixMapMatcher) Clear() {
	clear(smm)
}

// Rules implements [MatcherBuilder.Rules].
func (smm SuffixMapMatcher) Rules() (int, iter.Seq[string]) {
	return len(smm), maps.Keys(smm)
}

// MatcherCount implements [MatcherBuilder.MatcherCount].
func (smm SuffixMapMatcher) MatcherCount() int {
	if len(smm) == 0 {
		return 0
	}
	return 1
}

// AppendTo implements [MatcherBuilder.AppendTo].
func (smmp *SuffixMapMatcher) AppendTo(matchers []Matcher) ([]Matcher, error) {
	smm := *smmp

	if len(smm) == 0 {
		return matchers, nil
	}

	if len(smm) <= MaxLinearSuffixes {
		slm := SuffixLinearMatcher(slices.Collect(maps.Keys(smm)))
		return slm.AppendTo(matchers)
	}

	return append(matchers, smmp), nil
}
