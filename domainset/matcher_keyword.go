package domainset

import (
	"iter"
	"slices"
	"strings"
)

// MaxLinearKeywords is the maximum number of keyword rules under which
// a linear matcher can outperform a [KeywordAutomaton].
const MaxLinearKeywords = 4

// KeywordLinearMatcher matches keyword rules by iterating over the keywords.
type KeywordLinearMatcher []string

// NewKeywordLinearMatcher creates a [KeywordLinearMatcher] with the specified initial capacity.
func NewKeywordLinearMatcher(capacity int) MatcherBuilder {
	klm := make(KeywordLinearMatcher, 0, capacity)
	return &klm
}

// KeywordLinearMatcherFromSeq creates a [KeywordLinearMatcher] from a sequence of keyword rules.
func KeywordLinearMatcherFromSeq(keywordCount int, keywordSeq iter.Seq[string]) KeywordLinearMatcher {
	klm := make(KeywordLinearMatcher, 0, keywordCount)
	return slices.AppendSeq(klm, keywordSeq)
}

// Match implements [Matcher.Match].
func (klm KeywordLinearMatcher) Match(hostname string) bool {
	for _, keyword := range klm {
		if strings.Contains(hostname, keyword) {
			return true
		}
	}
	return false
}

// Insert implements [MatcherBuilder.Insert].
func (klmp *KeywordLinearMatcher) Insert(rule string) {
	*klmp = append(*klmp, rule)
}

// Clear implements [MatcherBuilder.Clear].
func (klmp *KeywordLinearMatcher) Clear() {
	*klmp = (*klmp)[:0]
}

// Rules implements [MatcherBuilder.Rules].
func (klm KeywordLinearMatcher) Rules() (int, iter.Seq[string]) {
	return len(klm), slices.Values(klm)
}

// MatcherCount implements [MatcherBuilder.MatcherCount].
func (klm KeywordLinearMatcher) MatcherCount() int {
	if len(klm) == 0 {
		return 0
	}
	return 1
}

// AppendTo implements [MatcherBuilder.AppendTo].
//
// Above [MaxLinearKeywords] rules, a [KeywordAutomaton] is appended instead.
func (klmp *KeywordLinearMatcher) AppendTo(matchers []Matcher) ([]Matcher, error) {
	klm := *klmp

	if len(klm) == 0 {
		return matchers, nil
	}

	if len(klm) > MaxLinearKeywords {
		return append(matchers, KeywordAutomatonFromSeq(klm.Rules())), nil
	}

	return append(matchers, klmp), nil
}

// NewKeywordMatcher returns the fastest [Matcher] for the keywords,
// or nil if there are no keywords.
func NewKeywordMatcher(keywords []string) Matcher {
	klm := KeywordLinearMatcher(keywords)
	matchers, _ := klm.AppendTo(nil)
	if len(matchers) == 0 {
		return nil
	}
	return matchers[0]
}
