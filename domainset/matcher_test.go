package domainset

import (
	"slices"
	"testing"
)

func testMatcher(t *testing.T, m Matcher, hostname string, expectedResult bool) {
	t.Helper()
	if m.Match(hostname) != expectedResult {
		t.Errorf("%s should return %v", hostname, expectedResult)
	}
}

func testMatcherBuilderRules(t *testing.T, mb MatcherBuilder, expectedRules []string) {
	t.Helper()
	count, seq := mb.Rules()
	if count != len(expectedRules) {
		t.Errorf("count = %d, want %d", count, len(expectedRules))
	}
	rules := slices.Sorted(seq)
	expected := slices.Sorted(slices.Values(expectedRules))
	if !slices.Equal(rules, expected) {
		t.Errorf("rules = %v, want %v", rules, expected)
	}
}
