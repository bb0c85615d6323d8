package domainset

import (
	"iter"
	"maps"
	"slices"
)

// MaxLinearDomains is the maximum number of exact rules under which a linear matcher can outperform a map matcher.
const MaxLinearDomains = 16

// DomainLinearMatcher matches exact rules using linear search.
// It is faster than [DomainMapMatcher] when the number of rules is
// no greater than [MaxLinearDomains].
type DomainLinearMatcher []string

// DomainLinearMatcherFromSeq creates a [DomainLinearMatcher] from a sequence of exact rules.
func DomainLinearMatcherFromSeq(domainCount int, domainSeq iter.Seq[string]) DomainLinearMatcher {
	dlm := make(DomainLinearMatcher, 0, domainCount)
	return slices.AppendSeq(dlm, domainSeq)
}

// Match implements [Matcher.Match].
func (dlm DomainLinearMatcher) Match(hostname string) bool {
	return slices.Contains(dlm, hostname)
}

// Insert implements [MatcherBuilder.Insert].
func (dlmp *DomainLinearMatcher) Insert(rule string) {
	*dlmp = append(*dlmp, rule)
}

// Clear implements [MatcherBuilder.Clear].
func (dlmp *DomainLinearMatcher) Clear() {
	*dlmp = (*dlmp)[:0]
}

// Rules implements [MatcherBuilder.Rules].
func (dlm DomainLinearMatcher) Rules() (int, iter.Seq[string]) {
	return len(dlm), slices.Values(dlm)
}

// MatcherCount implements [MatcherBuilder.MatcherCount].
func (dlm DomainLinearMatcher) MatcherCount() int {
	if len(dlm) == 0 {
		return 0
	}
	return 1
}

// AppendTo implements [MatcherBuilder.AppendTo].
func (dlmp *DomainLinearMatcher) AppendTo(matchers []Matcher) ([]Matcher, error) {
	dlm := *dlmp

	if len(dlm) == 0 {
		return matchers, nil
	}

	if len(dlm) > MaxLinearDomains {
		dmm := DomainMapMatcherFromSeq(dlm.Rules())
		return dmm.AppendTo(matchers)
	}

	return append(matchers, dlmp), nil
}

// DomainMapMatcher matches exact rules using a map.
// It is faster than [DomainLinearMatcher] when the number of rules is
// greater than [MaxLinearDomains].
type DomainMapMatcher map[string]struct{}

// NewDomainMapMatcher creates a [DomainMapMatcher] with the specified initial capacity.
func NewDomainMapMatcher(capacity int) MatcherBuilder {
	dmm := make(DomainMapMatcher, capacity)
	return &dmm
}

// DomainMapMatcherFromSeq creates a [DomainMapMatcher] from a sequence of exact rules.
func DomainMapMatcherFromSeq(domainCount int, domainSeq iter.Seq[string]) DomainMapMatcher {
	dmm := make(DomainMapMatcher, domainCount)
	for domain := range domainSeq {
		dmm.Insert(domain)
	}
	return dmm
}

// Match implements [Matcher.Match].
func (dmm DomainMapMatcher) Match(hostname string) bool {
	_, ok := dmm[hostname]
	return ok
}

// Insert implements [MatcherBuilder.Insert].
func (dmm DomainMapMatcher) Insert(rule string) {
	dmm[rule] = struct{}{}
}

// Clear implements [MatcherBuilder.Clear].
func (dmm DomainMapMatcher) Clear() {
	clear(dmm)
}

// Rules implements [MatcherBuilder.Rules].
func (dmm DomainMapMatcher) Rules() (int, iter.Seq[string]) {
	return len(dmm), maps.Keys(dmm)
}

// MatcherCount implements [MatcherBuilder.MatcherCount].
func (dmm DomainMapMatcher) MatcherCount() int {
	if len(dmm) == 0 {
		return 0
	}
	return 1
}

// AppendTo implements [MatcherBuilder.AppendTo].
func (dmmp *DomainMapMatcher) AppendTo(matchers []Matcher) ([]Matcher, error) {
	dmm := *dmmp

	if len(dmm) == 0 {
		return matchers, nil
	}

	if len(dmm) <= MaxLinearDomains {
		dlm := DomainLinearMatcherFromSeq(dmm.Rules())
		return dlm.AppendTo(matchers)
	}

	return append(matchers, dmmp), nil
}
