// Package apexsort orders hostname rules so that rules for the same registrable domain stay together.
package apexsort

import (
	"cmp"
	"slices"
	"strings"

	"github.com/database64128/rulesets-go/cache"
	"golang.org/x/net/publicsuffix"
)

// DefaultCacheSize is the number of apex lookups a [Sorter] remembers by default.
const DefaultCacheSize = 1 << 16

// Sorter sorts hostname rules by apex domain.
//
// Sorter is safe for concurrent use by multiple goroutines.
type Sorter struct {
	apex *cache.Memo[string, string]
}

// NewSorter returns a sorter remembering up to cacheSize apex lookups.
func NewSorter(cacheSize int) *Sorter {
	return &Sorter{
		apex: cache.NewMemo(cacheSize, Apex),
	}
}

// Apex returns the registrable domain (eTLD+1) of the hostname rule,
// with any leading suffix marker removed.
// If the hostname is itself a public suffix, it is returned as is.
func Apex(rule string) string {
	hostname := strings.TrimPrefix(rule, ".")
	apex, err := publicsuffix.EffectiveTLDPlusOne(hostname)
	if err != nil {
		return hostname
	}
	return apex
}

type sortKey struct {
	apex   string
	labels int
	rule   string
}

// Sort sorts the rules in place by apex domain, then by label count, then by hostname.
// A suffix rule sorts before the exact rule of the same hostname.
func (s *Sorter) Sort(rules []string) {
	keys := make([]sortKey, len(rules))
	for i, rule := range rules {
		keys[i] = sortKey{
			apex:   s.apex.Get(rule),
			labels: strings.Count(strings.TrimPrefix(rule, "."), ".") + 1,
			rule:   rule,
		}
	}

	slices.SortStableFunc(keys, func(a, b sortKey) int {
		if c := cmp.Compare(a.apex, b.apex); c != 0 {
			return c
		}
		if c := cmp.Compare(a.labels, b.labels); c != 0 {
			return c
		}
		return cmp.Compare(a.rule, b.rule)
	})

	for i := range keys {
		rules[i] = keys[i].rule
	}
}

// Sort sorts the rules with a new [Sorter] using the default cache size.
func Sort(rules []string) {
	NewSorter(DefaultCacheSize).Sort(rules)
}
