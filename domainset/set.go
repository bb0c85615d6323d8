package domainset

// Builder sorts compiled rules into exact, suffix and keyword matcher builders.
type Builder [3]MatcherBuilder

// NewBuilder returns a [Builder] with map-backed exact and suffix builders.
func NewBuilder(domainCapacity, suffixCapacity, keywordCapacity int) Builder {
	return Builder{
		NewDomainMapMatcher(domainCapacity),
		NewSuffixMapMatcher(suffixCapacity),
		NewKeywordLinearMatcher(keywordCapacity),
	}
}

// InsertRule inserts a compiled rule. Rules starting with a dot are suffix rules.
func (b Builder) InsertRule(rule string) {
	if isSuffixRule(rule) {
		b[1].Insert(rule[1:])
		return
	}
	b[0].Insert(rule)
}

// InsertKeyword inserts a keyword rule.
func (b Builder) InsertKeyword(keyword string) {
	b[2].Insert(keyword)
}

// Set builds the matchers.
func (b Builder) Set() (Set, error) {
	var capacity int
	for _, mb := range b {
		capacity += mb.MatcherCount()
	}
	s := make(Set, 0, capacity)
	var err error
	for _, mb := range b {
		s, err = mb.AppendTo(s)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// SetFromRules builds a [Set] from compiled rules.
func SetFromRules(rules []string) (Set, error) {
	b := NewBuilder(len(rules), len(rules)/2, 0)
	for _, rule := range rules {
		b.InsertRule(rule)
	}
	return b.Set()
}

// Set is a set of matchers built from compiled rules.
type Set []Matcher

// Match returns whether any matcher in the set matches the hostname.
func (s Set) Match(hostname string) bool {
	for _, m := range s {
		if m.Match(hostname) {
			return true
		}
	}
	return false
}
