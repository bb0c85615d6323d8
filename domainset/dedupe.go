package domainset

import "iter"

// Dedupe returns the minimal set of hostname rules equivalent to hostnames.
//
// Exact rules are plain hostnames ("example.com"), suffix rules start with a dot
// (".example.com") and cover the domain and all of its subdomains.
// The result does not depend on the order of hostnames.
func Dedupe(hostnames []string) []string {
	return TrieFromSlice(ModeCompact, hostnames).Dump()
}

// DedupeSeq is like [Dedupe] but takes a sequence of hostnames.
func DedupeSeq(hostnames iter.Seq[string]) []string {
	t := NewTrie(ModeCompact)
	for hostname := range hostnames {
		t.Add(hostname)
	}
	return t.Dump()
}
