package domainset

import (
	"iter"
	"slices"
)

type automatonNode struct {
	next map[byte]int32
	fail int32
	// wordEnd is set when a keyword ends here or at any node on the fail chain.
	wordEnd bool
}

// KeywordAutomaton is an Aho-Corasick automaton that reports whether a string
// contains any of a set of keywords, in one pass over the string.
//
// It is immutable after construction and safe for concurrent use.
type KeywordAutomaton struct {
	nodes []automatonNode
}

// KeywordAutomatonFromSlice builds a [KeywordAutomaton] from the keywords.
func KeywordAutomatonFromSlice(keywords []string) *KeywordAutomaton {
	return KeywordAutomatonFromSeq(len(keywords), slices.Values(keywords))
}

// KeywordAutomatonFromSeq builds a [KeywordAutomaton] from a sequence of keywords.
// keywordCount is a capacity hint.
func KeywordAutomatonFromSeq(keywordCount int, keywordSeq iter.Seq[string]) *KeywordAutomaton {
	ka := KeywordAutomaton{
		nodes: make([]automatonNode, 1, 1+4*keywordCount),
	}
	for keyword := range keywordSeq {
		ka.insert(keyword)
	}
	ka.link()
	return &ka
}

func (ka *KeywordAutomaton) insert(keyword string) {
	cur := rootIndex
	for i := 0; i < len(keyword); i++ {
		c := keyword[i]
		next, ok := ka.nodes[cur].next[c]
		if !ok {
			ka.nodes = append(ka.nodes, automatonNode{})
			next = int32(len(ka.nodes) - 1)
			if ka.nodes[cur].next == nil {
				ka.nodes[cur].next = make(map[byte]int32)
			}
			ka.nodes[cur].next[c] = next
		}
		cur = next
	}
	ka.nodes[cur].wordEnd = true
}

// link computes the fail links level by level.
func (ka *KeywordAutomaton) link() {
	queue := make([]int32, 0, len(ka.nodes))
	for _, child := range ka.nodes[rootIndex].next {
		ka.nodes[child].fail = rootIndex
		queue = append(queue, child)
	}

	for head := 0; head < len(queue); head++ {
		u := queue[head]
		for c, v := range ka.nodes[u].next {
			f := ka.nodes[u].fail
			for {
				if w, ok := ka.nodes[f].next[c]; ok {
					ka.nodes[v].fail = w
					break
				}
				if f == rootIndex {
					ka.nodes[v].fail = rootIndex
					break
				}
				f = ka.nodes[f].fail
			}
			if ka.nodes[ka.nodes[v].fail].wordEnd {
				ka.nodes[v].wordEnd = true
			}
			queue = append(queue, v)
		}
	}
}

// Match returns whether text contains any of the keywords.
// An automaton without keywords never matches. An empty keyword matches every text.
func (ka *KeywordAutomaton) Match(text string) bool {
	nodes := ka.nodes
	if len(nodes) == 0 {
		return false
	}
	if nodes[rootIndex].wordEnd {
		return true
	}

	cur := rootIndex
	for i := 0; i < len(text); i++ {
		c := text[i]
		for {
			if next, ok := nodes[cur].next[c]; ok {
				cur = next
				break
			}
			if cur == rootIndex {
				break
			}
			cur = nodes[cur].fail
		}
		if nodes[cur].wordEnd {
			return true
		}
	}
	return false
}

// Filter returns an iterator over the entries that contain none of the keywords.
func (ka *KeywordAutomaton) Filter(entries iter.Seq[string]) iter.Seq[string] {
	return func(yield func(string) bool) {
		for entry := range entries {
			if ka.Match(entry) {
				continue
			}
			if !yield(entry) {
				return
			}
		}
	}
}
