package domainset

import (
	"iter"
	"slices"
	"strconv"
	"strings"
)

// Mode selects the insertion strategy of a [Trie].
type Mode uint8

const (
	// ModeExact stores every inserted key as is.
	ModeExact Mode = iota

	// ModeCompact keeps the stored hostname set minimal at insertion time:
	// a suffix rule ".example.com" removes "example.com" and every rule under it,
	// and rules already covered by a suffix rule are not stored.
	//
	// A compact trie cannot enumerate the original forms of its keys, so [Trie.Find] panics.
	ModeCompact
)

// String implements [fmt.Stringer.String].
func (m Mode) String() string {
	switch m {
	case ModeExact:
		return "exact"
	case ModeCompact:
		return "compact"
	default:
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// rootIndex is the arena index of the root node.
const rootIndex int32 = 0

type trieEdge struct {
	unit  string
	child int32
}

type trieNode struct {
	// parent is only used for pruning. Downward traversals never follow it.
	parent   int32
	unit     string
	terminal bool
	// children is sorted by unit.
	children []trieEdge
}

// Trie is a suffix trie of keys split into units and walked from the last unit to the first.
// For hostnames, sibling domains under the same apex domain share a path.
//
// Nodes are kept in an arena and addressed by index. Every operation leaves the trie
// without empty branches.
//
// The zero value is not usable. Use [NewTrie] or [NewLiteralTrie].
// Mutating methods require exclusive access. Has, Contains, Match, Find, All, Dump
// and Rules may run concurrently with each other.
type Trie struct {
	nodes []trieNode
	free  []int32
	size  int
	mode  Mode

	unitize func(string, []string) []string
	add     func(*Trie, []string)

	// scratch holds the units of the key being inserted or removed.
	scratch []string
}

// NewTrie returns a new hostname trie in the given mode.
func NewTrie(mode Mode) *Trie {
	t := &Trie{
		nodes:   make([]trieNode, 1, 64),
		mode:    mode,
		unitize: HostnameUnits,
	}
	t.nodes[rootIndex].parent = -1
	switch mode {
	case ModeExact:
		t.add = (*Trie).addExact
	case ModeCompact:
		t.add = (*Trie).addCompact
	default:
		panic("domainset: invalid trie mode " + mode.String())
	}
	return t
}

// NewLiteralTrie returns a new exact trie that splits keys into single characters.
func NewLiteralTrie() *Trie {
	t := NewTrie(ModeExact)
	t.unitize = LiteralUnits
	return t
}

// TrieFromSlice returns a new hostname trie in the given mode with keys inserted in order.
func TrieFromSlice(mode Mode, keys []string) *Trie {
	t := NewTrie(mode)
	for _, key := range keys {
		t.Add(key)
	}
	return t
}

// Mode returns the mode the trie was created with.
func (t *Trie) Mode() Mode {
	return t.mode
}

// Size returns the number of keys stored in the trie.
func (t *Trie) Size() int {
	return t.size
}

// units splits the key into the scratch buffer. Only mutating methods may use it.
func (t *Trie) units(key string) []string {
	t.scratch = t.unitize(key, t.scratch[:0])
	return t.scratch
}

func (t *Trie) readUnits(key string) []string {
	return t.unitize(key, make([]string, 0, 8))
}

// Add inserts the key into the trie.
func (t *Trie) Add(key string) {
	t.add(t, t.units(key))
}

func (t *Trie) addExact(units []string) {
	idx := rootIndex
	for i := len(units) - 1; i >= 0; i-- {
		idx, _ = t.childOrNew(idx, units[i])
	}
	t.setTerminal(idx)
}

// Has returns whether the key is stored in the trie.
func (t *Trie) Has(key string) bool {
	idx, ok := t.lookup(t.readUnits(key))
	return ok && t.nodes[idx].terminal
}

// Contains returns whether the path of the key exists in the trie,
// that is, whether some stored key ends with the key's units.
func (t *Trie) Contains(key string) bool {
	_, ok := t.lookup(t.readUnits(key))
	return ok
}

// Match returns whether the hostname is stored in the trie or covered by a stored suffix rule.
func (t *Trie) Match(hostname string) bool {
	units := t.readUnits(hostname)
	idx := rootIndex
	for i := len(units) - 1; i >= 0; i-- {
		child, ok := t.child(idx, units[i])
		if !ok {
			return false
		}
		idx = child
		if units[i] != separator && t.suffixTerminal(idx) {
			return true
		}
	}
	return t.nodes[idx].terminal
}

// Remove deletes the key from the trie and prunes the branches left empty.
// It returns false if the key was not stored.
func (t *Trie) Remove(key string) bool {
	idx, ok := t.lookup(t.units(key))
	if !ok || !t.nodes[idx].terminal {
		return false
	}
	t.clearTerminal(idx)
	t.prune(idx)
	return true
}

// Whitelist removes from the trie every key the pattern would have matched as a blocking rule.
//
// For a suffix pattern ".example.com", "example.com", ".example.com" and every key under them are removed.
// For an exact pattern "example.com", "example.com" and ".example.com" are removed.
// Patterns that match nothing are a no-op.
func (t *Trie) Whitelist(pattern string) {
	units := t.units(pattern)

	if len(units) > 1 && units[0] == separator {
		idx, ok := t.lookup(units[1:])
		if !ok {
			return
		}
		t.clearTerminal(idx)
		t.discardChildren(idx)
		t.prune(idx)
		return
	}

	idx, ok := t.lookup(units)
	if !ok {
		return
	}
	t.clearTerminal(idx)
	if w, ok := t.child(idx, separator); ok && t.nodes[w].terminal {
		t.clearTerminal(w)
		t.prune(w)
		return
	}
	t.prune(idx)
}

// Find returns the stored keys that end with pattern, in traversal order.
// If includeEqual is false, pattern itself is left out.
//
// Find panics if the trie is in [ModeCompact].
func (t *Trie) Find(pattern string, includeEqual bool) []string {
	if t.mode == ModeCompact {
		panic("domainset: Find called on a compact trie")
	}

	units := t.readUnits(pattern)
	idx, ok := t.lookup(units)
	if !ok {
		return nil
	}

	prefix := make([]string, len(units))
	for i, u := range units {
		prefix[len(units)-1-i] = u
	}

	var keys []string
	for key := range t.walk(idx, prefix, !includeEqual) {
		keys = append(keys, key)
	}
	return keys
}

// All returns an iterator over all stored keys in traversal order.
// The trie must not be modified during iteration.
func (t *Trie) All() iter.Seq[string] {
	return t.walk(rootIndex, nil, false)
}

// Dump returns all stored keys in traversal order.
//
// Traversal is depth-first, visits a node before its children and
// visits children in ascending unit order, so the result only depends
// on the stored set.
func (t *Trie) Dump() []string {
	return slices.AppendSeq(make([]string, 0, t.size), t.All())
}

// Rules returns the number of stored keys and an iterator over them.
func (t *Trie) Rules() (int, iter.Seq[string]) {
	return t.size, t.All()
}

// walk returns an iterator over the terminal nodes under start.
// prefix holds the units from the root down to start.
func (t *Trie) walk(start int32, prefix []string, skipStart bool) iter.Seq[string] {
	return func(yield func(string) bool) {
		type frame struct {
			idx   int32
			depth int
		}

		path := slices.Clip(prefix)
		base := len(path)
		stack := []frame{{idx: start, depth: base}}

		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			n := &t.nodes[f.idx]

			if f.idx == start {
				path = path[:base]
			} else {
				path = append(path[:f.depth-1], n.unit)
			}

			if n.terminal && !(skipStart && f.idx == start) {
				if !yield(joinReversed(path)) {
					return
				}
			}

			for i := len(n.children) - 1; i >= 0; i-- {
				stack = append(stack, frame{idx: n.children[i].child, depth: f.depth + 1})
			}
		}
	}
}

func joinReversed(units []string) string {
	var n int
	for _, u := range units {
		n += len(u)
	}
	var b strings.Builder
	b.Grow(n)
	for i := len(units) - 1; i >= 0; i-- {
		b.WriteString(units[i])
	}
	return b.String()
}

// DebugTree renders the node structure as nested JSON objects keyed by unit.
// Terminal nodes carry a "$": true member.
func (t *Trie) DebugTree() string {
	type frame struct {
		idx  int32
		next int
	}

	var b strings.Builder
	b.WriteByte('{')
	if t.nodes[rootIndex].terminal {
		b.WriteString(`"$":true`)
	}

	stack := []frame{{idx: rootIndex}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		n := &t.nodes[top.idx]
		if top.next == len(n.children) {
			b.WriteByte('}')
			stack = stack[:len(stack)-1]
			continue
		}

		e := n.children[top.next]
		if top.next > 0 || n.terminal {
			b.WriteByte(',')
		}
		top.next++

		b.WriteString(strconv.Quote(e.unit))
		b.WriteString(":{")
		if t.nodes[e.child].terminal {
			b.WriteString(`"$":true`)
		}
		stack = append(stack, frame{idx: e.child})
	}

	return b.String()
}

// lookup walks the units from the last to the first and returns the node reached.
func (t *Trie) lookup(units []string) (int32, bool) {
	idx := rootIndex
	for i := len(units) - 1; i >= 0; i-- {
		child, ok := t.child(idx, units[i])
		if !ok {
			return 0, false
		}
		idx = child
	}
	return idx, true
}

func (t *Trie) search(idx int32, unit string) (int, bool) {
	return slices.BinarySearchFunc(t.nodes[idx].children, unit, func(e trieEdge, unit string) int {
		return strings.Compare(e.unit, unit)
	})
}

func (t *Trie) child(idx int32, unit string) (int32, bool) {
	i, found := t.search(idx, unit)
	if !found {
		return 0, false
	}
	return t.nodes[idx].children[i].child, true
}

// childOrNew returns the child of idx under unit, creating it if needed.
func (t *Trie) childOrNew(idx int32, unit string) (child int32, created bool) {
	i, found := t.search(idx, unit)
	if found {
		return t.nodes[idx].children[i].child, false
	}
	child = t.newNode(idx, unit)
	t.nodes[idx].children = slices.Insert(t.nodes[idx].children, i, trieEdge{unit: unit, child: child})
	return child, true
}

// suffixTerminal returns whether idx has a terminal separator child,
// which stores the suffix rule for the key of idx.
func (t *Trie) suffixTerminal(idx int32) bool {
	w, ok := t.child(idx, separator)
	return ok && t.nodes[w].terminal
}

func (t *Trie) newNode(parent int32, unit string) int32 {
	if n := len(t.free); n > 0 {
		idx := t.free[n-1]
		t.free = t.free[:n-1]
		t.nodes[idx] = trieNode{
			parent:   parent,
			unit:     unit,
			children: t.nodes[idx].children[:0],
		}
		return idx
	}
	t.nodes = append(t.nodes, trieNode{parent: parent, unit: unit})
	return int32(len(t.nodes) - 1)
}

func (t *Trie) setTerminal(idx int32) {
	if !t.nodes[idx].terminal {
		t.nodes[idx].terminal = true
		t.size++
	}
}

func (t *Trie) clearTerminal(idx int32) {
	if t.nodes[idx].terminal {
		t.nodes[idx].terminal = false
		t.size--
	}
}

// discardChildren frees every node under idx.
func (t *Trie) discardChildren(idx int32) {
	stack := make([]int32, 0, len(t.nodes[idx].children))
	for _, e := range t.nodes[idx].children {
		stack = append(stack, e.child)
	}
	t.nodes[idx].children = t.nodes[idx].children[:0]

	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range t.nodes[c].children {
			stack = append(stack, e.child)
		}
		t.release(c)
	}
}

// release returns the node to the free list. The caller must have unlinked it.
func (t *Trie) release(idx int32) {
	n := &t.nodes[idx]
	if n.terminal {
		t.size--
	}
	n.terminal = false
	n.parent = -1
	n.unit = ""
	n.children = n.children[:0]
	t.free = append(t.free, idx)
}

// prune removes idx and its ancestors while they are neither terminal nor have children.
func (t *Trie) prune(idx int32) {
	for idx != rootIndex {
		n := &t.nodes[idx]
		if n.terminal || len(n.children) > 0 {
			return
		}
		parent, unit := n.parent, n.unit
		if i, found := t.search(parent, unit); found {
			t.nodes[parent].children = slices.Delete(t.nodes[parent].children, i, i+1)
		}
		t.release(idx)
		idx = parent
	}
}
