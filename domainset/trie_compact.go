package domainset

// addCompact inserts the units while keeping the stored set minimal.
//
// Walking into an existing node that already has a terminal separator child
// means the key is covered by a suffix rule, and the insertion stops there.
//
// Inserting a suffix rule ".x" clears the exact rule "x" and replaces
// everything under the separator child of "x" with the new terminal node.
func (t *Trie) addCompact(units []string) {
	idx := rootIndex

	for i := len(units) - 1; i >= 0; i-- {
		child, created := t.childOrNew(idx, units[i])
		idx = child

		if !created && t.suffixTerminal(idx) {
			return
		}

		if i == 1 && units[0] == separator {
			t.clearTerminal(idx)
			w, _ := t.childOrNew(idx, separator)
			t.discardChildren(w)
			t.setTerminal(w)
			return
		}
	}

	t.setTerminal(idx)
}
