// Package prefixset merges IP prefixes from rule sources into a minimal prefix list.
package prefixset

import (
	"net/netip"

	"go4.org/netipx"
)

// Builder collects prefixes and whitelisted prefixes.
// The zero value is ready for use.
type Builder struct {
	sb        netipx.IPSetBuilder
	whitelist []netip.Prefix
	added     int
}

// Add adds the prefixes to the set.
func (b *Builder) Add(prefixes ...netip.Prefix) {
	for _, prefix := range prefixes {
		b.sb.AddPrefix(prefix)
	}
	b.added += len(prefixes)
}

// Whitelist marks the prefixes for removal. Whitelisted addresses are removed
// regardless of whether they were added before or after this call.
func (b *Builder) Whitelist(prefixes ...netip.Prefix) {
	b.whitelist = append(b.whitelist, prefixes...)
}

// Added returns the number of prefixes passed to Add.
func (b *Builder) Added() int {
	return b.added
}

// IPSet returns the set of added addresses minus the whitelisted addresses.
func (b *Builder) IPSet() (*netipx.IPSet, error) {
	for _, prefix := range b.whitelist {
		b.sb.RemovePrefix(prefix)
	}
	return b.sb.IPSet()
}

// Prefixes returns the minimal sorted prefix list covering the set.
// IPv4 prefixes come before IPv6 prefixes.
func (b *Builder) Prefixes() ([]netip.Prefix, error) {
	s, err := b.IPSet()
	if err != nil {
		return nil, err
	}
	return s.Prefixes(), nil
}

// AppendText appends the prefixes to b, one per line.
func AppendText(b []byte, prefixes []netip.Prefix) []byte {
	for _, prefix := range prefixes {
		b = prefix.AppendTo(b)
		b = append(b, '\n')
	}
	return b
}
