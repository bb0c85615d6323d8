package build

import (
	"net/netip"
	"slices"
	"strings"
	"sync"

	"github.com/database64128/rulesets-go/domainset"
	"github.com/database64128/rulesets-go/output"
	"go4.org/netipx"
)

// Compiled is a successfully built ruleset.
type Compiled struct {
	Report  Report
	Ruleset output.Ruleset

	domains domainset.Set
	addrs   *netipx.IPSet
}

// MatchDomain returns whether the domain ruleset matches the hostname.
// It always returns false for IP rulesets.
func (c *Compiled) MatchDomain(hostname string) bool {
	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))
	return c.domains.Match(hostname)
}

// MatchAddr returns whether the IP ruleset contains the address.
// It always returns false for domain rulesets.
func (c *Compiled) MatchAddr(addr netip.Addr) bool {
	if c.addrs == nil {
		return false
	}
	return c.addrs.Contains(addr.Unmap())
}

// Store holds the latest successful build of each ruleset.
// It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	rulesets map[string]*Compiled
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		rulesets: make(map[string]*Compiled),
	}
}

// Get returns the ruleset with the given name.
func (s *Store) Get(name string) (*Compiled, bool) {
	s.mu.RLock()
	c, ok := s.rulesets[name]
	s.mu.RUnlock()
	return c, ok
}

// List returns the reports of all stored rulesets, sorted by name.
func (s *Store) List() []Report {
	s.mu.RLock()
	reports := make([]Report, 0, len(s.rulesets))
	for _, c := range s.rulesets {
		reports = append(reports, c.Report)
	}
	s.mu.RUnlock()

	slices.SortFunc(reports, func(a, b Report) int {
		return strings.Compare(a.Name, b.Name)
	})
	return reports
}

func (s *Store) put(c *Compiled) {
	s.mu.Lock()
	s.rulesets[c.Report.Name] = c
	s.mu.Unlock()
}
