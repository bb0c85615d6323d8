package parse

import (
	"net/netip"
	"strings"

	"github.com/database64128/rulesets-go/bytestrings"
)

// localHostnames are names that hosts files map for the local machine.
var localHostnames = map[string]struct{}{
	"localhost":             {},
	"localhost.localdomain": {},
	"local":                 {},
	"broadcasthost":         {},
	"ip6-localhost":         {},
	"ip6-loopback":          {},
	"ip6-localnet":          {},
	"ip6-mcastprefix":       {},
	"ip6-allnodes":          {},
	"ip6-allrouters":        {},
	"ip6-allhosts":          {},
	"0.0.0.0":               {},
}

func parseHosts(text string) (r Result) {
	for line := range bytestrings.NonEmptyLines(text) {
		line = bytestrings.TrimComment(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) > 1 {
			if _, err := netip.ParseAddr(fields[0]); err != nil {
				r.Skipped++
				continue
			}
			fields = fields[1:]
		}

		for _, field := range fields {
			if _, ok := localHostnames[strings.ToLower(field)]; ok {
				continue
			}
			hostname, ok := NormalizeHostname(field)
			if !ok {
				r.Skipped++
				continue
			}
			r.Hostnames = append(r.Hostnames, hostname)
		}
	}
	return r
}
