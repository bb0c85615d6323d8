package output

import (
	"bufio"
	"io"

	"github.com/database64128/rulesets-go/domainset"
)

func isSuffixRule(rule string) bool {
	return len(rule) > 1 && rule[0] == '.'
}

func writeSurgeDomainSet(w io.Writer, rs *Ruleset) error {
	bw := bufio.NewWriter(w)
	writeHeader(bw, rs, len(rs.Rules))
	for _, rule := range rs.Rules {
		bw.WriteString(rule)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func writeClashDomainSet(w io.Writer, rs *Ruleset) error {
	bw := bufio.NewWriter(w)
	writeHeader(bw, rs, len(rs.Rules))
	for _, rule := range rs.Rules {
		if isSuffixRule(rule) {
			bw.WriteByte('+')
		}
		bw.WriteString(rule)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func writeClashIPCIDR(w io.Writer, rs *Ruleset) error {
	bw := bufio.NewWriter(w)
	writeHeader(bw, rs, len(rs.Prefixes))
	b := make([]byte, 0, 64)
	for _, prefix := range rs.Prefixes {
		b = prefix.AppendTo(b[:0])
		b = append(b, '\n')
		bw.Write(b)
	}
	return bw.Flush()
}

func writeSurgeRuleSet(w io.Writer, rs *Ruleset) error {
	bw := bufio.NewWriter(w)
	writeHeader(bw, rs, rs.Len())
	for _, rule := range rs.Rules {
		if isSuffixRule(rule) {
			bw.WriteString("DOMAIN-SUFFIX,")
			bw.WriteString(rule[1:])
		} else {
			bw.WriteString("DOMAIN,")
			bw.WriteString(rule)
		}
		bw.WriteByte('\n')
	}
	for _, keyword := range rs.Keywords {
		bw.WriteString("DOMAIN-KEYWORD,")
		bw.WriteString(keyword)
		bw.WriteByte('\n')
	}
	b := make([]byte, 0, 64)
	for _, prefix := range rs.Prefixes {
		if prefix.Addr().Is4() {
			b = append(b[:0], "IP-CIDR,"...)
		} else {
			b = append(b[:0], "IP-CIDR6,"...)
		}
		b = prefix.AppendTo(b)
		b = append(b, ",no-resolve\n"...)
		bw.Write(b)
	}
	return bw.Flush()
}

// writeDomainSet writes the domain set text format, which starts with the capacity hint
// instead of a header.
func writeDomainSet(w io.Writer, rs *Ruleset) error {
	return domainset.WriteText(w, rs.Rules, rs.Keywords)
}
