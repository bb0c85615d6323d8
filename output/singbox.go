package output

import (
	"encoding/json"
	"io"
)

// singBoxRuleSetVersion is the sing-box source rule-set format version.
const singBoxRuleSetVersion = 2

type singBoxRuleSet struct {
	Version int               `json:"version"`
	Rules   []singBoxHeadless `json:"rules"`
}

type singBoxHeadless struct {
	Domain        []string `json:"domain,omitempty"`
	DomainSuffix  []string `json:"domain_suffix,omitempty"`
	DomainKeyword []string `json:"domain_keyword,omitempty"`
	IPCIDR        []string `json:"ip_cidr,omitempty"`
}

// writeSingBox writes a sing-box source rule-set.
// A sing-box domain suffix matches the domain itself and its subdomains,
// which is what a compiled suffix rule means.
func writeSingBox(w io.Writer, rs *Ruleset) error {
	var rule singBoxHeadless
	for _, r := range rs.Rules {
		if isSuffixRule(r) {
			rule.DomainSuffix = append(rule.DomainSuffix, r[1:])
		} else {
			rule.Domain = append(rule.Domain, r)
		}
	}
	rule.DomainKeyword = rs.Keywords
	if len(rs.Prefixes) > 0 {
		rule.IPCIDR = make([]string, len(rs.Prefixes))
		for i, prefix := range rs.Prefixes {
			rule.IPCIDR[i] = prefix.String()
		}
	}

	doc := singBoxRuleSet{
		Version: singBoxRuleSetVersion,
		Rules:   []singBoxHeadless{},
	}
	if rs.Len() > 0 {
		doc.Rules = append(doc.Rules, rule)
	}

	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(&doc)
}
