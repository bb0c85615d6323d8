package output

import (
	"bytes"
	"encoding/json"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
)

var testRuleset = Ruleset{
	Name:        "ads",
	Title:       "Ads",
	Description: "Advertising hosts",
	Rules:       []string{"cdn.example.com", ".skk.moe"},
	Keywords:    []string{"track"},
	Prefixes: []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("fc00::/7"),
	},
}

func testWrite(t *testing.T, kind Kind, rs *Ruleset, want string) {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, kind, rs); err != nil {
		t.Fatalf("Write(%q) failed: %v", kind, err)
	}
	if got := buf.String(); got != want {
		t.Errorf("Write(%q) = %q, want %q", kind, got, want)
	}
}

func TestWriteSurgeDomainSet(t *testing.T) {
	testWrite(t, KindSurgeDomainSet, &testRuleset, `# Ads
# Advertising hosts
# Entries: 2
cdn.example.com
.skk.moe
`)
}

func TestWriteClashDomainSet(t *testing.T) {
	rs := Ruleset{Name: "plain", Rules: []string{"cdn.example.com", ".skk.moe"}}
	testWrite(t, KindClashDomainSet, &rs, `# plain
# Entries: 2
cdn.example.com
+.skk.moe
`)
}

func TestWriteClashIPCIDR(t *testing.T) {
	testWrite(t, KindClashIPCIDR, &testRuleset, `# Ads
# Advertising hosts
# Entries: 2
10.0.0.0/8
fc00::/7
`)
}

func TestWriteSurgeRuleSet(t *testing.T) {
	testWrite(t, KindSurgeRuleSet, &testRuleset, `# Ads
# Advertising hosts
# Entries: 5
DOMAIN,cdn.example.com
DOMAIN-SUFFIX,skk.moe
DOMAIN-KEYWORD,track
IP-CIDR,10.0.0.0/8,no-resolve
IP-CIDR6,fc00::/7,no-resolve
`)
}

func TestWriteDomainSet(t *testing.T) {
	testWrite(t, KindDomainSet, &testRuleset, `# shadowsocks-go domain set capacity hint 1 1 1 0 DSKR
domain:cdn.example.com
suffix:skk.moe
keyword:track
`)
}

func TestWriteSingBox(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, KindSingBox, &testRuleset); err != nil {
		t.Fatal(err)
	}

	var doc singBoxRuleSet
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if doc.Version != 2 {
		t.Errorf("version = %d, want 2", doc.Version)
	}
	if len(doc.Rules) != 1 {
		t.Fatalf("len(rules) = %d, want 1", len(doc.Rules))
	}
	r := doc.Rules[0]
	if len(r.Domain) != 1 || r.Domain[0] != "cdn.example.com" {
		t.Errorf("domain = %q, want [cdn.example.com]", r.Domain)
	}
	if len(r.DomainSuffix) != 1 || r.DomainSuffix[0] != "skk.moe" {
		t.Errorf("domain_suffix = %q, want [skk.moe]", r.DomainSuffix)
	}
	if len(r.DomainKeyword) != 1 || r.DomainKeyword[0] != "track" {
		t.Errorf("domain_keyword = %q, want [track]", r.DomainKeyword)
	}
	if len(r.IPCIDR) != 2 || r.IPCIDR[1] != "fc00::/7" {
		t.Errorf("ip_cidr = %q, want [10.0.0.0/8 fc00::/7]", r.IPCIDR)
	}

	testWrite(t, KindSingBox, &Ruleset{Name: "empty"}, "{\n  \"version\": 2,\n  \"rules\": []\n}\n")
}

func TestWriteUnknownKind(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, "gob", &testRuleset); err == nil {
		t.Error("Write with an unknown kind succeeded")
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteFile(dir, KindSurgeDomainSet, &testRuleset)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "surge-domainset", "ads.txt"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasSuffix(data, []byte("\n.skk.moe\n")) {
		t.Errorf("file content = %q", data)
	}
}

func TestKindCapabilities(t *testing.T) {
	for _, c := range []struct {
		kind                        Kind
		domains, keywords, prefixes bool
		ext                         string
	}{
		{KindSurgeDomainSet, true, false, false, ".txt"},
		{KindSurgeRuleSet, true, true, true, ".conf"},
		{KindClashDomainSet, true, false, false, ".txt"},
		{KindClashIPCIDR, false, false, true, ".txt"},
		{KindSingBox, true, true, true, ".json"},
		{KindDomainSet, true, true, false, ".txt"},
	} {
		if !c.kind.Valid() {
			t.Errorf("%q.Valid() = false", c.kind)
		}
		if got := c.kind.SupportsDomains(); got != c.domains {
			t.Errorf("%q.SupportsDomains() = %v, want %v", c.kind, got, c.domains)
		}
		if got := c.kind.SupportsKeywords(); got != c.keywords {
			t.Errorf("%q.SupportsKeywords() = %v, want %v", c.kind, got, c.keywords)
		}
		if got := c.kind.SupportsPrefixes(); got != c.prefixes {
			t.Errorf("%q.SupportsPrefixes() = %v, want %v", c.kind, got, c.prefixes)
		}
		if got := c.kind.Ext(); got != c.ext {
			t.Errorf("%q.Ext() = %q, want %q", c.kind, got, c.ext)
		}
	}
}
