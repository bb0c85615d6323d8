package build

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/database64128/rulesets-go/metrics"
	"github.com/database64128/rulesets-go/output"
	"github.com/database64128/rulesets-go/parse"
	"go.uber.org/zap/zaptest"
)

const (
	testHosts = `# ad hosts
0.0.0.0 localhost
0.0.0.0 ads.example.com
0.0.0.0 tracker.example.com
0.0.0.0 www.example.net
0.0.0.0 cdn.example.org
`

	testAdGuard = `! adguard
||example.com^
@@||tracker.example.com^
example.org##.banner
/ads[0-9]+/
`

	testCIDR = `# lan
10.0.0.0/8
10.1.0.0/16
192.168.1.1
2001:db8::/32
`
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestBuilder(t *testing.T, cfg *Config) *Builder {
	t.Helper()
	b, err := cfg.NewBuilder(zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewBuilder() failed: %v", err)
	}
	return b
}

func TestBuildDomainRuleset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testAdGuard))
	}))
	defer srv.Close()

	dir := t.TempDir()
	hostsPath := writeFile(t, dir, "hosts", testHosts)
	outputDir := filepath.Join(dir, "out")

	cfg := Config{
		CacheDir:  filepath.Join(dir, "cache"),
		OutputDir: outputDir,
		Rulesets: []RulesetConfig{
			{
				Name: "reject",
				Sources: []SourceConfig{
					{Name: "hosts", Path: hostsPath, Format: parse.FormatHosts},
					{Name: "adguard", URL: srv.URL, Format: parse.FormatAdGuard},
				},
				Entries:         []string{"+.doubleclick.net", "metrics.example.io"},
				Whitelist:       []string{"cdn.example.org"},
				ExcludeKeywords: []string{"www"},
				Outputs:         []output.Kind{output.KindSurgeDomainSet, output.KindSingBox},
			},
		},
	}
	b := newTestBuilder(t, &cfg)

	reports, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("len(reports) = %d, want 1", len(reports))
	}

	r := reports[0]
	if r.Skipped != 2 {
		t.Errorf("r.Skipped = %d, want 2", r.Skipped)
	}
	if r.Input != 7 {
		t.Errorf("r.Input = %d, want 7", r.Input)
	}
	if r.Deduped != 5 {
		t.Errorf("r.Deduped = %d, want 5", r.Deduped)
	}
	if r.Output != 3 {
		t.Errorf("r.Output = %d, want 3", r.Output)
	}

	c, ok := b.Store().Get("reject")
	if !ok {
		t.Fatal("ruleset not in store")
	}
	want := []string{".doubleclick.net", ".example.com", "metrics.example.io"}
	if !slices.Equal(c.Ruleset.Rules, want) {
		t.Errorf("c.Ruleset.Rules = %q, want %q", c.Ruleset.Rules, want)
	}

	for _, tc := range []struct {
		hostname string
		want     bool
	}{
		{"example.com", true},
		{"ads.example.com", true},
		{"tracker.example.com", true},
		{"Ad.DoubleClick.net.", true},
		{"www.example.net", false},
		{"cdn.example.org", false},
		{"example.org", false},
		{"example.io", false},
	} {
		if got := c.MatchDomain(tc.hostname); got != tc.want {
			t.Errorf("MatchDomain(%q) = %v, want %v", tc.hostname, got, tc.want)
		}
	}
	if c.MatchAddr(netip.MustParseAddr("10.0.0.1")) {
		t.Error("MatchAddr matched on a domain ruleset")
	}

	path := r.Files[output.KindSurgeDomainSet]
	if path != filepath.Join(outputDir, "surge-domainset", "reject.txt") {
		t.Errorf("surge-domainset path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), ".doubleclick.net\n.example.com\nmetrics.example.io\n") {
		t.Errorf("unexpected surge-domainset output:\n%s", data)
	}
	if _, err := os.Stat(r.Files[output.KindSingBox]); err != nil {
		t.Errorf("singbox output missing: %v", err)
	}

	var sb strings.Builder
	if err := b.Metrics().WriteText(&sb); err != nil {
		t.Fatal(err)
	}
	for _, line := range []string{
		`rulesets_entries{ruleset="reject",stage="` + metrics.StageExcluded + `"} 1`,
		`rulesets_entries{ruleset="reject",stage="` + metrics.StageOutput + `"} 3`,
		`rulesets_source_fetches_total{origin="network",ruleset="reject",source="adguard"} 1`,
		`rulesets_source_fetches_total{origin="file",ruleset="reject",source="hosts"} 1`,
	} {
		if !strings.Contains(sb.String(), line) {
			t.Errorf("metrics missing %q:\n%s", line, sb.String())
		}
	}
}

func TestBuildIPRuleset(t *testing.T) {
	dir := t.TempDir()
	cidrPath := writeFile(t, dir, "lan.txt", testCIDR)
	exceptPath := writeFile(t, dir, "except.txt", "10.2.0.0/16\n")

	cfg := Config{
		OutputDir: filepath.Join(dir, "out"),
		Rulesets: []RulesetConfig{
			{
				Name: "lan",
				Type: TypeIP,
				Sources: []SourceConfig{
					{Name: "lan", Path: cidrPath, Format: parse.FormatCIDR},
					{Name: "except", Path: exceptPath, Format: parse.FormatCIDR, Whitelist: true},
				},
				Entries:   []string{"172.16.0.0/12"},
				Whitelist: []string{"192.168.1.1"},
				Outputs:   []output.Kind{output.KindClashIPCIDR},
			},
		},
	}
	b := newTestBuilder(t, &cfg)

	reports, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if got := reports[0].Input; got != 5 {
		t.Errorf("Input = %d, want 5", got)
	}

	c, _ := b.Store().Get("lan")
	for _, tc := range []struct {
		addr string
		want bool
	}{
		{"10.1.2.3", true},
		{"10.2.0.1", false},
		{"172.20.0.1", true},
		{"192.168.1.1", false},
		{"::ffff:10.0.0.1", true},
		{"2001:db8::1", true},
		{"8.8.8.8", false},
	} {
		if got := c.MatchAddr(netip.MustParseAddr(tc.addr)); got != tc.want {
			t.Errorf("MatchAddr(%s) = %v, want %v", tc.addr, got, tc.want)
		}
	}
	if c.MatchDomain("example.com") {
		t.Error("MatchDomain matched on an IP ruleset")
	}
}

func TestBuildOptionalSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	plainPath := writeFile(t, dir, "plain.txt", "example.com\n")

	cfg := Config{
		OutputDir: filepath.Join(dir, "out"),
		Rulesets: []RulesetConfig{
			{
				Name: "optional",
				Sources: []SourceConfig{
					{Name: "plain", Path: plainPath, Format: parse.FormatPlain},
					{Name: "broken", URL: srv.URL, Format: parse.FormatPlain, Optional: true},
				},
				Outputs: []output.Kind{output.KindDomainSet},
			},
			{
				Name: "required",
				Sources: []SourceConfig{
					{Name: "broken", URL: srv.URL, Format: parse.FormatPlain},
				},
				Outputs: []output.Kind{output.KindDomainSet},
			},
		},
	}
	b := newTestBuilder(t, &cfg)

	reports, err := b.Build(context.Background())
	if err == nil {
		t.Fatal("Build() succeeded with a failed required source")
	}
	if len(reports) != 1 || reports[0].Name != "optional" {
		t.Fatalf("reports = %+v, want only optional", reports)
	}
	if got := reports[0].FailedSources; got != 1 {
		t.Errorf("FailedSources = %d, want 1", got)
	}
	if _, ok := b.Store().Get("required"); ok {
		t.Error("failed ruleset in store")
	}
	if got := b.Store().List(); len(got) != 1 {
		t.Errorf("len(List()) = %d, want 1", len(got))
	}
}

func TestBuildMetricsTextfile(t *testing.T) {
	dir := t.TempDir()
	metricsPath := filepath.Join(dir, "rulesets.prom")

	cfg := Config{
		OutputDir:   filepath.Join(dir, "out"),
		MetricsPath: metricsPath,
		Rulesets: []RulesetConfig{
			{
				Name:    "entries",
				Entries: []string{"a.example.com", ".example.com"},
				Outputs: []output.Kind{output.KindClashDomainSet},
			},
		},
	}
	b := newTestBuilder(t, &cfg)

	if _, err := b.Build(context.Background()); err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `rulesets_entries{ruleset="entries",stage="deduped"} 1`) {
		t.Errorf("unexpected metrics:\n%s", data)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			OutputDir: "out",
			Rulesets: []RulesetConfig{
				{
					Name:    "ads",
					Sources: []SourceConfig{{Name: "a", URL: "https://example.com/a.txt", Format: parse.FormatPlain}},
					Outputs: []output.Kind{output.KindSurgeDomainSet},
				},
			},
		}
	}

	cfg := valid()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config failed validation: %v", err)
	}

	for _, tc := range []struct {
		name   string
		mutate func(*Config)
	}{
		{"NoOutputDir", func(c *Config) { c.OutputDir = "" }},
		{"NegativeConcurrency", func(c *Config) { c.Concurrency = -1 }},
		{"NoRulesets", func(c *Config) { c.Rulesets = nil }},
		{"DuplicateRuleset", func(c *Config) { c.Rulesets = append(c.Rulesets, c.Rulesets[0]) }},
		{"BadName", func(c *Config) { c.Rulesets[0].Name = "a/b" }},
		{"DotName", func(c *Config) { c.Rulesets[0].Name = ".ads" }},
		{"UnknownType", func(c *Config) { c.Rulesets[0].Type = "asn" }},
		{"URLAndPath", func(c *Config) { c.Rulesets[0].Sources[0].Path = "a.txt" }},
		{"MirrorsWithoutURL", func(c *Config) {
			c.Rulesets[0].Sources[0] = SourceConfig{Name: "a", Path: "a.txt", Mirrors: []string{"https://b"}, Format: parse.FormatPlain}
		}},
		{"UnknownFormat", func(c *Config) { c.Rulesets[0].Sources[0].Format = "pac" }},
		{"FormatTypeMismatch", func(c *Config) { c.Rulesets[0].Sources[0].Format = parse.FormatCIDR }},
		{"TagWithoutDlc", func(c *Config) { c.Rulesets[0].Sources[0].Tag = "ads" }},
		{"BadEntry", func(c *Config) { c.Rulesets[0].Entries = []string{"not a domain"} }},
		{"BadWhitelist", func(c *Config) { c.Rulesets[0].Whitelist = []string{"1.1.1.1"} }},
		{"NoOutputs", func(c *Config) { c.Rulesets[0].Outputs = nil }},
		{"OutputTypeMismatch", func(c *Config) { c.Rulesets[0].Outputs = []output.Kind{output.KindClashIPCIDR} }},
		{"IPExcludeKeywords", func(c *Config) {
			c.Rulesets[0].Type = TypeIP
			c.Rulesets[0].Sources[0].Format = parse.FormatCIDR
			c.Rulesets[0].Outputs = []output.Kind{output.KindClashIPCIDR}
			c.Rulesets[0].ExcludeKeywords = []string{"ads"}
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() succeeded, want error")
			}
		})
	}
}
