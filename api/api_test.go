package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	v1 "github.com/database64128/rulesets-go/api/v1"
	"github.com/database64128/rulesets-go/build"
	"github.com/database64128/rulesets-go/output"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap/zaptest"
)

func TestJoinPatternPath(t *testing.T) {
	for _, c := range []struct {
		elem []string
		want string
	}{
		{[]string{}, ""},
		{[]string{""}, ""},
		{[]string{"a"}, "a"},
		{[]string{"/"}, "/"},
		{[]string{"/a/"}, "/a/"},
		{[]string{"", "/b/"}, "/b/"},
		{[]string{"a", "b"}, "a/b"},
		{[]string{"/", "b"}, "/b"},
		{[]string{"/", "/b/"}, "/b/"},
		{[]string{"/a", "/b"}, "/a/b"},
		{[]string{"/a/", "b/"}, "/a/b/"},
	} {
		if got := joinPatternPath(c.elem...); got != c.want {
			t.Errorf("joinPatternPath(%#v) = %q; want %q", c.elem, got, c.want)
		}
	}
}

func newTestApp(t *testing.T, secretPath string) *fiber.App {
	t.Helper()
	logger := zaptest.NewLogger(t)

	cfg := build.Config{
		OutputDir: filepath.Join(t.TempDir(), "out"),
		Rulesets: []build.RulesetConfig{
			{
				Name:    "ads",
				Entries: []string{"+.example.com", "ads.example.net"},
				Outputs: []output.Kind{output.KindClashDomainSet},
			},
			{
				Name:    "lan",
				Type:    build.TypeIP,
				Entries: []string{"10.0.0.0/8"},
				Outputs: []output.Kind{output.KindClashIPCIDR},
			},
		},
	}
	b, err := cfg.NewBuilder(logger)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = b.Build(context.Background()); err != nil {
		t.Fatal(err)
	}

	return newApp(&Config{SecretPath: secretPath}, logger, b.Store(), b.Metrics())
}

func doRequest(t *testing.T, app *fiber.App, target string) (int, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("app.Test(%q) failed: %v", target, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(body)
}

func TestListRulesets(t *testing.T) {
	app := newTestApp(t, "")

	status, body := doRequest(t, app, "/v1/rulesets")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want %d", status, http.StatusOK)
	}

	var list v1.RulesetList
	if err := json.Unmarshal([]byte(body), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Rulesets) != 2 || list.Rulesets[0].Name != "ads" || list.Rulesets[1].Name != "lan" {
		t.Errorf("unexpected rulesets: %+v", list.Rulesets)
	}

	if status, _ = doRequest(t, app, "/v1/rulesets/nope"); status != http.StatusNotFound {
		t.Errorf("unknown ruleset status = %d, want %d", status, http.StatusNotFound)
	}
}

func TestMatch(t *testing.T) {
	app := newTestApp(t, "")

	for _, c := range []struct {
		target  string
		status  int
		matched bool
	}{
		{"/v1/rulesets/ads/match?domain=www.example.com", http.StatusOK, true},
		{"/v1/rulesets/ads/match?domain=ADS.example.net.", http.StatusOK, true},
		{"/v1/rulesets/ads/match?domain=example.net", http.StatusOK, false},
		{"/v1/rulesets/lan/match?ip=10.1.2.3", http.StatusOK, true},
		{"/v1/rulesets/lan/match?ip=192.168.0.1", http.StatusOK, false},
		{"/v1/rulesets/lan/match?ip=not-an-ip", http.StatusBadRequest, false},
		{"/v1/rulesets/ads/match?ip=10.1.2.3", http.StatusBadRequest, false},
		{"/v1/rulesets/ads/match", http.StatusBadRequest, false},
	} {
		status, body := doRequest(t, app, c.target)
		if status != c.status {
			t.Errorf("%s: status = %d, want %d", c.target, status, c.status)
			continue
		}
		if status != http.StatusOK {
			continue
		}
		var result v1.MatchResult
		if err := json.Unmarshal([]byte(body), &result); err != nil {
			t.Fatal(err)
		}
		if result.Matched != c.matched {
			t.Errorf("%s: matched = %v, want %v", c.target, result.Matched, c.matched)
		}
	}
}

func TestGetFile(t *testing.T) {
	app := newTestApp(t, "")

	status, body := doRequest(t, app, "/v1/rulesets/ads/files/clash-domainset")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want %d", status, http.StatusOK)
	}
	if !strings.HasSuffix(body, "+.example.com\nads.example.net\n") {
		t.Errorf("unexpected file:\n%s", body)
	}

	if status, _ = doRequest(t, app, "/v1/rulesets/ads/files/singbox"); status != http.StatusNotFound {
		t.Errorf("unwritten output status = %d, want %d", status, http.StatusNotFound)
	}
}

func TestSecretPathAndMetrics(t *testing.T) {
	app := newTestApp(t, "/s3cr3t")

	if status, _ := doRequest(t, app, "/v1/rulesets"); status != http.StatusNotFound {
		t.Errorf("status without secret path = %d, want %d", status, http.StatusNotFound)
	}
	if status, _ := doRequest(t, app, "/s3cr3t/v1"); status != http.StatusOK {
		t.Errorf("server info status = %d, want %d", status, http.StatusOK)
	}

	status, body := doRequest(t, app, "/s3cr3t/metrics")
	if status != http.StatusOK {
		t.Fatalf("metrics status = %d, want %d", status, http.StatusOK)
	}
	if !strings.Contains(body, `rulesets_entries{ruleset="lan",stage="output"} 1`) {
		t.Errorf("unexpected metrics:\n%s", body)
	}
}
