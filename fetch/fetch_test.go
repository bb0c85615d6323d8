package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/database64128/rulesets-go/cfgfile"
	"go.uber.org/zap/zaptest"
)

const testList = "example.com\n.skk.moe\n"

func newTestClient(t *testing.T, cacheDir string, retries int) *Client {
	t.Helper()
	cfg := Config{
		Timeout:      cfgfile.Duration(5 * time.Second),
		Retries:      retries,
		RetryBackoff: cfgfile.Duration(time.Millisecond),
		UserAgent:    "rulesets-go-test",
	}
	c, err := cfg.NewClient(zaptest.NewLogger(t), cacheDir)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func fetchString(t *testing.T, c *Client, src Source) (string, Origin) {
	t.Helper()
	body, err := c.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch(%q) failed: %v", src.Name, err)
	}
	defer body.Close()
	return strings.Clone(body.Data), body.Origin
}

func TestFetchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.txt")
	if err := os.WriteFile(path, []byte(testList), 0o644); err != nil {
		t.Fatal(err)
	}

	c := newTestClient(t, "", 0)
	data, origin := fetchString(t, c, Source{Name: "file", Path: path})
	if data != testList {
		t.Errorf("Data = %q, want %q", data, testList)
	}
	if origin != OriginFile {
		t.Errorf("Origin = %v, want %v", origin, OriginFile)
	}

	if _, err := c.Fetch(context.Background(), Source{Name: "missing", Path: path + ".missing"}); err == nil {
		t.Error("Fetch of a missing file succeeded")
	}
	if _, err := c.Fetch(context.Background(), Source{Name: "empty"}); err == nil {
		t.Error("Fetch of a source without path and URL succeeded")
	}
}

func TestFetchConditional(t *testing.T) {
	const etag = `"v1"`
	var requests, notModified atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if got := r.Header.Get("User-Agent"); got != "rulesets-go-test" {
			t.Errorf("User-Agent = %q, want %q", got, "rulesets-go-test")
		}
		if r.Header.Get("If-None-Match") == etag {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		_, _ = w.Write([]byte(testList))
	}))
	defer srv.Close()

	c := newTestClient(t, t.TempDir(), 0)
	src := Source{Name: "remote", URL: srv.URL}

	data, origin := fetchString(t, c, src)
	if data != testList || origin != OriginNetwork {
		t.Errorf("first Fetch = %q, %v, want %q, %v", data, origin, testList, OriginNetwork)
	}

	data, origin = fetchString(t, c, src)
	if data != testList || origin != OriginNotModified {
		t.Errorf("second Fetch = %q, %v, want %q, %v", data, origin, testList, OriginNotModified)
	}

	if got := requests.Load(); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
	if got := notModified.Load(); got != 1 {
		t.Errorf("not modified responses = %d, want 1", got)
	}
}

func TestFetchMirror(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer primary.Close()

	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testList))
	}))
	defer mirror.Close()

	c := newTestClient(t, "", 0)
	data, origin := fetchString(t, c, Source{Name: "mirrored", URL: primary.URL, Mirrors: []string{mirror.URL}})
	if data != testList || origin != OriginNetwork {
		t.Errorf("Fetch = %q, %v, want %q, %v", data, origin, testList, OriginNetwork)
	}
}

func TestFetchRetriesAndStaleCache(t *testing.T) {
	var fail atomic.Bool
	var requests atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if fail.Load() {
			http.Error(w, "broken", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(testList))
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	c := newTestClient(t, cacheDir, 2)
	src := Source{Name: "flaky", URL: srv.URL}

	fetchString(t, c, src)

	fail.Store(true)
	requests.Store(0)

	data, origin := fetchString(t, c, src)
	if data != testList || origin != OriginStaleCache {
		t.Errorf("Fetch = %q, %v, want %q, %v", data, origin, testList, OriginStaleCache)
	}
	if got := requests.Load(); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}

	uncached := newTestClient(t, "", 1)
	if _, err := uncached.Fetch(context.Background(), src); err == nil {
		t.Error("Fetch without cache succeeded against a failing server")
	}
}

func TestFetchCorruptedCache(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "broken", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(testList))
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	c := newTestClient(t, cacheDir, 0)
	src := Source{Name: "corrupted", URL: srv.URL}
	fetchString(t, c, src)

	key := c.cache.key(src.URL)
	if err := os.WriteFile(c.cache.bodyPath(key), []byte("tampered\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fail.Store(true)
	_, err := c.Fetch(context.Background(), src)
	if !errors.Is(err, errCacheCorrupted) {
		t.Errorf("Fetch() = %v, want %v", err, errCacheCorrupted)
	}
}

func TestFetchCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "broken", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, "", 5)
	c.backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := c.Fetch(ctx, Source{Name: "canceled", URL: srv.URL})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch() = %v, want %v", err, context.Canceled)
	}
}

func TestOriginString(t *testing.T) {
	for _, c := range []struct {
		origin Origin
		want   string
	}{
		{OriginFile, "file"},
		{OriginNetwork, "network"},
		{OriginNotModified, "not-modified"},
		{OriginStaleCache, "stale-cache"},
		{Origin(9), "Origin(9)"},
	} {
		if got := c.origin.String(); got != c.want {
			t.Errorf("%d.String() = %q, want %q", c.origin, got, c.want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	for _, c := range []Config{{Retries: -1}, {Burst: -1}} {
		if err := c.Validate(); err == nil {
			t.Errorf("%+v.Validate() succeeded", c)
		}
	}
	var c Config
	if err := c.Validate(); err != nil {
		t.Errorf("zero Config.Validate() = %v", err)
	}
}
