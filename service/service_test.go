package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/database64128/rulesets-go/atomicfile"
	"github.com/database64128/rulesets-go/build"
	"github.com/database64128/rulesets-go/cfgfile"
	"github.com/database64128/rulesets-go/output"
	"github.com/database64128/rulesets-go/parse"
	"go.uber.org/zap/zaptest"
)

func newTestConfig(t *testing.T) (Config, string) {
	t.Helper()
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.txt")
	if err := os.WriteFile(sourcePath, []byte("a.example.com\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	return Config{
		Config: build.Config{
			OutputDir: filepath.Join(dir, "out"),
			Rulesets: []build.RulesetConfig{
				{
					Name:    "test",
					Sources: []build.SourceConfig{{Name: "file", Path: sourcePath, Format: parse.FormatPlain}},
					Outputs: []output.Kind{output.KindSurgeDomainSet},
				},
			},
		},
	}, sourcePath
}

func waitForOutput(t *testing.T, m *Manager, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c, ok := m.builder.Store().Get("test"); ok && c.Report.Output == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for a build with %d entries", want)
}

func TestManagerBuild(t *testing.T) {
	sc, _ := newTestConfig(t)
	m, err := sc.Manager(zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	reports, err := m.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if len(reports) != 1 || reports[0].Output != 1 {
		t.Errorf("unexpected reports: %+v", reports)
	}
}

func TestSchedulerTrigger(t *testing.T) {
	sc, sourcePath := newTestConfig(t)
	m, err := sc.Manager(zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	if err = m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	waitForOutput(t, m, 1)

	if err = atomicfile.WriteFileBytes(sourcePath, []byte("a.example.com\nb.example.com\nc.example.net\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m.services[0].(*Scheduler).Trigger()

	waitForOutput(t, m, 3)
}

func TestSchedulerInterval(t *testing.T) {
	sc, sourcePath := newTestConfig(t)
	sc.Interval = cfgfile.Duration(20 * time.Millisecond)
	m, err := sc.Manager(zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	if err = m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	waitForOutput(t, m, 1)

	if err = atomicfile.WriteFileBytes(sourcePath, []byte(".example.com\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c, _ := m.builder.Store().Get("test"); len(c.Ruleset.Rules) == 1 && c.Ruleset.Rules[0] == ".example.com" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for a scheduled rebuild")
}

func TestConfigValidate(t *testing.T) {
	sc, _ := newTestConfig(t)
	sc.Interval = cfgfile.Duration(-time.Second)
	if err := sc.Validate(); err == nil || !strings.Contains(err.Error(), "interval") {
		t.Errorf("Validate() = %v, want interval error", err)
	}
}

func TestConfigOpen(t *testing.T) {
	for _, c := range []struct {
		name    string
		content string
	}{
		{"config.json", `{"outputDir":"out","interval":"1h","rulesets":[{"name":"a","entries":["example.com"],"outputs":["domainset"]}]}`},
		{"config.yaml", "outputDir: out\ninterval: 1h\nrulesets:\n  - name: a\n    entries: [example.com]\n    outputs: [domainset]\n"},
	} {
		t.Run(c.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), c.name)
			if err := os.WriteFile(path, []byte(c.content), 0o644); err != nil {
				t.Fatal(err)
			}

			var sc Config
			if err := cfgfile.Open(path, &sc); err != nil {
				t.Fatalf("Open() failed: %v", err)
			}
			if sc.OutputDir != "out" || sc.Interval.Value() != time.Hour || len(sc.Rulesets) != 1 {
				t.Errorf("unexpected config: %+v", sc)
			}
			if err := sc.Validate(); err != nil {
				t.Errorf("Validate() failed: %v", err)
			}
		})
	}
}
