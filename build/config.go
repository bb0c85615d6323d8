// Package build compiles configured rulesets from their sources into output files.
package build

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/database64128/rulesets-go/fetch"
	"github.com/database64128/rulesets-go/output"
	"github.com/database64128/rulesets-go/parse"
	"go.uber.org/zap"
)

// RulesetType is the kind of entries a ruleset holds.
type RulesetType string

const (
	// TypeDomain rulesets hold hostname rules.
	TypeDomain RulesetType = "domain"

	// TypeIP rulesets hold IP prefixes.
	TypeIP RulesetType = "ip"
)

// SourceConfig is the configuration of one source of a ruleset.
type SourceConfig struct {
	// Name identifies the source in logs and metrics.
	Name string `json:"name" yaml:"name"`

	// URL is the primary URL of the source.
	URL string `json:"url,omitzero" yaml:"url,omitempty"`

	// Mirrors are tried in order when URL fails.
	Mirrors []string `json:"mirrors,omitzero" yaml:"mirrors,omitempty"`

	// Path is the path to a local file. Mutually exclusive with URL.
	Path string `json:"path,omitzero" yaml:"path,omitempty"`

	// Format is the format of the source.
	Format parse.Format `json:"format" yaml:"format"`

	// Tag selects dlc lines with the attribute. Only applicable to the dlc format.
	Tag string `json:"tag,omitzero" yaml:"tag,omitempty"`

	// Optional allows the ruleset to be built without this source when it cannot be fetched.
	Optional bool `json:"optional,omitzero" yaml:"optional,omitempty"`

	// Whitelist makes every rule of this source an exception instead of an entry.
	Whitelist bool `json:"whitelist,omitzero" yaml:"whitelist,omitempty"`
}

// RulesetConfig is the configuration of one ruleset.
type RulesetConfig struct {
	// Name is the unique name of the ruleset, used in output file names.
	Name string `json:"name" yaml:"name"`

	// Title is written in output file headers. Defaults to Name.
	Title string `json:"title,omitzero" yaml:"title,omitempty"`

	// Description is written in output file headers.
	Description string `json:"description,omitzero" yaml:"description,omitempty"`

	// Type is "domain" or "ip". Defaults to "domain".
	Type RulesetType `json:"type,omitzero" yaml:"type,omitempty"`

	// Sources are the upstream lists.
	Sources []SourceConfig `json:"sources,omitzero" yaml:"sources,omitempty"`

	// Entries are rules added in addition to the sources.
	// Hostname rules for domain rulesets, prefixes or addresses for IP rulesets.
	Entries []string `json:"entries,omitzero" yaml:"entries,omitempty"`

	// Whitelist are rules subtracted from the ruleset.
	Whitelist []string `json:"whitelist,omitzero" yaml:"whitelist,omitempty"`

	// ExcludeKeywords drops every hostname rule containing any of the keywords.
	ExcludeKeywords []string `json:"excludeKeywords,omitzero" yaml:"excludeKeywords,omitempty"`

	// Outputs are the output kinds to write.
	Outputs []output.Kind `json:"outputs" yaml:"outputs"`
}

// rulesetType returns the ruleset type with the default applied.
func (rc *RulesetConfig) rulesetType() RulesetType {
	if rc.Type == "" {
		return TypeDomain
	}
	return rc.Type
}

// Config is the configuration of a build.
type Config struct {
	// CacheDir is where fetched sources are cached. If empty, caching is disabled.
	CacheDir string `json:"cacheDir,omitzero" yaml:"cacheDir,omitempty"`

	// OutputDir is where output files are written.
	OutputDir string `json:"outputDir" yaml:"outputDir"`

	// MetricsPath is where build metrics are written for the node exporter
	// textfile collector. If empty, metrics are not written.
	MetricsPath string `json:"metricsPath,omitzero" yaml:"metricsPath,omitempty"`

	// Concurrency is the maximum number of sources fetched at once.
	// Defaults to the number of CPUs.
	Concurrency int `json:"concurrency,omitzero" yaml:"concurrency,omitempty"`

	// Fetch configures fetching.
	Fetch fetch.Config `json:"fetch,omitzero" yaml:"fetch,omitempty"`

	// Rulesets are built in order.
	Rulesets []RulesetConfig `json:"rulesets" yaml:"rulesets"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("outputDir is required")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("negative concurrency: %d", c.Concurrency)
	}
	if err := c.Fetch.Validate(); err != nil {
		return fmt.Errorf("bad fetch config: %w", err)
	}
	if len(c.Rulesets) == 0 {
		return errors.New("no rulesets to build")
	}

	rulesetIndexByName := make(map[string]int, len(c.Rulesets))

	for i := range c.Rulesets {
		rc := &c.Rulesets[i]
		if dupIndex, ok := rulesetIndexByName[rc.Name]; ok {
			return fmt.Errorf("duplicate ruleset name: %q (index %d and %d)", rc.Name, dupIndex, i)
		}
		rulesetIndexByName[rc.Name] = i

		if err := rc.validate(); err != nil {
			return fmt.Errorf("bad ruleset %q: %w", rc.Name, err)
		}
	}

	return nil
}

func (rc *RulesetConfig) validate() error {
	if !validName(rc.Name) {
		return errors.New("name must be non-empty and consist of letters, digits, '-', '_', and '.'")
	}

	typ := rc.rulesetType()
	switch typ {
	case TypeDomain, TypeIP:
	default:
		return fmt.Errorf("unknown type: %q", rc.Type)
	}

	if len(rc.Sources) == 0 && len(rc.Entries) == 0 {
		return errors.New("no sources or entries")
	}

	sourceIndexByName := make(map[string]int, len(rc.Sources))

	for i := range rc.Sources {
		sc := &rc.Sources[i]
		if sc.Name == "" {
			return fmt.Errorf("source at index %d has no name", i)
		}
		if dupIndex, ok := sourceIndexByName[sc.Name]; ok {
			return fmt.Errorf("duplicate source name: %q (index %d and %d)", sc.Name, dupIndex, i)
		}
		sourceIndexByName[sc.Name] = i

		if (sc.URL == "") == (sc.Path == "") {
			return fmt.Errorf("source %q must have exactly one of url and path", sc.Name)
		}
		if len(sc.Mirrors) > 0 && sc.URL == "" {
			return fmt.Errorf("source %q has mirrors but no url", sc.Name)
		}
		if !sc.Format.Valid() {
			return fmt.Errorf("source %q has unknown format: %q", sc.Name, sc.Format)
		}
		if sc.Format.IsDomain() != (typ == TypeDomain) {
			return fmt.Errorf("source %q format %q does not fit a %s ruleset", sc.Name, sc.Format, typ)
		}
		if sc.Tag != "" && sc.Format != parse.FormatDlc {
			return fmt.Errorf("source %q has a tag but is not in the dlc format", sc.Name)
		}
	}

	switch typ {
	case TypeDomain:
		for _, entry := range rc.Entries {
			if _, ok := parse.NormalizeRule(entry); !ok {
				return fmt.Errorf("bad entry: %q", entry)
			}
		}
		for _, entry := range rc.Whitelist {
			if _, ok := parse.NormalizeRule(entry); !ok {
				return fmt.Errorf("bad whitelist entry: %q", entry)
			}
		}
	case TypeIP:
		if len(rc.ExcludeKeywords) > 0 {
			return errors.New("excludeKeywords only applies to domain rulesets")
		}
		for _, entry := range rc.Entries {
			if _, ok := parse.ParsePrefix(entry); !ok {
				return fmt.Errorf("bad entry: %q", entry)
			}
		}
		for _, entry := range rc.Whitelist {
			if _, ok := parse.ParsePrefix(entry); !ok {
				return fmt.Errorf("bad whitelist entry: %q", entry)
			}
		}
	}

	if len(rc.Outputs) == 0 {
		return errors.New("no outputs")
	}
	for _, kind := range rc.Outputs {
		if !kind.Valid() {
			return fmt.Errorf("unknown output kind: %q", kind)
		}
		if typ == TypeDomain && !kind.SupportsDomains() || typ == TypeIP && !kind.SupportsPrefixes() {
			return fmt.Errorf("output kind %q does not fit a %s ruleset", kind, typ)
		}
	}

	return nil
}

func validName(name string) bool {
	if name == "" || name[0] == '.' {
		return false
	}
	for i := 0; i < len(name); i++ {
		switch c := name[i]; {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9', c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

// NewBuilder validates the configuration and returns a builder.
func (c *Config) NewBuilder(logger *zap.Logger) (*Builder, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	client, err := c.Fetch.NewClient(logger, c.CacheDir)
	if err != nil {
		return nil, err
	}

	concurrency := c.Concurrency
	if concurrency == 0 {
		concurrency = runtime.NumCPU()
	}

	return newBuilder(logger, c, client, concurrency), nil
}
