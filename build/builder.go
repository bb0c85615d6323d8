package build

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/database64128/rulesets-go/apexsort"
	"github.com/database64128/rulesets-go/domainset"
	"github.com/database64128/rulesets-go/fetch"
	"github.com/database64128/rulesets-go/metrics"
	"github.com/database64128/rulesets-go/output"
	"github.com/database64128/rulesets-go/parse"
	"github.com/database64128/rulesets-go/prefixset"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Report summarizes the build of one ruleset.
type Report struct {
	Name string      `json:"name"`
	Type RulesetType `json:"type"`

	// Sources is the number of configured sources.
	Sources int `json:"sources"`

	// FailedSources is the number of optional sources that could not be fetched.
	FailedSources int `json:"failedSources"`

	// Input is the number of rules read from sources and entries.
	Input int `json:"input"`

	// Skipped is the number of source lines that could not be represented.
	Skipped int `json:"skipped"`

	// Deduped is the number of entries after deduplication, before exceptions.
	Deduped int `json:"deduped"`

	// Output is the number of entries written.
	Output int `json:"output"`

	// Files maps output kinds to the written file paths.
	Files map[output.Kind]string `json:"files"`

	// BuiltAt is when the ruleset finished building.
	BuiltAt time.Time `json:"builtAt"`

	// Duration is how long the ruleset took to build.
	Duration time.Duration `json:"duration"`
}

// Builder builds the configured rulesets.
//
// Build must not be called concurrently.
type Builder struct {
	logger      *zap.Logger
	config      *Config
	client      *fetch.Client
	concurrency int
	sorter      *apexsort.Sorter
	metrics     *metrics.Metrics
	store       *Store
}

func newBuilder(logger *zap.Logger, config *Config, client *fetch.Client, concurrency int) *Builder {
	return &Builder{
		logger:      logger,
		config:      config,
		client:      client,
		concurrency: concurrency,
		sorter:      apexsort.NewSorter(apexsort.DefaultCacheSize),
		metrics:     metrics.New(),
		store:       NewStore(),
	}
}

// Metrics returns the build metrics.
func (b *Builder) Metrics() *metrics.Metrics {
	return b.metrics
}

// Store returns the store of compiled rulesets.
func (b *Builder) Store() *Store {
	return b.store
}

// Build builds all rulesets in order and returns the reports of the successful ones.
//
// A failed ruleset does not stop the others. Its previous build stays in the store.
// The returned error joins the errors of all failed rulesets.
func (b *Builder) Build(ctx context.Context) ([]Report, error) {
	start := time.Now()
	reports := make([]Report, 0, len(b.config.Rulesets))
	var errs []error

	for i := range b.config.Rulesets {
		rc := &b.config.Rulesets[i]

		compiled, err := b.buildRuleset(ctx, rc)
		if err != nil {
			if ctx.Err() != nil {
				return reports, ctx.Err()
			}
			b.logger.Error("Failed to build ruleset", zap.String("ruleset", rc.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("ruleset %s: %w", rc.Name, err))
			continue
		}

		b.store.put(compiled)
		reports = append(reports, compiled.Report)

		b.logger.Info("Built ruleset",
			zap.String("ruleset", rc.Name),
			zap.Int("input", compiled.Report.Input),
			zap.Int("skipped", compiled.Report.Skipped),
			zap.Int("deduped", compiled.Report.Deduped),
			zap.Int("output", compiled.Report.Output),
			zap.Duration("duration", compiled.Report.Duration),
		)
	}

	err := errors.Join(errs...)
	now := time.Now()
	b.metrics.ObserveBuild(now.Sub(start), err == nil, now)

	if path := b.config.MetricsPath; path != "" {
		if merr := b.metrics.WriteTextfile(path); merr != nil {
			b.logger.Warn("Failed to write metrics", zap.String("metricsPath", path), zap.Error(merr))
		}
	}

	return reports, err
}

func (b *Builder) buildRuleset(ctx context.Context, rc *RulesetConfig) (*Compiled, error) {
	start := time.Now()

	results, failed, err := b.loadSources(ctx, rc)
	if err != nil {
		return nil, err
	}

	title := rc.Title
	if title == "" {
		title = rc.Name
	}

	c := Compiled{
		Report: Report{
			Name:          rc.Name,
			Type:          rc.rulesetType(),
			Sources:       len(rc.Sources),
			FailedSources: failed,
		},
		Ruleset: output.Ruleset{
			Name:        rc.Name,
			Title:       title,
			Description: rc.Description,
		},
	}

	for i := range results {
		c.Report.Skipped += results[i].Skipped
	}

	switch c.Report.Type {
	case TypeDomain:
		err = b.compileDomains(rc, results, &c)
	case TypeIP:
		err = b.compilePrefixes(rc, results, &c)
	}
	if err != nil {
		return nil, err
	}

	c.Report.Output = c.Ruleset.Len()
	b.metrics.SetEntries(rc.Name, metrics.StageInput, c.Report.Input)
	b.metrics.SetEntries(rc.Name, metrics.StageDeduped, c.Report.Deduped)
	b.metrics.SetEntries(rc.Name, metrics.StageOutput, c.Report.Output)
	b.metrics.SetSkipped(rc.Name, c.Report.Skipped)

	c.Report.Files = make(map[output.Kind]string, len(rc.Outputs))
	for _, kind := range rc.Outputs {
		path, err := output.WriteFile(b.config.OutputDir, kind, &c.Ruleset)
		if err != nil {
			return nil, err
		}
		c.Report.Files[kind] = path
	}

	c.Report.BuiltAt = time.Now()
	c.Report.Duration = c.Report.BuiltAt.Sub(start)
	return &c, nil
}

// loadSources fetches and parses the sources concurrently.
// The results are in source order. Failed optional sources have empty results.
func (b *Builder) loadSources(ctx context.Context, rc *RulesetConfig) (results []parse.Result, failed int, err error) {
	results = make([]parse.Result, len(rc.Sources))
	failedSources := make([]bool, len(rc.Sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i := range rc.Sources {
		sc := &rc.Sources[i]
		g.Go(func() error {
			r, err := b.loadSource(gctx, rc.Name, sc)
			if err != nil {
				b.metrics.ObserveFetchFailure(rc.Name, sc.Name)
				if sc.Optional && gctx.Err() == nil {
					b.logger.Warn("Skipping optional source",
						zap.String("ruleset", rc.Name),
						zap.String("source", sc.Name),
						zap.Error(err),
					)
					failedSources[i] = true
					return nil
				}
				return fmt.Errorf("source %s: %w", sc.Name, err)
			}
			results[i] = r
			return nil
		})
	}

	if err = g.Wait(); err != nil {
		return nil, 0, err
	}

	for _, f := range failedSources {
		if f {
			failed++
		}
	}
	return results, failed, nil
}

func (b *Builder) loadSource(ctx context.Context, ruleset string, sc *SourceConfig) (parse.Result, error) {
	body, err := b.client.Fetch(ctx, fetch.Source{
		Name:    sc.Name,
		URL:     sc.URL,
		Mirrors: sc.Mirrors,
		Path:    sc.Path,
	})
	if err != nil {
		return parse.Result{}, err
	}
	defer body.Close()

	b.metrics.ObserveFetch(ruleset, sc.Name, body.Origin)

	r, err := parse.Parse(sc.Format, body.Data, parse.Options{Tag: sc.Tag})
	if err != nil {
		return parse.Result{}, fmt.Errorf("failed to parse: %w", err)
	}

	if sc.Whitelist {
		r.Whitelist = append(r.Whitelist, r.Hostnames...)
		r.Hostnames = nil
		r.Skipped += len(r.Keywords)
		r.Keywords = nil
	}

	b.logger.Debug("Loaded source",
		zap.String("ruleset", ruleset),
		zap.String("source", sc.Name),
		zap.Stringer("origin", body.Origin),
		zap.Int("rules", r.Len()),
		zap.Int("skipped", r.Skipped),
	)

	return r, nil
}

// compileDomains feeds the results to a compact trie in source order,
// subtracts the exceptions, drops excluded keywords, and sorts.
func (b *Builder) compileDomains(rc *RulesetConfig, results []parse.Result, c *Compiled) error {
	trie := domainset.NewTrie(domainset.ModeCompact)
	var (
		whitelist []string
		keywords  []string
	)

	for _, entry := range rc.Entries {
		rule, _ := parse.NormalizeRule(entry)
		trie.Add(rule)
	}
	c.Report.Input += len(rc.Entries)

	for _, entry := range rc.Whitelist {
		rule, _ := parse.NormalizeRule(entry)
		whitelist = append(whitelist, rule)
	}

	for i := range results {
		r := &results[i]
		for _, hostname := range r.Hostnames {
			trie.Add(hostname)
		}
		whitelist = append(whitelist, r.Whitelist...)
		keywords = append(keywords, r.Keywords...)
		c.Report.Input += len(r.Hostnames) + len(r.Keywords)
	}

	c.Report.Deduped = trie.Size()

	for _, pattern := range whitelist {
		trie.Whitelist(pattern)
	}

	var rules []string
	if len(rc.ExcludeKeywords) > 0 {
		ka := domainset.KeywordAutomatonFromSlice(rc.ExcludeKeywords)
		rules = slices.Collect(ka.Filter(trie.All()))
		keywords = slices.DeleteFunc(keywords, ka.Match)
		b.metrics.SetEntries(rc.Name, metrics.StageExcluded, trie.Size()-len(rules))
	} else {
		rules = trie.Dump()
	}

	b.sorter.Sort(rules)
	slices.Sort(keywords)
	keywords = slices.Compact(keywords)

	c.Ruleset.Rules = rules
	c.Ruleset.Keywords = keywords

	dsb := domainset.NewBuilder(len(rules), len(rules)/2, len(keywords))
	for _, rule := range rules {
		dsb.InsertRule(rule)
	}
	for _, keyword := range keywords {
		dsb.InsertKeyword(keyword)
	}
	set, err := dsb.Set()
	if err != nil {
		return err
	}
	c.domains = set
	return nil
}

// compilePrefixes merges the prefixes into a minimal list and subtracts the exceptions.
func (b *Builder) compilePrefixes(rc *RulesetConfig, results []parse.Result, c *Compiled) error {
	var pb prefixset.Builder

	for _, entry := range rc.Entries {
		prefix, _ := parse.ParsePrefix(entry)
		pb.Add(prefix)
	}
	for _, entry := range rc.Whitelist {
		prefix, _ := parse.ParsePrefix(entry)
		pb.Whitelist(prefix)
	}

	for i := range results {
		r := &results[i]
		if rc.Sources[i].Whitelist {
			pb.Whitelist(r.Prefixes...)
			continue
		}
		pb.Add(r.Prefixes...)
	}
	c.Report.Input = pb.Added()

	set, err := pb.IPSet()
	if err != nil {
		return err
	}
	c.Ruleset.Prefixes = set.Prefixes()
	c.Report.Deduped = len(c.Ruleset.Prefixes)
	c.addrs = set
	return nil
}
