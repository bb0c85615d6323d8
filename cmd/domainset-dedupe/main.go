// Domain set dedupe takes hostname lists in plaintext, hosts, AdGuard, v2fly/dlc, or domain set format,
// and writes one minimal, sorted ruleset in the requested output formats.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/database64128/rulesets-go/build"
	"github.com/database64128/rulesets-go/logging"
	"github.com/database64128/rulesets-go/output"
	"github.com/database64128/rulesets-go/parse"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	sources         []build.SourceConfig
	excludeKeywords []string
	outputs         []output.Kind

	tag      = flag.String("tag", "", "Select lines with the specified tag. If empty, select all lines. Only applicable to v2fly/dlc format.")
	name     = flag.String("name", "domainset", "Name of the ruleset, used in output file names.")
	title    = flag.String("title", "", "Title written in output file headers. Defaults to the name.")
	outDir   = flag.String("outDir", ".", "Directory to write output files to. Each output kind is written to its own subdirectory.")
	logLevel = zapcore.WarnLevel
)

func addSource(format parse.Format, whitelist bool) func(string) error {
	return func(path string) error {
		sources = append(sources, build.SourceConfig{
			Name:      strconv.Itoa(len(sources)) + ":" + path,
			Path:      path,
			Format:    format,
			Whitelist: whitelist,
		})
		return nil
	}
}

func init() {
	flag.Func("inPlain", "Path to input hostname list in plaintext format. May be repeated.", addSource(parse.FormatPlain, false))
	flag.Func("inHosts", "Path to input hosts file. May be repeated.", addSource(parse.FormatHosts, false))
	flag.Func("inAdGuard", "Path to input AdGuard DNS filter. May be repeated.", addSource(parse.FormatAdGuard, false))
	flag.Func("inDlc", "Path to input domain list in v2fly/dlc format. May be repeated.", addSource(parse.FormatDlc, false))
	flag.Func("inText", "Path to input domain set file in plaintext format. May be repeated.", addSource(parse.FormatDomainSet, false))
	flag.Func("whitelist", "Path to hostname list in plaintext format to subtract from the output. May be repeated.", addSource(parse.FormatPlain, true))
	flag.Func("exclude", "Drop every hostname containing the keyword. May be repeated.", func(s string) error {
		excludeKeywords = append(excludeKeywords, s)
		return nil
	})
	flag.Func("out", "Output kind: surge-domainset, surge-ruleset, clash-domainset, singbox, domainset. May be repeated.", func(s string) error {
		kind := output.Kind(s)
		if !kind.Valid() {
			return fmt.Errorf("unknown output kind: %q", s)
		}
		outputs = append(outputs, kind)
		return nil
	})
	flag.TextVar(&logLevel, "logLevel", zapcore.WarnLevel, "Log level.\nAvailable levels: debug, info, warn, error, dpanic, panic, fatal")
}

func main() {
	flag.Parse()

	if len(sources) == 0 {
		fmt.Fprintln(os.Stderr, "Specify at least one input file with -inPlain, -inHosts, -inAdGuard, -inDlc, or -inText.")
		flag.Usage()
		os.Exit(1)
	}

	if len(outputs) == 0 {
		outputs = []output.Kind{output.KindDomainSet}
	}

	if *tag != "" {
		for i := range sources {
			if sources[i].Format == parse.FormatDlc {
				sources[i].Tag = *tag
			}
		}
	}

	logger, err := logging.NewConsoleZapLogger(logLevel, false, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := build.Config{
		OutputDir: *outDir,
		Rulesets: []build.RulesetConfig{
			{
				Name:            *name,
				Title:           *title,
				Sources:         sources,
				ExcludeKeywords: excludeKeywords,
				Outputs:         outputs,
			},
		},
	}

	b, err := cfg.NewBuilder(logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Bad arguments:", err)
		os.Exit(1)
	}

	reports, err := b.Build(context.Background())
	if err != nil {
		logger.Fatal("Failed to build domain set", zap.Error(err))
	}

	r := &reports[0]
	fmt.Fprintf(os.Stderr, "Read %d rules, skipped %d lines, wrote %d entries.\n", r.Input, r.Skipped, r.Output)
	for _, kind := range outputs {
		fmt.Println(r.Files[kind])
	}
}
