package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	rulesets "github.com/database64128/rulesets-go"
	"github.com/database64128/rulesets-go/cfgfile"
	"github.com/database64128/rulesets-go/logging"
	"github.com/database64128/rulesets-go/service"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	version  bool
	fmtConf  bool
	testConf bool
	serve    bool
	confPath string
	zapConf  string
	logLevel zapcore.Level
)

func init() {
	flag.BoolVar(&version, "version", false, "Print version information and exit")
	flag.BoolVar(&fmtConf, "fmtConf", false, "Format the configuration file")
	flag.BoolVar(&testConf, "testConf", false, "Test the configuration file and exit")
	flag.BoolVar(&serve, "serve", false, "Keep running: rebuild on the configured interval and on SIGUSR1, and serve the API if enabled")
	flag.StringVar(&confPath, "confPath", "config.yaml", "Path to the JSON or YAML configuration file")
	flag.StringVar(&zapConf, "zapConf", "console", "Preset name or path to the JSON configuration file for building the zap logger.\nAvailable presets: console, console-nocolor, console-notime, systemd, production, development")
	flag.TextVar(&logLevel, "logLevel", zapcore.InfoLevel, "Log level for the console and systemd presets.\nAvailable levels: debug, info, warn, error, dpanic, panic, fatal")
}

func main() {
	flag.Parse()

	if version {
		os.Stdout.WriteString("rulesets-go " + rulesets.Version + "\n")
		if info, ok := debug.ReadBuildInfo(); ok {
			os.Stdout.WriteString(info.String())
		}
		return
	}

	logger, err := logging.NewZapLogger(zapConf, logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("rulesets-go", zap.String("version", rulesets.Version))

	var sc service.Config
	if err = cfgfile.Open(confPath, &sc); err != nil {
		logger.Fatal("Failed to load config",
			zap.String("confPath", confPath),
			zap.Error(err),
		)
	}

	if fmtConf {
		if err = cfgfile.Save(confPath, &sc); err != nil {
			logger.Fatal("Failed to save config",
				zap.String("confPath", confPath),
				zap.Error(err),
			)
		}
		logger.Info("Formatted config file", zap.String("confPath", confPath))
	}

	m, err := sc.Manager(logger)
	if err != nil {
		logger.Fatal("Failed to create service manager",
			zap.String("confPath", confPath),
			zap.Error(err),
		)
	}

	if testConf {
		logger.Info("Config test OK", zap.String("confPath", confPath))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("Received exit signal", zap.Stringer("signal", sig))
		signal.Stop(sigCh)
		cancel()
	}()

	if !serve {
		reports, err := m.Build(ctx)
		for _, r := range reports {
			logger.Info("Ruleset summary",
				zap.String("ruleset", r.Name),
				zap.Int("input", r.Input),
				zap.Int("output", r.Output),
				zap.Any("files", r.Files),
			)
		}
		if err != nil {
			logger.Fatal("Build failed", zap.Error(err))
		}
		return
	}

	if err = m.Start(ctx); err != nil {
		logger.Fatal("Failed to start services",
			zap.String("confPath", confPath),
			zap.Error(err),
		)
	}

	<-ctx.Done()
	m.Stop()
}
