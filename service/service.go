// Package service wires the ruleset builder, the rebuild scheduler, and the API server together.
package service

import (
	"context"
	"fmt"

	rulesets "github.com/database64128/rulesets-go"
	"github.com/database64128/rulesets-go/api"
	"github.com/database64128/rulesets-go/build"
	"github.com/database64128/rulesets-go/cfgfile"
	"go.uber.org/zap"
)

// Config is the main configuration structure.
// It may be marshaled as or unmarshaled from JSON or YAML.
type Config struct {
	build.Config `yaml:",inline"`

	// Interval is the time between scheduled rebuilds in serve mode.
	// If zero, rulesets are only rebuilt on SIGUSR1.
	Interval cfgfile.Duration `json:"interval,omitzero" yaml:"interval,omitempty"`

	// API configures the API server in serve mode.
	API api.Config `json:"api,omitzero" yaml:"api,omitempty"`
}

// Validate checks the configuration.
func (sc *Config) Validate() error {
	if err := sc.Config.Validate(); err != nil {
		return err
	}
	if sc.Interval.Value() < 0 {
		return fmt.Errorf("negative interval: %s", sc.Interval.Value())
	}
	return nil
}

// Manager initializes the service manager.
//
// Initialization order: builder -> scheduler -> API server
func (sc *Config) Manager(logger *zap.Logger) (*Manager, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	builder, err := sc.NewBuilder(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create builder: %w", err)
	}

	scheduler := NewScheduler(logger, builder, sc.Interval.Value())
	services := []rulesets.Service{scheduler}

	if sc.API.Enabled {
		apiServer, err := sc.API.NewServer(logger, builder.Store(), builder.Metrics())
		if err != nil {
			return nil, fmt.Errorf("failed to create API server: %w", err)
		}
		services = append(services, apiServer)
	}

	return &Manager{
		services:       services,
		builder:        builder,
		reloadNotifier: newReloadNotifier(logger, scheduler),
		logger:         logger,
	}, nil
}

// Manager manages the services.
type Manager struct {
	services       []rulesets.Service
	builder        *build.Builder
	reloadNotifier reloadNotifier
	logger         *zap.Logger
}

// Build builds all rulesets once.
func (m *Manager) Build(ctx context.Context) ([]build.Report, error) {
	return m.builder.Build(ctx)
}

// Start starts all configured services.
func (m *Manager) Start(ctx context.Context) error {
	for _, s := range m.services {
		if err := s.Start(ctx); err != nil {
			kv := s.ZapField()
			return fmt.Errorf("failed to start %s=%q: %w", kv.Key, kv.String, err)
		}
		m.logger.Info("Started service", s.ZapField())
	}
	m.reloadNotifier.start()
	return nil
}

// Stop stops all running services.
func (m *Manager) Stop() {
	m.reloadNotifier.stop()
	for _, s := range m.services {
		kv := s.ZapField()
		if err := s.Stop(); err != nil {
			m.logger.Warn("Failed to stop service", kv, zap.Error(err))
			continue
		}
		m.logger.Info("Stopped service", kv)
	}
}
