// Package api serves built rulesets and build metrics over HTTP.
package api

import (
	"context"
	"errors"
	"net/http/pprof"
	"path"

	v1 "github.com/database64128/rulesets-go/api/v1"
	"github.com/database64128/rulesets-go/build"
	"github.com/database64128/rulesets-go/metrics"
	"github.com/database64128/tfo-go/v2"
	"github.com/gofiber/contrib/fiberzap"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"
)

// Config stores the configuration for the RESTful API.
type Config struct {
	// Enabled controls whether the API server is enabled.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Listen is the TCP address to listen on.
	Listen string `json:"listen" yaml:"listen"`

	// FastOpen enables TCP Fast Open on the listener.
	// The listener falls back to normal TCP when TFO is not available on the system.
	FastOpen bool `json:"fastOpen,omitzero" yaml:"fastOpen,omitempty"`

	// DebugPprof enables pprof endpoints for debugging and profiling.
	DebugPprof bool `json:"debugPprof,omitzero" yaml:"debugPprof,omitempty"`

	// EnableTrustedProxyCheck enables trusted proxy checks.
	EnableTrustedProxyCheck bool `json:"enableTrustedProxyCheck,omitzero" yaml:"enableTrustedProxyCheck,omitempty"`

	// TrustedProxies is the list of trusted proxies.
	// This only takes effect if EnableTrustedProxyCheck is true.
	TrustedProxies []string `json:"trustedProxies,omitzero" yaml:"trustedProxies,omitempty"`

	// ProxyHeader is the header used to determine the client's IP address.
	// If empty, the remote peer's address is used.
	ProxyHeader string `json:"proxyHeader,omitzero" yaml:"proxyHeader,omitempty"`

	// SecretPath adds a secret path prefix to all endpoints.
	// If empty, no secret path is added.
	SecretPath string `json:"secretPath,omitzero" yaml:"secretPath,omitempty"`
}

// NewServer returns a new API server from the config.
func (c *Config) NewServer(logger *zap.Logger, store *build.Store, m *metrics.Metrics) (*Server, error) {
	if c.Listen == "" {
		return nil, errors.New("no listen address specified")
	}

	app := newApp(c, logger, store, m)

	return &Server{
		logger: logger,
		app:    app,
		lc: tfo.ListenConfig{
			DisableTFO: !c.FastOpen,
			Fallback:   true,
		},
		address: c.Listen,
	}, nil
}

func newApp(c *Config, logger *zap.Logger, store *build.Store, m *metrics.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		ProxyHeader:             c.ProxyHeader,
		DisableStartupMessage:   true,
		EnableTrustedProxyCheck: c.EnableTrustedProxyCheck,
		TrustedProxies:          c.TrustedProxies,
	})

	app.Use(fiberzap.New(fiberzap.Config{
		Logger: logger,
	}))

	basePath := "/"
	if c.SecretPath != "" {
		basePath = joinPatternPath(basePath, c.SecretPath)
	}
	router := app.Group(basePath)

	if c.DebugPprof {
		register := func(path string, handler fiber.Handler) {
			router.Get(path, handler)
		}

		register("/debug/pprof/cmdline", adaptor.HTTPHandlerFunc(pprof.Cmdline))
		register("/debug/pprof/profile", adaptor.HTTPHandlerFunc(pprof.Profile))
		register("/debug/pprof/symbol", adaptor.HTTPHandlerFunc(pprof.Symbol))
		register("/debug/pprof/trace", adaptor.HTTPHandlerFunc(pprof.Trace))
		register("/debug/pprof/", adaptor.HTTPHandlerFunc(pprof.Index))
		register("/debug/pprof/:profile", func(c *fiber.Ctx) error {
			return adaptor.HTTPHandler(pprof.Handler(c.Params("profile")))(c)
		})
	}

	router.Get("/metrics", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4; charset=utf-8")
		return m.WriteText(c)
	})

	v1.Routes(router, store)

	return app
}

// joinPatternPath joins path elements into a route path.
func joinPatternPath(elem ...string) string {
	p := path.Join(elem...)
	if p == "" {
		return ""
	}
	// Add back the trailing slash removed by [path.Join].
	if last := elem[len(elem)-1]; last != "" && last[len(last)-1] == '/' {
		if p[len(p)-1] != '/' {
			return p + "/"
		}
	}
	return p
}

// Server is the RESTful API server.
type Server struct {
	logger  *zap.Logger
	app     *fiber.App
	lc      tfo.ListenConfig
	address string
}

// ZapField implements [rulesets.Service.ZapField].
func (s *Server) ZapField() zap.Field {
	return zap.String("service", "api")
}

// Start starts the API server.
func (s *Server) Start(ctx context.Context) error {
	ln, err := s.lc.Listen(ctx, "tcp", s.address)
	if err != nil {
		return err
	}

	go func() {
		if err := s.app.Listener(ln); err != nil {
			s.logger.Error("Failed to serve API", zap.Error(err))
		}
	}()

	s.logger.Info("Started API server", zap.Stringer("listenAddress", ln.Addr()))
	return nil
}

// Stop stops the API server.
func (s *Server) Stop() error {
	return s.app.Shutdown()
}
