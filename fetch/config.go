package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/database64128/rulesets-go/cfgfile"
	"github.com/database64128/tfo-go/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultRetryBackoff = time.Second
	defaultUserAgent    = "rulesets-go"
)

// Config is the configuration for fetching sources.
type Config struct {
	// Timeout is the timeout of a single request, including reading the body.
	// Defaults to 30s.
	Timeout cfgfile.Duration `json:"timeout,omitzero" yaml:"timeout,omitempty"`

	// Retries is the number of extra rounds over the source URLs after the first fails.
	Retries int `json:"retries,omitzero" yaml:"retries,omitempty"`

	// RetryBackoff is the delay before the first retry. It doubles on every retry.
	// Defaults to 1s.
	RetryBackoff cfgfile.Duration `json:"retryBackoff,omitzero" yaml:"retryBackoff,omitempty"`

	// RequestsPerSecond limits the rate of requests across all sources.
	// If not positive, requests are not rate limited.
	RequestsPerSecond float64 `json:"requestsPerSecond,omitzero" yaml:"requestsPerSecond,omitempty"`

	// Burst is the maximum number of requests sent at once under the rate limit.
	// Defaults to 1.
	Burst int `json:"burst,omitzero" yaml:"burst,omitempty"`

	// UserAgent is sent with every request.
	UserAgent string `json:"userAgent,omitzero" yaml:"userAgent,omitempty"`

	// FastOpen enables TCP Fast Open on outgoing connections,
	// falling back to regular connects when unsupported.
	FastOpen bool `json:"fastOpen,omitzero" yaml:"fastOpen,omitempty"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Retries < 0 {
		return fmt.Errorf("negative retries: %d", c.Retries)
	}
	if c.Burst < 0 {
		return fmt.Errorf("negative burst: %d", c.Burst)
	}
	return nil
}

// NewClient returns a new client. If cacheDir is not empty, it is created if needed
// and used to cache response bodies.
func (c *Config) NewClient(logger *zap.Logger, cacheDir string) (*Client, error) {
	if cacheDir != "" {
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	limit := rate.Inf
	if c.RequestsPerSecond > 0 {
		limit = rate.Limit(c.RequestsPerSecond)
	}
	burst := c.Burst
	if burst == 0 {
		burst = 1
	}

	userAgent := c.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	timeout := c.Timeout.ValueOr(defaultTimeout)

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = newDialContext(c.FastOpen, timeout)

	return &Client{
		logger: logger,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		limiter:   rate.NewLimiter(limit, burst),
		cache:     diskCache{dir: cacheDir},
		retries:   c.Retries,
		backoff:   c.RetryBackoff.ValueOr(defaultRetryBackoff),
		userAgent: userAgent,
	}, nil
}

// newDialContext returns a dial function backed by a TFO dialer.
// The payload is left empty, so with TFO enabled the handshake carries the first write.
func newDialContext(fastOpen bool, timeout time.Duration) func(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := tfo.Dialer{
		DisableTFO: !fastOpen,
		Fallback:   true,
	}
	dialer.Timeout = timeout
	dialer.KeepAlive = 30 * time.Second

	return func(ctx context.Context, network, address string) (net.Conn, error) {
		return dialer.DialContext(ctx, network, address, nil)
	}
}
