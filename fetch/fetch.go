// Package fetch retrieves source rule lists from local files and HTTP(S) URLs,
// with retries, mirrors, rate limiting, and an on-disk cache.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/database64128/rulesets-go/mmap"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// MaxBodySize is the maximum size of a fetched source.
const MaxBodySize = 256 << 20

// Source identifies where to fetch a rule list from.
// Exactly one of Path and URL is set.
type Source struct {
	// Name identifies the source in logs.
	Name string

	// URL is the primary URL.
	URL string

	// Mirrors are tried in order after URL fails.
	Mirrors []string

	// Path is a local file path.
	Path string
}

// Origin describes where the data of a [Body] came from.
type Origin uint8

const (
	// OriginFile is a local file.
	OriginFile Origin = iota

	// OriginNetwork is a fresh response body.
	OriginNetwork

	// OriginNotModified is the cached copy, confirmed by the server to be current.
	OriginNotModified

	// OriginStaleCache is the cached copy, served because all attempts failed.
	OriginStaleCache
)

// String implements [fmt.Stringer.String].
func (o Origin) String() string {
	switch o {
	case OriginFile:
		return "file"
	case OriginNetwork:
		return "network"
	case OriginNotModified:
		return "not-modified"
	case OriginStaleCache:
		return "stale-cache"
	default:
		return "Origin(" + strconv.Itoa(int(o)) + ")"
	}
}

// Body is a fetched rule list.
type Body struct {
	// Data is the content. It must not be used after Close.
	Data string

	// Origin is where Data came from.
	Origin Origin

	// Hash is the BLAKE3-256 hash of Data.
	Hash [32]byte

	close func() error
}

// Close releases the resources held by the body.
func (b *Body) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

func newBody(data string, origin Origin, close func() error) *Body {
	return &Body{
		Data:   data,
		Origin: origin,
		Hash:   hashString(data),
		close:  close,
	}
}

// Client fetches sources.
//
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	logger    *zap.Logger
	client    *http.Client
	limiter   *rate.Limiter
	cache     diskCache
	retries   int
	backoff   time.Duration
	userAgent string
}

// Fetch returns the content of the source.
//
// URLs are tried in order (primary first, then mirrors), for up to 1+retries rounds,
// with exponential backoff between rounds. If every attempt fails and a cached copy exists,
// the cached copy is returned with [OriginStaleCache].
func (c *Client) Fetch(ctx context.Context, src Source) (*Body, error) {
	if src.Path != "" {
		data, close, err := mmap.ReadFile[string](src.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read source %s: %w", src.Name, err)
		}
		return newBody(data, OriginFile, close), nil
	}

	if src.URL == "" {
		return nil, fmt.Errorf("source %s has neither path nor URL", src.Name)
	}

	key := c.cache.key(src.URL)
	meta, hasCache := c.cache.loadMeta(key)

	urls := make([]string, 0, 1+len(src.Mirrors))
	urls = append(urls, src.URL)
	urls = append(urls, src.Mirrors...)

	var errs []error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			delay := c.backoff << (attempt - 1)
			c.logger.Debug("Retrying source",
				zap.String("source", src.Name),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		for i, u := range urls {
			var m *cacheMeta
			if hasCache && i == 0 {
				m = &meta
			}

			body, err := c.get(ctx, key, u, m)
			if err == nil {
				return body, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			c.logger.Debug("Failed to fetch source",
				zap.String("source", src.Name),
				zap.String("url", u),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)

	if hasCache {
		body, cerr := c.cache.loadBody(key, &meta, OriginStaleCache)
		if cerr == nil {
			c.logger.Warn("Serving stale cached copy of source",
				zap.String("source", src.Name),
				zap.Time("fetchedAt", meta.FetchedAt),
				zap.Error(err),
			)
			return body, nil
		}
		err = errors.Join(err, cerr)
	}

	return nil, fmt.Errorf("failed to fetch source %s: %w", src.Name, err)
}

// get performs one GET request. If m is not nil, the request is conditional on the cached copy.
func (c *Client) get(ctx context.Context, key, url string, m *cacheMeta) (*Body, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if m != nil {
		if m.ETag != "" {
			req.Header.Set("If-None-Match", m.ETag)
		}
		if m.LastModified != "" {
			req.Header.Set("If-Modified-Since", m.LastModified)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotModified:
		if m == nil {
			return nil, fmt.Errorf("%s: unexpected status %s", url, resp.Status)
		}
		return c.cache.loadBody(key, m, OriginNotModified)
	default:
		return nil, fmt.Errorf("%s: unexpected status %s", url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read body: %w", url, err)
	}
	if len(data) > MaxBodySize {
		return nil, fmt.Errorf("%s: body exceeds %d bytes", url, MaxBodySize)
	}

	body := newBody(string(data), OriginNetwork, nil)

	meta := cacheMeta{
		URL:          url,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		FetchedAt:    time.Now().UTC(),
	}
	if err = c.cache.store(key, &meta, data, body.Hash); err != nil {
		c.logger.Warn("Failed to cache source", zap.String("url", url), zap.Error(err))
	}

	return body, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
