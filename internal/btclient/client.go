// Package btclient fetches and decodes JSON from the BulkTracker API.
//
// All requests are plain GETs relative to a configured base URL. Responses
// are optionally cached (see Cache) so that re-rendering a view, for
// example after a re-sort, does not go back to the upstream server.
package btclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bulktracker/btdash/internal/protocol"
)

const maxBodyBytes = 32 << 20

var (
	// ErrFetchFailure matches every *FetchError.
	ErrFetchFailure = errors.New("fetch failure")
	// ErrMalformedResponse reports a body that does not match the expected
	// record schema.
	ErrMalformedResponse = errors.New("malformed response")
)

// FetchError is returned for network failures and non-2xx responses.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: http %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetchFailure }

// Fetcher returns the raw body of a GET on a path relative to the API root.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// Cache stores response bodies by path. *store.Store implements it.
type Cache interface {
	GetResponse(ctx context.Context, key string, now time.Time) ([]byte, bool, error)
	PutResponse(ctx context.Context, key string, body []byte, ttl time.Duration, now time.Time) error
}

type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	// Cache persists response bodies. When nil and TTL is positive, an
	// in-process MemoryCache is used.
	Cache Cache
	TTL   time.Duration
	// OnFetched is called after every successful upstream round trip.
	OnFetched func(ctx context.Context, path string)
}

type Client struct {
	base      *url.URL
	http      *http.Client
	cache     Cache
	memory    *MemoryCache
	ttl       time.Duration
	onFetched func(ctx context.Context, path string)
	now       func() time.Time
}

func New(baseURL string, opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("upstream url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	c := &Client{
		base:      base,
		http:      hc,
		ttl:       opts.TTL,
		onFetched: opts.OnFetched,
		now:       time.Now,
	}
	switch {
	case opts.TTL <= 0:
	case opts.Cache != nil:
		c.cache = opts.Cache
	default:
		c.memory = NewMemoryCache(defaultMemoryEntries)
		c.cache = c.memory
	}
	return c, nil
}

// BaseURL returns the API root with a trailing slash.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// SweepMemory drops expired entries of the in-process cache, if one is in
// use, and reports how many were removed.
func (c *Client) SweepMemory(now time.Time) int {
	if c.memory == nil {
		return 0
	}
	return c.memory.Sweep(now)
}

// MemoryEntries reports the size of the in-process cache, or -1 when a
// persistent cache (or none) is configured.
func (c *Client) MemoryEntries() int {
	if c.memory == nil {
		return -1
	}
	return c.memory.Len()
}

// Resolve returns the absolute URL for a path relative to the API root.
func (c *Client) Resolve(path string) string {
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return c.base.String() + strings.TrimPrefix(path, "/")
	}
	return c.base.ResolveReference(ref).String()
}

func (c *Client) Fetch(ctx context.Context, path string) ([]byte, error) {
	key := strings.TrimPrefix(path, "/")
	if c.cache != nil {
		body, ok, err := c.cache.GetResponse(ctx, key, c.now())
		if err != nil {
			slog.Warn("read response cache", "path", key, "error", err)
		} else if ok {
			slog.Debug("used cached response", "path", key)
			return body, nil
		}
	}

	target := c.Resolve(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{URL: target, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{URL: target, Err: fmt.Errorf("read body: %w", err)}
	}

	if c.onFetched != nil {
		c.onFetched(ctx, key)
	}
	if c.cache != nil {
		if err := c.cache.PutResponse(ctx, key, body, c.ttl, c.now()); err != nil {
			slog.Warn("write response cache", "path", key, "error", err)
		}
	}
	return body, nil
}

// DecodeList decodes body as a JSON array of T. The response itself is the
// record set; a JSON null is an empty set. Records implementing
// protocol.Validator are validated.
func DecodeList[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrMalformedResponse)
	}
	var out []T
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	for i := range out {
		if v, ok := any(out[i]).(protocol.Validator); ok {
			if err := v.Validate(); err != nil {
				return nil, fmt.Errorf("%w: record %d: %v", ErrMalformedResponse, i, err)
			}
		}
	}
	return out, nil
}

// DecodeObject decodes body as a single JSON object of type T.
func DecodeObject[T any](body []byte) (T, error) {
	var out T
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return out, fmt.Errorf("%w: expected a JSON object", ErrMalformedResponse)
	}
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if v, ok := any(out).(protocol.Validator); ok {
		if err := v.Validate(); err != nil {
			return out, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	return out, nil
}

// FetchList fetches path and decodes it with DecodeList.
func FetchList[T any](ctx context.Context, f Fetcher, path string) ([]T, error) {
	body, err := f.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	out, err := DecodeList[T](body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// FetchObject fetches path and decodes it with DecodeObject.
func FetchObject[T any](ctx context.Context, f Fetcher, path string) (T, error) {
	body, err := f.Fetch(ctx, path)
	if err != nil {
		var zero T
		return zero, err
	}
	out, err := DecodeObject[T](body)
	if err != nil {
		return out, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}
