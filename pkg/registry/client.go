package registry

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/snackpack/pkg/buildinfo"
	"github.com/matzehuels/snackpack/pkg/observability"
)

const (
	// DefaultURL is the public npm registry.
	DefaultURL = "https://registry.npmjs.org"

	defaultTimeout  = 30 * time.Second
	defaultAttempts = 3
	defaultDelay    = time.Second

	// maxTarballSize bounds how much of a tarball is read into memory.
	maxTarballSize = 256 << 20

	// acceptMetadata asks for the abbreviated install document, which carries
	// every field the pipeline needs at a fraction of the size.
	acceptMetadata = "application/vnd.npm.install-v1+json; q=1.0, application/json; q=0.8"
)

var (
	// ErrNotFound is returned when a package or tarball doesn't exist in the registry.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")

	// ErrIntegrity is returned when a tarball does not match its published checksum.
	ErrIntegrity = errors.New("integrity check failed")
)

// Options configures a [Client]. Zero values fall back to defaults.
type Options struct {
	BaseURL  string            // Registry root (default: DefaultURL)
	Timeout  time.Duration     // Per-request HTTP timeout (default: 30s)
	Attempts int               // Attempts per request, including the first (default: 3)
	Delay    time.Duration     // Initial retry delay, doubled per attempt (default: 1s)
	Headers  map[string]string // Extra headers applied to every request
}

// Client fetches package metadata and tarballs from a registry.
// A Client is safe for concurrent use.
type Client struct {
	http     *http.Client
	baseURL  string
	headers  map[string]string
	attempts int
	delay    time.Duration
}

// NewClient creates a Client from opts.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Attempts <= 0 {
		opts.Attempts = defaultAttempts
	}
	if opts.Delay <= 0 {
		opts.Delay = defaultDelay
	}
	return &Client{
		http:     &http.Client{Timeout: opts.Timeout},
		baseURL:  strings.TrimSuffix(opts.BaseURL, "/"),
		headers:  opts.Headers,
		attempts: opts.Attempts,
		delay:    opts.Delay,
	}
}

// FetchMetadata retrieves the registry document for a qualified package name.
// Returns an error wrapping [ErrNotFound] when the registry has no such package.
func (c *Client) FetchMetadata(ctx context.Context, name string) (*Metadata, error) {
	endpoint := c.baseURL + "/" + EscapeName(name)

	var meta Metadata
	err := Retry(ctx, c.attempts, c.delay, func() error {
		body, err := c.doRequest(ctx, endpoint, map[string]string{"Accept": acceptMetadata})
		if err != nil {
			return err
		}
		defer body.Close()
		meta = Metadata{}
		if err := json.NewDecoder(body).Decode(&meta); err != nil {
			return fmt.Errorf("decode metadata for %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: package %s", err, name)
		}
		return nil, err
	}
	if meta.Name == "" {
		meta.Name = name
	}
	return &meta, nil
}

// FetchTarball downloads m's tarball, verifies it against the published
// SHA-1 checksum when one exists, and extracts it into dir/package.
func (c *Client) FetchTarball(ctx context.Context, m *Manifest, dir string) error {
	if m == nil {
		return errors.New("nil manifest")
	}
	if m.Dist.Tarball == "" {
		return fmt.Errorf("no tarball published for %s@%s", m.Name, m.Version)
	}

	var data []byte
	err := Retry(ctx, c.attempts, c.delay, func() error {
		body, err := c.doRequest(ctx, m.Dist.Tarball, nil)
		if err != nil {
			return err
		}
		defer body.Close()
		data, err = io.ReadAll(io.LimitReader(body, maxTarballSize))
		if err != nil {
			return &RetryableError{Err: fmt.Errorf("%w: read tarball: %v", ErrNetwork, err)}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if m.Dist.Shasum != "" {
		sum := sha1.Sum(data)
		if got := hex.EncodeToString(sum[:]); !strings.EqualFold(got, m.Dist.Shasum) {
			return fmt.Errorf("%w: %s@%s: shasum %s, want %s", ErrIntegrity, m.Name, m.Version, got, m.Dist.Shasum)
		}
	}

	return Extract(bytes.NewReader(data), PackageDir(dir))
}

func (c *Client) doRequest(ctx context.Context, endpoint string, headers map[string]string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		return nil, &RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests, code >= 500:
		return &RetryableError{
			Err:   fmt.Errorf("%w: status %d", ErrNetwork, code),
			After: retryAfter(resp.Header),
		}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

// EscapeName encodes a qualified name for use as a registry path segment.
// Scoped names keep their "@" but have the separating slash escaped.
func EscapeName(name string) string {
	if scope, id, ok := strings.Cut(name, "/"); ok && strings.HasPrefix(scope, "@") {
		return scope + "%2F" + url.PathEscape(id)
	}
	return url.PathEscape(name)
}
