package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultTimeout        = 60 * time.Second
	DefaultUserAgent      = "uploadkit/1.0"
)

// Client downloads URLs into writers. Zero value is not usable; use New.
type Client struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

type options struct {
	connectTimeout time.Duration
	timeout        time.Duration
	verifyTLS      bool
	userAgent      string
	maxBytes       int64
	httpClient     *http.Client
}

// Option configures a Client.
type Option func(*options)

// WithConnectTimeout sets the dial timeout. Non-positive values keep the default.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.connectTimeout = d
		}
	}
}

// WithTimeout sets the total time allowed for one download, body included.
// Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithTLSVerify enables or disables certificate verification.
func WithTLSVerify(verify bool) Option {
	return func(o *options) { o.verifyTLS = verify }
}

// WithUserAgent sets the User-Agent header. An empty string keeps the default.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithMaxBytes caps the body size. Zero means unlimited.
func WithMaxBytes(n int64) Option {
	return func(o *options) { o.maxBytes = n }
}

// WithHTTPClient replaces the underlying client. Its redirect policy is left untouched,
// and the timeout and TLS options are ignored.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New creates a Client.
func New(opts ...Option) *Client {
	o := options{
		connectTimeout: DefaultConnectTimeout,
		timeout:        DefaultTimeout,
		userAgent:      DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := o.httpClient
	if c == nil {
		c = &http.Client{
			Timeout: o.timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         (&net.Dialer{Timeout: o.connectTimeout}).DialContext,
				TLSHandshakeTimeout: o.connectTimeout,
				TLSClientConfig:     &tls.Config{InsecureSkipVerify: !o.verifyTLS}, //nolint:gosec // opt-in via WithTLSVerify
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
			},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	return &Client{
		client:    c,
		userAgent: o.userAgent,
		maxBytes:  o.maxBytes,
	}
}

// Fetch streams the body of rawURL into w and returns the number of bytes written.
// Only http and https URLs are accepted. A redirect response is returned as
// ErrUnexpectedStatus rather than followed.
func (c *Client) Fetch(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return 0, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return 0, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if c.maxBytes > 0 && resp.ContentLength > c.maxBytes {
		return 0, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}

	body := io.Reader(resp.Body)
	if c.maxBytes > 0 {
		// One extra byte tells an exact fit apart from an overflow.
		body = io.LimitReader(resp.Body, c.maxBytes+1)
	}

	n, err := io.Copy(w, body)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return n, err
		}
		return n, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	if c.maxBytes > 0 && n > c.maxBytes {
		return n, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, c.maxBytes)
	}
	return n, nil
}
