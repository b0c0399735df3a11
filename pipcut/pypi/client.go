package pypi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joomcode/errorx"
	"github.com/kolo/xmlrpc"
	"github.com/steelcutops/pipcut/logger"
)

const (
	// DefaultEndpoint is the legacy XML-RPC endpoint of the Python package index.
	DefaultEndpoint = "http://pypi.python.org/pypi"

	releasesMethod = "package_releases"
)

// RetryPolicy bounds the network round trips made for one lookup.
// Attempts of 1 disables retries.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
	Timeout  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 3,
		Backoff:  time.Second,
		Timeout:  30 * time.Second,
	}
}

// Client resolves release lists through the index XML-RPC API. Nothing is
// cached; every lookup goes to the network.
type Client struct {
	endpoint  string
	transport http.RoundTripper
	policy    RetryPolicy
	logger    logger.Logger
}

type Option func(*Client)

func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		if transport != nil {
			c.transport = transport
		}
	}
}

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		endpoint:  DefaultEndpoint,
		transport: http.DefaultTransport,
		policy:    DefaultRetryPolicy(),
		logger:    logger.New(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.policy.Attempts < 1 {
		c.policy.Attempts = 1
	}

	return c
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Latest returns the first release the index reports for name.
func (c *Client) Latest(ctx context.Context, name string) (string, error) {
	releases, err := c.PackageReleases(ctx, name)
	if err != nil {
		return "", err
	}

	if len(releases) == 0 {
		return "", NewNoReleasesError(name, c.endpoint)
	}

	return releases[0], nil
}

// PackageReleases calls package_releases(name), retrying transport and RPC
// failures according to the client's RetryPolicy.
func (c *Client) PackageReleases(ctx context.Context, name string) ([]string, error) {
	var lastErr error

	for attempt := 1; attempt <= c.policy.Attempts; attempt++ {
		releases, err := c.call(ctx, name)
		if err == nil {
			c.logger.Debug("Fetched releases", "package", name, "count", len(releases), "attempt", attempt)
			return releases, nil
		}

		lastErr = err
		c.logger.Warn("Index lookup failed", "package", name, "endpoint", c.endpoint, "attempt", attempt, "error", err)

		if ctx.Err() != nil || attempt == c.policy.Attempts {
			break
		}

		if c.policy.Backoff > 0 {
			select {
			case <-time.After(c.policy.Backoff):
			case <-ctx.Done():
				return nil, NewRPCError(ctx.Err(), name, c.endpoint, attempt)
			}
		}
	}

	return nil, NewRPCError(lastErr, name, c.endpoint, c.policy.Attempts)
}

func (c *Client) call(ctx context.Context, name string) ([]string, error) {
	callCtx := ctx
	if c.policy.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.policy.Timeout)
		defer cancel()
	}

	rpc, err := xmlrpc.NewClient(c.endpoint, &contextTransport{ctx: callCtx, base: c.transport})
	if err != nil {
		return nil, errorx.IllegalArgument.Wrap(err, "invalid index endpoint %q", c.endpoint)
	}
	defer rpc.Close()

	type reply struct {
		releases []string
		err      error
	}
	done := make(chan reply, 1)
	go func() {
		var releases []string
		err := rpc.Call(releasesMethod, name, &releases)
		done <- reply{releases: releases, err: err}
	}()

	select {
	case r := <-done:
		return r.releases, r.err
	case <-callCtx.Done():
		return nil, callCtx.Err()
	}
}

// contextTransport binds outgoing requests to ctx so an expired attempt
// aborts the HTTP exchange, and turns non-2xx replies into errors.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t *contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req.WithContext(t.ctx))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("index responded %s", resp.Status)
	}

	return resp, nil
}
