package trello

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the versioned root of the Trello REST API.
	DefaultBaseURL = "https://api.trello.com/1"
	// DefaultCooldown is how long the client waits after a 429 before its
	// single retry.
	DefaultCooldown = 90 * time.Second
	// DefaultAttempts bounds connection-level retries for one request.
	DefaultAttempts = 3

	maxBodyBytes = 64 << 20
	userAgent    = "trello-watchman"
)

// Doer performs HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Client is an authenticated Trello API client. It is safe for concurrent use.
type Client struct {
	key, token    string
	baseURL       string
	http          Doer
	sleep         Sleeper
	log           zerolog.Logger
	cooldown      time.Duration
	attempts      int
	retryInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root (tests, proxies).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the transport.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.http = d }
}

// WithSleeper replaces the cooldown sleep.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithCooldown overrides the 429 cooldown.
func WithCooldown(d time.Duration) Option {
	return func(c *Client) { c.cooldown = d }
}

// WithRetry sets the connection attempt bound and the initial backoff
// interval.
func WithRetry(attempts int, initial time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
		if initial > 0 {
			c.retryInterval = initial
		}
	}
}

// New returns a client authenticating with the given key/token pair.
func New(key, token string, opts ...Option) *Client {
	c := &Client{
		key:           key,
		token:         token,
		baseURL:       DefaultBaseURL,
		http:          &http.Client{Timeout: 60 * time.Second},
		sleep:         sleepContext,
		log:           zerolog.Nop(),
		cooldown:      DefaultCooldown,
		attempts:      DefaultAttempts,
		retryInterval: time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// defaultParams are sent with every request so that a search returns card
// and board summaries inline.
func defaultParams() url.Values {
	v := url.Values{}
	v.Set("cards_limit", "1000")
	v.Set("card_members", "true")
	v.Set("card_attachments", "true")
	v.Set("members_limit", "100")
	v.Set("boards_limit", "1000")
	v.Set("board", "true")
	v.Set("modelTypes", "cards,boards")
	return v
}

func (c *Client) authorization() string {
	return fmt.Sprintf(`OAuth oauth_consumer_key="%s", oauth_token="%s"`, c.key, c.token)
}

// get issues a GET against endpoint and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, endpoint string, extra url.Values, out any) error {
	params := defaultParams()
	for k, vs := range extra {
		params[k] = vs
	}
	target := c.baseURL + "/" + endpoint + "?" + params.Encode()

	resp, err := c.send(ctx, endpoint, target)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		drain(resp)
		c.log.Warn().Str("endpoint", endpoint).Dur("cooldown", c.cooldown).Msg("rate limit hit, cooling off")
		if err := c.sleep(ctx, c.cooldown); err != nil {
			return err
		}
		resp, err = c.send(ctx, endpoint, target)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return &RateLimitError{Endpoint: endpoint, Body: readBody(resp)}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RequestError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: readBody(resp)}
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

// send performs one logical request, retrying connection failures with
// exponential backoff. Any HTTP response, whatever its status, ends the
// retry loop.
func (c *Client) send(ctx context.Context, endpoint, target string) (*http.Response, error) {
	attempts := 0
	var buildErr error
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval

	resp, err := backoff.Retry(ctx, func() (*http.Response, error) {
		attempts++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			buildErr = fmt.Errorf("build request %s: %w", endpoint, err)
			return nil, backoff.Permanent(buildErr)
		}
		req.Header.Set("Authorization", c.authorization())
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, err
		}
		return resp, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.log.Debug().Err(err).Str("endpoint", endpoint).Dur("retry_in", next).Msg("request failed, retrying")
		}),
	)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return nil, err
		}
		if buildErr != nil {
			return nil, buildErr
		}
		return nil, &TransportError{Method: http.MethodGet, Endpoint: endpoint, Attempts: attempts, Err: err}
	}
	return resp, nil
}

func readBody(resp *http.Response) string {
	defer func() { _ = resp.Body.Close() }()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return strings.TrimSpace(string(b))
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
