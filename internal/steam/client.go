// Package steam talks to the Steam Web API and the undocumented store and
// community endpoints, and turns what they return into release records.
package steam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"steam-release-calendar/internal/logging"
	"steam-release-calendar/internal/metrics"
)

const (
	DefaultAPIBase       = "https://api.steampowered.com"
	DefaultStoreBase     = "https://store.steampowered.com"
	DefaultCommunityBase = "https://steamcommunity.com"

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Options configures a Client. Zero values fall back to DefaultOptions.
type Options struct {
	APIKey    string
	Country   string
	Language  string
	UserAgent string

	APIBase       string
	StoreBase     string
	CommunityBase string

	Timeout           time.Duration
	RetryMax          int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
	RequestsPerSecond float64

	Logger *slog.Logger
}

// DefaultOptions returns the settings used against the real Steam hosts.
func DefaultOptions() Options {
	return Options{
		Country:           "US",
		Language:          "english",
		UserAgent:         defaultUserAgent,
		APIBase:           DefaultAPIBase,
		StoreBase:         DefaultStoreBase,
		CommunityBase:     DefaultCommunityBase,
		Timeout:           20 * time.Second,
		RetryMax:          3,
		RetryWaitMin:      time.Second,
		RetryWaitMax:      30 * time.Second,
		RequestsPerSecond: 1,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Country == "" {
		o.Country = d.Country
	}
	if o.Language == "" {
		o.Language = d.Language
	}
	if o.UserAgent == "" {
		o.UserAgent = d.UserAgent
	}
	if o.APIBase == "" {
		o.APIBase = d.APIBase
	}
	if o.StoreBase == "" {
		o.StoreBase = d.StoreBase
	}
	if o.CommunityBase == "" {
		o.CommunityBase = d.CommunityBase
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.RetryMax < 0 {
		o.RetryMax = 0
	}
	if o.RetryWaitMin <= 0 {
		o.RetryWaitMin = d.RetryWaitMin
	}
	if o.RetryWaitMax < o.RetryWaitMin {
		o.RetryWaitMax = o.RetryWaitMin
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = d.RequestsPerSecond
	}
	if o.Logger == nil {
		o.Logger = logging.Get()
	}
	return o
}

// Client performs paced, retried GET requests against the Steam hosts.
// It is not safe for concurrent use.
type Client struct {
	opts    Options
	http    *retryablehttp.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewClient builds a Client. Store cookies set by one request are sent on the
// next, which some wishlist endpoints require.
func NewClient(opts Options) *Client {
	opts = opts.withDefaults()

	jar, _ := cookiejar.New(nil)

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Timeout: opts.Timeout, Jar: jar}
	rc.RetryMax = opts.RetryMax
	rc.RetryWaitMin = opts.RetryWaitMin
	rc.RetryWaitMax = opts.RetryWaitMax
	rc.Logger = logging.NewRetryLogger(opts.Logger)
	// Hand the last response back so a final 429 can be told apart.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		opts:    opts,
		http:    rc,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		log:     opts.Logger,
	}
}

// HasAPIKey reports whether Web API calls that need a key can be made.
func (c *Client) HasAPIKey() bool {
	return c.opts.APIKey != ""
}

type request struct {
	op       string // human readable, used in errors
	endpoint string // metric label
	base     string
	path     string
	query    url.Values
	withKey  bool
	referer  string
	accept   string
}

func (r request) publicURL() string {
	return r.base + r.path
}

// get performs r and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, r request) ([]byte, error) {
	body, err := c.do(ctx, r)
	outcome := metrics.OutcomeSuccess
	switch {
	case errors.Is(err, ErrRateLimited):
		outcome = metrics.OutcomeRateLimited
	case errors.Is(err, ErrNotFound):
		outcome = metrics.OutcomeNotFound
	case err != nil:
		outcome = metrics.OutcomeError
	}
	metrics.HTTPRequests.WithLabelValues(r.endpoint, outcome).Inc()
	if err != nil {
		return nil, &RequestError{Op: r.op, URL: r.publicURL(), Err: err}
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	q := url.Values{}
	for k, v := range r.query {
		q[k] = v
	}
	if r.withKey {
		if c.opts.APIKey == "" {
			return nil, ErrAPIKeyRequired
		}
		q.Set("key", c.opts.APIKey)
	}
	full := r.publicURL()
	if len(q) > 0 {
		full += "?" + q.Encode()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	if r.accept != "" {
		req.Header.Set("Accept", r.accept)
	}
	if r.referer != "" {
		req.Header.Set("Referer", r.referer)
	}

	c.log.Debug("steam request", "op", r.op, "url", r.publicURL())
	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case r.withKey && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden):
		return nil, ErrInvalidAPIKey
	default:
		return nil, &StatusError{URL: r.publicURL(), Code: resp.StatusCode}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return b, nil
}

func (c *Client) apiRequest(op, endpoint, path string, q url.Values, withKey bool) request {
	return request{
		op:       op,
		endpoint: endpoint,
		base:     c.opts.APIBase,
		path:     path,
		query:    q,
		withKey:  withKey,
		accept:   "application/json",
	}
}

func (c *Client) storeRequest(op, endpoint, path string, q url.Values) request {
	return request{
		op:       op,
		endpoint: endpoint,
		base:     c.opts.StoreBase,
		path:     path,
		query:    q,
		accept:   "application/json",
	}
}

// wishlistPage is the public wishlist page used both for scraping and as Referer.
func (c *Client) wishlistPage(steamID string) string {
	return fmt.Sprintf("%s/wishlist/profiles/%s/", c.opts.StoreBase, steamID)
}
