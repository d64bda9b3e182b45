// Package drug looks up structured drug metadata by medication name.
package drug

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/snapmed/internal/cache"
	"github.com/ppiankov/snapmed/internal/logging"
	"github.com/ppiankov/snapmed/internal/model"
	"github.com/ppiankov/snapmed/internal/util"
	"github.com/ppiankov/snapmed/internal/worker"
)

// notFoundMessage is the provider's sentinel body: {"message": "Not found"}
const notFoundMessage = "Not found"

// maxBodySize bounds how much of a provider response is read
const maxBodySize = 5 * 1024 * 1024

// Outcome classifies a lookup
type Outcome int

const (
	// Found means the provider returned a record payload
	Found Outcome = iota
	// NotFound means the provider answered with its not-found sentinel
	NotFound
	// UpstreamError means the call failed or the response was unusable
	UpstreamError
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	default:
		return "upstream_error"
	}
}

// Result is the raw outcome of one lookup
type Result struct {
	Outcome Outcome
	// Raw is the provider payload, set only when Outcome is Found
	Raw []byte
	// Err describes an UpstreamError
	Err error
	// Cached reports whether Raw came from the cache
	Cached bool
}

// Config holds drug API settings
type Config struct {
	URL       string
	Host      string
	Key       string
	Timeout   time.Duration // 0 = none
	UserAgent string

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// ConfigFromModel converts the application config
func ConfigFromModel(cfg *model.Config) Config {
	return Config{
		URL:        cfg.DrugAPI.URL,
		Host:       cfg.DrugAPI.Host,
		Key:        cfg.DrugAPI.Key,
		Timeout:    cfg.DrugAPI.Timeout,
		UserAgent:  cfg.HTTP.UserAgent,
		HTTPProxy:  cfg.HTTP.HTTPProxy,
		HTTPSProxy: cfg.HTTP.HTTPSProxy,
		NoProxy:    cfg.HTTP.NoProxy,
	}
}

// Client calls a RapidAPI-style drug information endpoint
type Client struct {
	config     Config
	httpClient *http.Client
	cache      cache.Cache
	cacheTTL   time.Duration
	limiter    *worker.Limiter
	logger     *logrus.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCache caches Found payloads; a nil cache disables caching
func WithCache(cc cache.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cc
		c.cacheTTL = ttl
	}
}

// WithLimiter throttles calls per host
func WithLimiter(l *worker.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithLogger sets the logger
func WithLogger(l *logrus.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a drug API client
func NewClient(config Config, opts ...Option) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("drug API URL is required")
	}
	if _, err := url.Parse(config.URL); err != nil {
		return nil, fmt.Errorf("parse drug API URL: %w", err)
	}

	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: util.NewTransport(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDefault(c.logger)
	return c, nil
}

// Lookup performs one GET <url>?drug=<name>. There is no retry.
func (c *Client) Lookup(ctx context.Context, name string) Result {
	name = strings.TrimSpace(name)
	if name == "" {
		return Result{Outcome: NotFound}
	}

	key := cache.DrugKey(name)
	if c.cache != nil {
		if raw, ok := c.cache.Get(key); ok {
			return Result{Outcome: Found, Raw: raw, Cached: true}
		}
	}

	result := c.fetch(ctx, name)

	log := c.logger.WithFields(logrus.Fields{"drug": name, "outcome": result.Outcome.String()})
	if result.Err != nil {
		log.WithError(result.Err).Warn("drug lookup failed")
	} else {
		log.Debug("drug lookup")
	}

	if result.Outcome == Found && c.cache != nil {
		if err := c.cache.Set(key, result.Raw, c.cacheTTL); err != nil {
			c.logger.WithError(err).Warn("drug cache write failed")
		}
	}

	return result
}

func (c *Client) fetch(ctx context.Context, name string) Result {
	endpoint, err := c.endpoint(name)
	if err != nil {
		return upstream(fmt.Errorf("build URL: %w", err))
	}

	if err := c.limiter.Wait(ctx, endpoint); err != nil {
		return upstream(fmt.Errorf("rate limit: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return upstream(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("x-rapidapi-host", c.config.Host)
	req.Header.Set("x-rapidapi-key", c.config.Key)
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return upstream(fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return upstream(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return upstream(fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	v, err := jason.NewValueFromBytes(body)
	if err != nil {
		return upstream(fmt.Errorf("decode response: %w", err))
	}

	if isNotFound(v) {
		return Result{Outcome: NotFound}
	}

	return Result{Outcome: Found, Raw: body}
}

// endpoint appends the drug query parameter to the configured URL
func (c *Client) endpoint(name string) (string, error) {
	u, err := url.Parse(c.config.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("drug", name)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func isNotFound(v *jason.Value) bool {
	obj, err := v.Object()
	if err != nil {
		return false
	}
	msg, err := obj.GetString("message")
	return err == nil && msg == notFoundMessage
}

func upstream(err error) Result {
	return Result{Outcome: UpstreamError, Err: err}
}
