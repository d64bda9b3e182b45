package auth

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

	"github.com/ppiankov/snapmed/internal/logging"
	"github.com/ppiankov/snapmed/internal/util"
)

// AppwriteConfig holds the account service settings
type AppwriteConfig struct {
	Endpoint  string // e.g. https://cloud.appwrite.io/v1
	ProjectID string
	APIKey    string
	Timeout   time.Duration

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// AppwriteGate verifies sessions against an Appwrite account service
type AppwriteGate struct {
	config     AppwriteConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

// Option configures an AppwriteGate
type Option func(*AppwriteGate)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(g *AppwriteGate) { g.httpClient = hc }
}

// WithLogger sets the logger
func WithLogger(l *logrus.Logger) Option {
	return func(g *AppwriteGate) { g.logger = l }
}

// NewAppwriteGate creates a gate; the endpoint is required
func NewAppwriteGate(config AppwriteConfig, opts ...Option) (*AppwriteGate, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("appwrite endpoint is required")
	}
	if _, err := url.Parse(config.Endpoint); err != nil {
		return nil, fmt.Errorf("parse appwrite endpoint: %w", err)
	}
	config.Endpoint = strings.TrimSuffix(config.Endpoint, "/")

	g := &AppwriteGate{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: util.NewTransport(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logging.OrDefault(g.logger)
	return g, nil
}

// Name implements Gate
func (g *AppwriteGate) Name() string { return "appwrite" }

// Resolve implements Gate.
// A non-2xx answer means the session is gone. A session that belongs to another
// user is rejected too.
func (g *AppwriteGate) Resolve(ctx context.Context, cred Credential) (string, error) {
	if cred.Empty() {
		return "", ErrInvalidSession
	}

	endpoint := g.config.Endpoint + "/account/sessions/" + url.PathEscape(cred.SessionID)
	resp, err := g.do(ctx, http.MethodGet, endpoint)
	if err != nil {
		return "", fmt.Errorf("verify session: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.logger.WithField("status", resp.StatusCode).Debug("session rejected")
		return "", ErrInvalidSession
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}
	if owner := sessionOwner(body); owner != "" && owner != cred.UserID {
		g.logger.WithField("session", cred.SessionID).Warn("session owner mismatch")
		return "", ErrInvalidSession
	}

	return cred.UserID, nil
}

// Invalidate implements Gate by deleting the user's session with the server key.
// A session that is already gone is not an error.
func (g *AppwriteGate) Invalidate(ctx context.Context, cred Credential) error {
	if cred.Empty() {
		return nil
	}

	endpoint := g.config.Endpoint + "/users/" + url.PathEscape(cred.UserID) +
		"/sessions/" + url.PathEscape(cred.SessionID)
	resp, err := g.do(ctx, http.MethodDelete, endpoint)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound || (resp.StatusCode >= 200 && resp.StatusCode <= 299) {
		return nil
	}
	return fmt.Errorf("delete session: HTTP %d", resp.StatusCode)
}

func (g *AppwriteGate) do(ctx context.Context, method, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Appwrite-Project", g.config.ProjectID)
	req.Header.Set("X-Appwrite-Key", g.config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

// sessionOwner reads userId from a session object, "" when absent
func sessionOwner(body []byte) string {
	obj, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return ""
	}
	uid, err := obj.GetString("userId")
	if err != nil {
		return ""
	}
	return uid
}
