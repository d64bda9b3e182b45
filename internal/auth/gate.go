// Package auth resolves an owner identity from a session credential.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/snapmed/internal/model"
)

// ErrInvalidSession means the credential does not name a live session
var ErrInvalidSession = errors.New("invalid or expired session")

// Credential is what a client presents: the cookies userId and sessionId
type Credential struct {
	UserID    string
	SessionID string
}

// Empty reports whether either half of the credential is missing
func (c Credential) Empty() bool {
	return strings.TrimSpace(c.UserID) == "" || strings.TrimSpace(c.SessionID) == ""
}

// Gate is the session oracle
type Gate interface {
	// Resolve returns the owner identity for a live session, or ErrInvalidSession
	Resolve(ctx context.Context, cred Credential) (string, error)
	// Invalidate ends the session
	Invalidate(ctx context.Context, cred Credential) error
	// Name returns the gate name
	Name() string
}

// NewGate creates a gate from config
func NewGate(cfg model.AuthConfig, httpCfg model.HTTPConfig, logger *logrus.Logger) (Gate, error) {
	switch strings.ToLower(cfg.Provider) {
	case "appwrite", "":
		return NewAppwriteGate(AppwriteConfig{
			Endpoint:   cfg.Endpoint,
			ProjectID:  cfg.ProjectID,
			APIKey:     cfg.APIKey,
			Timeout:    30 * time.Second,
			HTTPProxy:  httpCfg.HTTPProxy,
			HTTPSProxy: httpCfg.HTTPSProxy,
			NoProxy:    httpCfg.NoProxy,
		}, WithLogger(logger))
	case "static":
		return NewStaticGate(cfg.Sessions), nil
	default:
		return nil, fmt.Errorf("unknown auth provider: %s (supported: appwrite, static)", cfg.Provider)
	}
}
