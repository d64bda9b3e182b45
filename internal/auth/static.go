package auth

import (
	"context"
	"sync"
)

// StaticGate holds sessions in memory, keyed by session id.
// Used for local runs and tests.
type StaticGate struct {
	mu       sync.RWMutex
	sessions map[string]string
}

// NewStaticGate creates a gate from sessionId -> userId pairs
func NewStaticGate(sessions map[string]string) *StaticGate {
	g := &StaticGate{sessions: make(map[string]string, len(sessions))}
	for sid, uid := range sessions {
		g.sessions[sid] = uid
	}
	return g
}

// Name implements Gate
func (g *StaticGate) Name() string { return "static" }

// Resolve implements Gate
func (g *StaticGate) Resolve(ctx context.Context, cred Credential) (string, error) {
	if cred.Empty() {
		return "", ErrInvalidSession
	}
	g.mu.RLock()
	uid, ok := g.sessions[cred.SessionID]
	g.mu.RUnlock()
	if !ok || uid != cred.UserID {
		return "", ErrInvalidSession
	}
	return uid, nil
}

// Invalidate implements Gate
func (g *StaticGate) Invalidate(ctx context.Context, cred Credential) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if uid, ok := g.sessions[cred.SessionID]; ok && uid == cred.UserID {
		delete(g.sessions, cred.SessionID)
	}
	return nil
}
