// Package credential keeps the cloud bearer token valid across runs.
package credential

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RenewalMargin is how far ahead of expiry a token is treated as stale.
const RenewalMargin = 30 * time.Second

// ErrAuthFailed wraps any failure to obtain a fresh token. It is fatal for
// the run.
var ErrAuthFailed = errors.New("credential: authentication failed")

// Credential is a bearer token with its absolute expiry.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Valid reports whether c can still be used at now, honouring RenewalMargin.
func (c Credential) Valid(now time.Time) bool {
	if c.Token == "" {
		return false
	}
	return now.Add(RenewalMargin).Before(c.ExpiresAt)
}

// Exchanger trades account secrets for a new Credential.
type Exchanger interface {
	Authenticate(ctx context.Context) (Credential, error)
}

// Manager decides when to renew and performs the renewal.
type Manager struct {
	exchanger Exchanger
	now       func() time.Time
}

// NewManager returns a Manager that renews through ex.
func NewManager(ex Exchanger) *Manager {
	return &Manager{exchanger: ex, now: time.Now}
}

// WithClock replaces the time source. It is intended for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// EnsureValid returns the cached credential unchanged when it outlives the
// renewal margin. Otherwise (including cached == nil) it authenticates and
// returns the new credential with renewed set to true; the caller must
// persist it before making further requests.
func (m *Manager) EnsureValid(ctx context.Context, cached *Credential) (Credential, bool, error) {
	now := m.now()
	var cur Credential
	if cached != nil {
		cur = *cached
	}
	if cur.Valid(now) {
		return cur, false, nil
	}

	fresh, err := m.exchanger.Authenticate(ctx)
	if err != nil {
		return cur, false, fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}
	if fresh.Token == "" {
		return cur, false, fmt.Errorf("%w: empty token", ErrAuthFailed)
	}
	if !fresh.ExpiresAt.After(now) {
		return cur, false, fmt.Errorf("%w: token already expired at %s", ErrAuthFailed, fresh.ExpiresAt.Format(time.RFC3339))
	}
	return fresh, true, nil
}
