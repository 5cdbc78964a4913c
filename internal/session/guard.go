package session

import (
	"context"
	"time"
)

// Guard must run at the start of every state-changing operation on the session-owned stores.
// It applies the TTL policy first: an expired session is cascaded away before Guard returns,
// so the caller observes the cleared state and gets ErrNoSession.
func (m *Manager) Guard(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expireLocked(ctx, m.now())
	if m.sess == nil {
		return Session{}, ErrNoSession
	}
	return m.sess.clone(), nil
}

// CheckExpiry applies the TTL policy at now.
func (m *Manager) CheckExpiry(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(context.Background(), now)
}

func (m *Manager) expireLocked(ctx context.Context, now time.Time) bool {
	if m.sess == nil || now.Sub(m.sess.IssuedAt) <= m.ttl {
		return false
	}
	m.cascadeLocked(ctx, Expired)
	return true
}
