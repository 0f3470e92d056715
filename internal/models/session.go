package models

import "time"

// RefreshSession is one logged-in device/browser. Only hashes of the refresh
// and CSRF secrets are stored; the raw values are handed out exactly once at
// creation or rotation and can never be read back.
type RefreshSession struct {
	ID          string
	UserID      string
	RefreshHash string
	CSRFHash    string
	ExpiresAt   time.Time
	RevokedAt   *time.Time
	LastUsedAt  *time.Time
	CreatedAt   time.Time
}

// Active reports whether the session can still be used: not revoked and not
// past its expiry. Revoked and expired sessions read the same to callers.
func (s *RefreshSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
