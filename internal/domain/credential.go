package domain

import "time"

// CredentialTTL is how long a cached elevation secret may be reused.
const CredentialTTL = 300 * time.Second

// PrivilegeCredential is a cached elevation secret and when it was acquired.
type PrivilegeCredential struct {
	Secret     string
	AcquiredAt time.Time
}

// ValidAt reports whether the credential may be reused at now.
// A zero credential is never valid.
func (c PrivilegeCredential) ValidAt(now time.Time) bool {
	if c.AcquiredAt.IsZero() {
		return false
	}
	return now.Sub(c.AcquiredAt) < CredentialTTL
}
