package domain

import "time"

// AccessToken is the server-side record of an issued token. The ID matches
// the jti claim of the signed JWT; deleting the row revokes the token.
type AccessToken struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the token record has passed its expiry.
func (t *AccessToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
