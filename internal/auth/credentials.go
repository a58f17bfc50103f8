package auth

import (
	"time"

	"golang.org/x/oauth2"
)

// Credentials is the pair of API credentials for one session.
//
// A zero expiry means the part does not expire.
type Credentials struct {
	AccessToken      string    `json:"accessToken,omitempty"`
	RefreshToken     string    `json:"refreshToken,omitempty"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt,omitzero"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt,omitzero"`
}

// Live returns c with the parts that have expired at now blanked out.
func (c Credentials) Live(now time.Time) Credentials {
	if !c.AccessExpiresAt.IsZero() && !now.Before(c.AccessExpiresAt) {
		c.AccessToken = ""
		c.AccessExpiresAt = time.Time{}
	}
	if !c.RefreshExpiresAt.IsZero() && !now.Before(c.RefreshExpiresAt) {
		c.RefreshToken = ""
		c.RefreshExpiresAt = time.Time{}
	}
	return c
}

// Empty reports whether neither credential is present.
func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// Token converts c to an [oauth2.Token].
func (c Credentials) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
		Expiry:       c.AccessExpiresAt,
	}
}

// Policy decides how long freshly issued credentials are kept.
type Policy struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// DefaultPolicy keeps access credentials for a day and refresh credentials for a week.
func DefaultPolicy() Policy {
	return Policy{AccessTTL: 24 * time.Hour, RefreshTTL: 7 * 24 * time.Hour}
}

// Issue builds the credentials for a new session.
func (p Policy) Issue(access, refresh string, now time.Time) Credentials {
	return Credentials{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  expiry(access, p.AccessTTL, now),
		RefreshExpiresAt: expiry(refresh, p.RefreshTTL, now),
	}
}

// Renew replaces the access credential of c. The refresh credential is only replaced when
// the server rotated it.
func (p Policy) Renew(c Credentials, access, rotated string, now time.Time) Credentials {
	c.AccessToken = access
	c.AccessExpiresAt = expiry(access, p.AccessTTL, now)
	if rotated != "" {
		c.RefreshToken = rotated
		c.RefreshExpiresAt = expiry(rotated, p.RefreshTTL, now)
	}
	return c
}

// expiry is now+ttl. The exp claim is not applied: the server decides when a sent token is stale.
func expiry(token string, ttl time.Duration, now time.Time) time.Time {
	if token == "" || ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}
