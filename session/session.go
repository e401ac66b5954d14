package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Durable storage keys for the token pair.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// Repo is the durable key-value storage the token pair lives in. It survives process
// restarts the way browser local storage survives page reloads.
type Repo interface {
	// Get returns errors.ErrNotFound when the key is absent
	Get(key string) (string, error)

	// Set stores a single value
	Set(key, value string) error

	// Delete removes every given key in one write
	Delete(keys ...string) error
}

// ExpiryOf reads the exp claim of a JWT access token without verifying it. The zero
// time is returned for opaque tokens or tokens without an expiry.
func ExpiryOf(accessToken string) time.Time {
	if accessToken == "" {
		return time.Time{}
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
