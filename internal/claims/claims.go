package claims

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedToken is returned by Decode when the input is empty or is not a
// well-formed three-part JWT.
var ErrMalformedToken = errors.New("malformed token")

// Claims holds the identity claims read from a bearer token's payload.
// They are used for client-side UX only (expiry countdown, display name) and
// must never drive server-side authorization decisions.
type Claims struct {
	// Subject is the unique user identifier (sub claim).
	Subject string `json:"sub"`

	// Email is the user's email address (email claim).
	Email string `json:"email"`

	// Name is the user's display name (name claim), if present.
	Name string `json:"name,omitempty"`

	// Picture is the user's avatar URL (picture claim), if present.
	Picture string `json:"picture,omitempty"`

	// Expiry is the token expiration as a unix timestamp (exp claim).
	// Zero means the token carries no expiry.
	Expiry int64 `json:"exp"`
}

// ExpiresAt returns the expiry as a time.Time. The zero time is returned when
// the token carries no exp claim.
func (c *Claims) ExpiresAt() time.Time {
	if c.Expiry == 0 {
		return time.Time{}
	}
	return time.Unix(c.Expiry, 0)
}

// Decode extracts the claims embedded in a bearer token without contacting
// any server and without verifying the signature. Signature verification is
// the server's job; this is read-only introspection.
//
// It fails with an error wrapping ErrMalformedToken when the token is empty
// or is not a three-part signed structure.
func Decode(token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is empty", ErrMalformedToken)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 parts, got %d", ErrMalformedToken, len(parts))
	}

	// RawURLEncoding handles missing padding; fall back to standard base64
	// for non-conforming issuers.
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		payload, err = base64.RawStdEncoding.DecodeString(parts[1])
		if err != nil {
			return nil, fmt.Errorf("%w: undecodable payload: %v", ErrMalformedToken, err)
		}
	}

	var c Claims
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("%w: unparseable claims: %v", ErrMalformedToken, err)
	}

	return &c, nil
}
