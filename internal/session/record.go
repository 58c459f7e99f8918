package session

import (
	"reflect"
	"time"

	"golang.org/x/oauth2"
)

// Record is the unit of credential state persisted and shared across the
// application. Callers always read and write whole records; there are no
// field-level updates, so the loading and success phases cannot race into a
// lost update.
type Record struct {
	// Token is the opaque bearer string. Empty means "no credential".
	Token string `json:"token"`

	// IsLoading is true while a code exchange is in flight.
	IsLoading bool `json:"is_loading"`

	// IsSuccessful is true only after a successful exchange. It is cleared
	// on logout and on failure. IsSuccessful implies Token != "".
	IsSuccessful bool `json:"is_successful"`

	// Error holds the last exchange error description, empty when none.
	Error string `json:"error"`

	// RawResponse retains the full token endpoint response for diagnostics.
	RawResponse map[string]interface{} `json:"raw_response,omitempty"`
}

// HasCredential reports whether the record carries a bearer token.
func (r Record) HasCredential() bool {
	return r.Token != ""
}

// OAuth2Token converts the record to an oauth2.Token for consumers that speak
// golang.org/x/oauth2. The expiry is supplied by the caller since the record
// itself stores only the opaque token string.
func (r Record) OAuth2Token(expiry time.Time) *oauth2.Token {
	return &oauth2.Token{
		AccessToken: r.Token,
		TokenType:   "Bearer",
		Expiry:      expiry,
	}
}

// Equal reports whether two records carry the same state, including the
// retained raw response.
func (r Record) Equal(other Record) bool {
	return r.Token == other.Token &&
		r.IsLoading == other.IsLoading &&
		r.IsSuccessful == other.IsSuccessful &&
		r.Error == other.Error &&
		reflect.DeepEqual(r.RawResponse, other.RawResponse)
}
