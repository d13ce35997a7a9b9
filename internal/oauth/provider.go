// provider.go -- OAuth provider interface and the normalized profile.
package oauth

import (
	"context"
	"errors"
)

// ErrEmailNotVerified is returned when the provider hasn't verified the account email.
// Linking by email is only safe when the provider vouches for it.
var ErrEmailNotVerified = errors.New("oauth email not verified")

// Profile is the identity handed to the auth service after a successful exchange.
// All fields come from a verified ID token; never trust client-supplied values.
// Name and picture fields are optional -- empty string means not provided.
type Profile struct {
	Email      string
	FirstName  string
	LastName   string
	SubjectID  string // provider-specific stable user ID (e.g. Google "sub")
	PictureURL string
}

// Provider is an OAuth2 identity provider.
// PKCE (RFC 7636) is required: callers pass the code_challenge to AuthCodeURL and the
// matching code_verifier to Exchange.
type Provider interface {
	// Name returns the provider identifier used in routes and logs.
	Name() string

	// AuthCodeURL returns the redirect URL with state and PKCE code_challenge embedded.
	AuthCodeURL(state, codeChallenge string) string

	// Exchange trades the authorization code for a verified profile.
	Exchange(ctx context.Context, code, codeVerifier string) (*Profile, error)
}
