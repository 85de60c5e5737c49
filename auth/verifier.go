// Package auth validates optional bearer tokens against a JWKS endpoint.
// Authenticated players get their user id as a stable stats key; everyone
// else plays under a visitor cookie.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

var errInvalidClaims = errors.New("invalid token claims")

// Identity is what a valid token tells us about its holder.
type Identity struct {
	UserID string
	Name   string
}

// Verifier checks EdDSA-signed tokens issued by one auth provider.
type Verifier struct {
	issuer  string
	keyfunc jwt.Keyfunc
}

// NewVerifier fetches the provider's key set from baseURL/.well-known/jwks.json.
// An empty baseURL disables authentication and returns a nil Verifier, which
// rejects every token.
func NewVerifier(baseURL string) (*Verifier, error) {
	if baseURL == "" {
		return nil, nil
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid auth base URL: %w", err)
	}
	jwks, err := keyfunc.NewDefault([]string{strings.TrimSuffix(baseURL, "/") + "/.well-known/jwks.json"})
	if err != nil {
		return nil, fmt.Errorf("load JWKS: %w", err)
	}
	return &Verifier{issuer: u.Scheme + "://" + u.Host, keyfunc: jwks.Keyfunc}, nil
}

// Verify parses and validates a raw token.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	if v == nil {
		return Identity{}, errors.New("authentication is disabled")
	}
	token, err := jwt.Parse(tokenString, v.keyfunc,
		jwt.WithIssuer(v.issuer),
		jwt.WithValidMethods([]string{"EdDSA"}))
	if err != nil {
		return Identity{}, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, errInvalidClaims
	}
	id := userID(claims)
	if id == "" {
		return Identity{}, errInvalidClaims
	}
	return Identity{UserID: id, Name: firstName(claims)}, nil
}

// FromRequest validates the request's Authorization header, if any.
func (v *Verifier) FromRequest(r *http.Request) (Identity, bool) {
	h := r.Header.Get("Authorization")
	if v == nil || !strings.HasPrefix(h, bearerPrefix) {
		return Identity{}, false
	}
	ident, err := v.Verify(strings.TrimSpace(h[len(bearerPrefix):]))
	if err != nil {
		return Identity{}, false
	}
	return ident, true
}

// firstName returns the first word of the "name" claim.
func firstName(claims jwt.MapClaims) string {
	name, _ := claims["name"].(string)
	if parts := strings.Fields(name); len(parts) > 0 {
		return parts[0]
	}
	return "Player"
}

// userID returns "sub", falling back to "id".
func userID(claims jwt.MapClaims) string {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	id, _ := claims["id"].(string)
	return id
}
