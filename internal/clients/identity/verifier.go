// Package identity validates bearer credentials issued by the external
// identity provider and maps them to a stable user identifier.
package identity

import (
	"context"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/pkg/errors"

	"github.com/rental-insight/listings-backend/internal/apperrors"
)

// Identity is what a verified credential resolves to. Subject stays stable
// across sessions and keys the local user record.
type Identity struct {
	Subject string
	Email   string
}

type keySetProvider interface {
	Get(ctx context.Context, url string) (jwk.Set, error)
}

type Verifier struct {
	keys     keySetProvider
	jwksURL  string
	issuer   string
	audience string
}

// NewVerifier fetches the provider's JWKS once up front so a bad URL fails
// at startup, then keeps the key set refreshed in the background.
func NewVerifier(ctx context.Context, jwksURL, issuer, audience string) (*Verifier, error) {

	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, errors.Wrap(err, "failed to register jwks url")
	}
	if _, err := cache.Refresh(ctx, jwksURL); err != nil {
		return nil, errors.Wrap(err, "failed to fetch jwks")
	}

	return &Verifier{keys: cache, jwksURL: jwksURL, issuer: issuer, audience: audience}, nil
}

func (v *Verifier) SetKeySetProvider(keys keySetProvider) {
	v.keys = keys
}

// Verify checks the raw bearer token against the provider's keys and the
// configured issuer and audience. Any failure, including expiry, comes back
// as an AuthError.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (Identity, error) {

	if rawToken == "" {
		return Identity{}, &apperrors.AuthError{Reason: "no token provided"}
	}

	keySet, err := v.keys.Get(ctx, v.jwksURL)
	if err != nil {
		return Identity{}, errors.Wrap(err, "failed to get jwks")
	}

	opts := []jwt.ParseOption{jwt.WithKeySet(keySet), jwt.WithValidate(true)}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.Parse([]byte(rawToken), opts...)
	if err != nil {
		return Identity{}, &apperrors.AuthError{Reason: "invalid token", Err: err}
	}

	id := Identity{Subject: token.Subject()}
	if email, ok := token.Get("email"); ok {
		if value, ok := email.(string); ok {
			id.Email = value
		}
	}

	return id, nil
}
