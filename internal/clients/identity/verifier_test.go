package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"

	"github.com/rental-insight/listings-backend/internal/apperrors"
)

const (
	testJwksURL  = "https://auth.test/jwks.json"
	testIssuer   = "https://auth.test/"
	testAudience = "listings-backend"
)

type staticKeySet struct {
	set jwk.Set
}

func (s *staticKeySet) Get(_ context.Context, _ string) (jwk.Set, error) {
	return s.set, nil
}

func newTestVerifier(t *testing.T) (*Verifier, jwk.Key) {
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	assert.NoError(t, err)

	private, err := jwk.FromRaw(raw)
	assert.NoError(t, err)
	assert.NoError(t, private.Set(jwk.KeyIDKey, "test-key"))
	assert.NoError(t, private.Set(jwk.AlgorithmKey, jwa.RS256))

	public, err := private.PublicKey()
	assert.NoError(t, err)

	set := jwk.NewSet()
	assert.NoError(t, set.AddKey(public))

	verifier := &Verifier{
		keys:     &staticKeySet{set: set},
		jwksURL:  testJwksURL,
		issuer:   testIssuer,
		audience: testAudience,
	}
	return verifier, private
}

func signTestToken(t *testing.T, key jwk.Key, expiration time.Time) string {
	token, err := jwt.NewBuilder().
		Subject("user-123").
		Issuer(testIssuer).
		Audience([]string{testAudience}).
		Claim("email", "user@example.com").
		IssuedAt(time.Now().Add(-time.Minute)).
		Expiration(expiration).
		Build()
	assert.NoError(t, err)

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256, key))
	assert.NoError(t, err)
	return string(signed)
}

func Test_Verify_WhenTokenIsValid_ShouldReturnIdentity(t *testing.T) {
	verifier, key := newTestVerifier(t)
	raw := signTestToken(t, key, time.Now().Add(time.Hour))

	id, err := verifier.Verify(context.Background(), raw)

	assert.NoError(t, err)
	assert.Equal(t, "user-123", id.Subject)
	assert.Equal(t, "user@example.com", id.Email)
}

func Test_Verify_WhenTokenIsExpired_ShouldReturnAuthError(t *testing.T) {
	verifier, key := newTestVerifier(t)
	raw := signTestToken(t, key, time.Now().Add(-time.Hour))

	_, err := verifier.Verify(context.Background(), raw)

	var authErr *apperrors.AuthError
	assert.ErrorAs(t, err, &authErr)
}

func Test_Verify_WhenTokenIsSignedByUnknownKey_ShouldReturnAuthError(t *testing.T) {
	verifier, _ := newTestVerifier(t)

	otherRaw, err := rsa.GenerateKey(rand.Reader, 2048)
	assert.NoError(t, err)
	otherKey, err := jwk.FromRaw(otherRaw)
	assert.NoError(t, err)
	assert.NoError(t, otherKey.Set(jwk.KeyIDKey, "other-key"))
	assert.NoError(t, otherKey.Set(jwk.AlgorithmKey, jwa.RS256))

	raw := signTestToken(t, otherKey, time.Now().Add(time.Hour))

	_, err = verifier.Verify(context.Background(), raw)

	var authErr *apperrors.AuthError
	assert.ErrorAs(t, err, &authErr)
}

func Test_Verify_WhenTokenIsEmpty_ShouldReturnAuthError(t *testing.T) {
	verifier, _ := newTestVerifier(t)

	_, err := verifier.Verify(context.Background(), "")

	var authErr *apperrors.AuthError
	assert.ErrorAs(t, err, &authErr)
}

func Test_Verify_WhenTokenIsMalformed_ShouldReturnAuthError(t *testing.T) {
	verifier, _ := newTestVerifier(t)

	_, err := verifier.Verify(context.Background(), "not-a-jwt")

	var authErr *apperrors.AuthError
	assert.ErrorAs(t, err, &authErr)
}
