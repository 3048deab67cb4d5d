package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cwrk-planet/interview-room/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sign(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims() Claims {
	return Claims{
		ID:    7,
		Email: "alice@example.com",
		Role:  domain.RoleCandidate,
		Name:  "Alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-1",
			IssuedAt:  jwt.NewNumericDate(testNow.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
		},
	}
}

func newTestVerifier(cfg VerifierConfig, rc RevocationChecker) *Verifier {
	if cfg.Secret == "" {
		cfg.Secret = testSecret
	}
	v := NewVerifier(cfg, rc)
	v.now = func() time.Time { return testNow }
	return v
}

type stubRevocations struct {
	revoked map[string]bool
	err     error
}

func (s stubRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	return s.revoked[jti], s.err
}

func TestVerify_OK(t *testing.T) {
	v := newTestVerifier(VerifierConfig{}, nil)
	tok := sign(t, testSecret, validClaims())

	for _, raw := range []string{tok, "Bearer " + tok, "bearer  " + tok} {
		id, err := v.Verify(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, domain.Identity{UserID: 7, Name: "Alice", Email: "alice@example.com", Role: domain.RoleCandidate}, id)
	}
}

func TestVerify_Rejections(t *testing.T) {
	v := newTestVerifier(VerifierConfig{Issuer: "cwrk-api"}, nil)

	withIssuer := func(mut func(c *Claims)) Claims {
		c := validClaims()
		c.Issuer = "cwrk-api"
		if mut != nil {
			mut(&c)
		}
		return c
	}

	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "", ErrMissingToken},
		{"bearer only", "Bearer ", ErrMissingToken},
		{"bare scheme", "Bearer", ErrMissingToken},
		{"lowercase scheme with spaces", "bearer   ", ErrMissingToken},
		{"garbage", "not.a.jwt", ErrInvalidToken},
		{"wrong secret", sign(t, "other", withIssuer(nil)), ErrInvalidToken},
		{"expired", sign(t, testSecret, withIssuer(func(c *Claims) {
			c.ExpiresAt = jwt.NewNumericDate(testNow.Add(-time.Minute))
		})), ErrTokenExpired},
		{"no exp", sign(t, testSecret, withIssuer(func(c *Claims) { c.ExpiresAt = nil })), ErrInvalidToken},
		{"wrong issuer", sign(t, testSecret, withIssuer(func(c *Claims) { c.Issuer = "evil" })), ErrInvalidToken},
		{"no id", sign(t, testSecret, withIssuer(func(c *Claims) { c.ID = 0 })), ErrInvalidToken},
		{"bad role", sign(t, testSecret, withIssuer(func(c *Claims) { c.Role = "root" })), ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.raw)
			require.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestStripBearer(t *testing.T) {
	tests := map[string]string{
		"":             "",
		"Bearer":       "",
		"Bearer ":      "",
		"bearer \t ":  "",
		"BEARER abc":  "abc",
		" Bearer\tabc": "abc",
		"abc":          "abc",
		"Bearerabc":    "Bearerabc",
	}
	for raw, want := range tests {
		assert.Equal(t, want, StripBearer(raw), "raw %q", raw)
	}
}

func TestReason_EmptyBearerIsMissing(t *testing.T) {
	_, err := newTestVerifier(VerifierConfig{}, nil).Verify(context.Background(), "Bearer ")
	assert.Equal(t, "missing", Reason(err))
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	v := newTestVerifier(VerifierConfig{}, nil)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, validClaims()).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_ClockSkew(t *testing.T) {
	c := validClaims()
	c.ExpiresAt = jwt.NewNumericDate(testNow.Add(-10 * time.Second))
	tok := sign(t, testSecret, c)

	_, err := newTestVerifier(VerifierConfig{}, nil).Verify(context.Background(), tok)
	require.ErrorIs(t, err, ErrTokenExpired)

	_, err = newTestVerifier(VerifierConfig{ClockSkew: 30 * time.Second}, nil).Verify(context.Background(), tok)
	require.NoError(t, err)
}

func TestVerify_Revocation(t *testing.T) {
	tok := sign(t, testSecret, validClaims())

	v := newTestVerifier(VerifierConfig{}, stubRevocations{revoked: map[string]bool{"jti-1": true}})
	_, err := v.Verify(context.Background(), tok)
	require.ErrorIs(t, err, ErrTokenRevoked)
	assert.Equal(t, "revoked", Reason(err))

	// недоступный Redis не блокирует вход
	v = newTestVerifier(VerifierConfig{}, stubRevocations{err: errors.New("dial tcp: connection refused")})
	_, err = v.Verify(context.Background(), tok)
	require.NoError(t, err)

	c := validClaims()
	c.RegisteredClaims.ID = ""
	v = newTestVerifier(VerifierConfig{}, stubRevocations{revoked: map[string]bool{"": true}})
	_, err = v.Verify(context.Background(), sign(t, testSecret, c))
	require.NoError(t, err, "tokens without jti skip the revocation check")
}

func TestReason(t *testing.T) {
	assert.Equal(t, "missing", Reason(ErrMissingToken))
	assert.Equal(t, "expired", Reason(ErrTokenExpired))
	assert.Equal(t, "invalid", Reason(ErrInvalidToken))
	assert.Equal(t, "invalid", Reason(errors.New("x")))
}
