package security

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cwrk-planet/interview-room/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// RevocationChecker reports whether a token id (jti) has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Claims - формат токена REST-слоя: {id, email, role, name, exp, iat}.
type Claims struct {
	ID    int64       `json:"id"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	Name  string      `json:"name"`
	jwt.RegisteredClaims
}

type VerifierConfig struct {
	Secret    string
	Issuer    string        // пусто - не проверяем
	ClockSkew time.Duration // допуск на часы
}

// Используется HS256 с общим секретом REST-слоя.
type Verifier struct {
	secret  []byte
	issuer  string
	skew    time.Duration
	revoked RevocationChecker
	now     func() time.Time
}

// NewVerifier; revoked may be nil.
func NewVerifier(cfg VerifierConfig, revoked RevocationChecker) *Verifier {
	return &Verifier{
		secret:  []byte(cfg.Secret),
		issuer:  cfg.Issuer,
		skew:    cfg.ClockSkew,
		revoked: revoked,
		now:     time.Now,
	}
}

// Verify checks the raw token and returns the identity it carries.
func (v *Verifier) Verify(ctx context.Context, raw string) (domain.Identity, error) {
	tok := StripBearer(raw)
	if tok == "" {
		return domain.Identity{}, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.skew),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, ErrTokenExpired
		}
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.ID <= 0 {
		return domain.Identity{}, fmt.Errorf("%w: id claim is required", ErrInvalidToken)
	}
	if !claims.Role.Valid() {
		return domain.Identity{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}

	if v.isRevoked(ctx, claims.RegisteredClaims.ID) {
		return domain.Identity{}, ErrTokenRevoked
	}

	return domain.Identity{
		UserID: claims.ID,
		Name:   claims.Name,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}

// isRevoked fails open on checker errors.
func (v *Verifier) isRevoked(ctx context.Context, jti string) bool {
	if v.revoked == nil || jti == "" {
		return false
	}
	revoked, err := v.revoked.IsRevoked(ctx, jti)
	if err != nil {
		slog.Warn("revocation check failed", "jti", jti, "err", err)
		return false
	}
	return revoked
}

// StripBearer returns the credential without the Bearer scheme.
// A bare scheme yields "".
func StripBearer(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) < 6 || !strings.EqualFold(raw[:6], "bearer") {
		return raw
	}
	rest := raw[6:]
	if rest == "" {
		return ""
	}
	if rest[0] != ' ' && rest[0] != '\t' {
		return raw
	}
	return strings.TrimSpace(rest)
}
