package security

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")

	ErrMissingToken = fmt.Errorf("%w: missing token", ErrUnauthenticated)
	ErrInvalidToken = fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrUnauthenticated)
	ErrTokenRevoked = fmt.Errorf("%w: token revoked", ErrUnauthenticated)
)

// Reason is a short label for metrics and logs.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return "missing"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenRevoked):
		return "revoked"
	default:
		return "invalid"
	}
}
