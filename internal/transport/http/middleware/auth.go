package httpmw

import (
	"context"
	"net/http"

	"github.com/cwrk-planet/interview-room/internal/domain"
	"github.com/cwrk-planet/interview-room/internal/metrics"
	"github.com/cwrk-planet/interview-room/internal/security"
	"github.com/cwrk-planet/interview-room/pkg/errs"
	"github.com/cwrk-planet/interview-room/pkg/httputil"
)

type ctxKey string

const ctxKeyIdentity ctxKey = "identity"

type Verifier interface {
	Verify(ctx context.Context, raw string) (domain.Identity, error)
}

// AuthMiddleware требует валидный Bearer-токен; roles пусто - любая роль.
func AuthMiddleware(v Verifier, roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, err := v.Verify(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				why := security.Reason(err)
				metrics.AuthFailures.WithLabelValues(why).Inc()
				deny(w, r, errs.ErrUnauthorized, map[string]any{"reason": why})
				return
			}
			if len(roles) > 0 && !hasRole(ident.Role, roles) {
				deny(w, r, errs.ErrForbidden, nil)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyIdentity, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func IdentityFromCtx(ctx context.Context) (domain.Identity, bool) {
	ident, ok := ctx.Value(ctxKeyIdentity).(domain.Identity)
	return ident, ok
}

func deny(w http.ResponseWriter, r *http.Request, err error, meta map[string]any) {
	httputil.Error(r.Context(), w, errs.ToHTTP(err), err.Error(), meta)
}

func hasRole(r domain.Role, roles []domain.Role) bool {
	for _, want := range roles {
		if r == want {
			return true
		}
	}
	return false
}
