package backend

import (
	"context"
	"errors"
	"net/http"

	"github.com/Illuminatus66/byqr/pkg/kit"
)

type ctxKey struct{}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// AuthJWT rejects requests without a valid bearer token. An expired token gets its own
// message so clients can tell a lapsed session from a forged one.
func AuthJWT(tokens *TokenMaker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := kit.BearerToken(r)
			if !ok {
				kit.WriteError(w, r, http.StatusUnauthorized, "missing token", nil)
				return
			}
			id, err := tokens.Parse(raw)
			if errors.Is(err, ErrTokenExpired) {
				kit.WriteError(w, r, http.StatusUnauthorized, "token expired", nil)
				return
			}
			if err != nil {
				kit.WriteError(w, r, http.StatusUnauthorized, "invalid token", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
		})
	}
}
