package handlers

import (
	"net/http"
	"strings"

	"github.com/friendgraph/backend/internal/auth"
	"github.com/friendgraph/backend/internal/logging"
)

// RequireIdentity rejects requests without a valid bearer access token and
// stores the authenticated identity on the request context.
func RequireIdentity(sessions SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if sessions == nil {
				logging.FromContext(ctx).Error("session manager unavailable")
				respondFailure(ctx, w, http.StatusInternalServerError, "internal", "authentication services unavailable")
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", "Bearer")
				respondFailure(ctx, w, http.StatusUnauthorized, "unauthenticated", "authentication credentials were not provided")
				return
			}

			identity, err := sessions.Authenticate(token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				respondFailure(ctx, w, http.StatusUnauthorized, "invalid_token", "access token is invalid or expired")
				return
			}

			ctx = auth.WithIdentity(ctx, identity)
			ctx = logging.With(ctx, "userId", identity.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// identityFrom returns the caller identity installed by RequireIdentity.
func identityFrom(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondFailure(r.Context(), w, http.StatusUnauthorized, "unauthenticated", "authentication credentials were not provided")
	}
	return identity, ok
}
