package middleware

import (
	"net/http"
	"slices"
	"strings"

	"healthmatch/pkg/auth"
	apperrors "healthmatch/pkg/errors"
	httputil "healthmatch/pkg/http"
	"healthmatch/pkg/logger"
)

// TokenParser validates a bearer token.
type TokenParser interface {
	ParseValidate(token string) (*auth.Claims, error)
}

// Authenticate requires a valid bearer token and stores the caller's
// auth.Principal in the request context.
func Authenticate(parser TokenParser, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				reject(w, log, r, apperrors.Unauthorized("missing bearer token"))
				return
			}

			claims, err := parser.ParseValidate(strings.TrimSpace(token))
			if err != nil {
				log.Warn("Rejected bearer token",
					"request_id", RequestIDFromContext(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				reject(w, log, r, apperrors.Unauthorized("invalid or expired token"))
				return
			}

			ctx := auth.WithPrincipal(r.Context(), claims.Principal())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows only principals holding one of roles.
func RequireRole(log *logger.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				reject(w, log, r, apperrors.Unauthorized("authentication required"))
				return
			}
			if !slices.Contains(roles, p.Role) {
				reject(w, log, r, apperrors.Forbidden("insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, log *logger.Logger, r *http.Request, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		log.Error("failed to write error response",
			"request_id", RequestIDFromContext(r.Context()),
			"error", writeErr,
		)
	}
}
