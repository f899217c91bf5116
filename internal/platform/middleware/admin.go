package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"docket/internal/transport/httputil"
	dErrors "docket/pkg/domain-errors"
)

// AdminValidator validates an admin bearer token and returns the operator it
// was minted for.
type AdminValidator interface {
	ValidateToken(tokenString string) (operator string, err error)
}

type contextKeyOperator struct{}

// GetOperator retrieves the authenticated operator from the context.
func GetOperator(ctx context.Context) string {
	op, _ := ctx.Value(contextKeyOperator{}).(string)
	return op
}

// RequireAdmin guards the operator surface with a bearer token.
func RequireAdmin(validator AdminValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "admin access without bearer token",
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			operator, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "admin token rejected",
					"request_id", GetRequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid admin token"))
				return
			}

			ctx = context.WithValue(ctx, contextKeyOperator{}, operator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
