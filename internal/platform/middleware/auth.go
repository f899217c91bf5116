package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"docket/internal/platform/privacy"
	"docket/internal/transport/httputil"
	dErrors "docket/pkg/domain-errors"
)

// SecretHeader carries the shared secret a marketplace notifier presents on
// every webhook call.
const SecretHeader = "X-Docket-Secret"

// TenantResolver authenticates a shared secret against the tenant roster.
type TenantResolver interface {
	ResolveBySecret(ctx context.Context, secret string) (TenantIdentity, error)
}

// TenantIdentity is the minimum the boundary needs to know about the caller.
type TenantIdentity struct {
	ID   string
	Name string
}

type contextKeyTenant struct{}

// GetTenant retrieves the authenticated tenant from the context.
func GetTenant(ctx context.Context) (TenantIdentity, bool) {
	t, ok := ctx.Value(contextKeyTenant{}).(TenantIdentity)
	return t, ok
}

// WebhookAuth short-circuits unauthenticated webhook calls before the
// ingestion core runs. The resolved tenant rides the request context.
func WebhookAuth(resolver TenantResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			tenant, err := resolver.ResolveBySecret(ctx, r.Header.Get(SecretHeader))
			if err != nil {
				logger.WarnContext(ctx, "webhook rejected",
					"request_id", GetRequestID(ctx),
					"ip_prefix", privacy.AnonymizeIP(remoteIP(r)),
				)
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid shared secret"))
				return
			}

			ctx = context.WithValue(ctx, contextKeyTenant{}, tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
