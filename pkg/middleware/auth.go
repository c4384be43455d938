package middleware

import (
	"context"
	"net"
	"net/http"
)

const SubjectIDKey contextKey = "subject_id"

// SubjectHeader is populated by the upstream identity provider after
// token verification; this service trusts it as the caller's identity.
const SubjectHeader = "X-Subject-ID"

// SubjectExtraction copies the authenticated subject, when present, into
// the request context for ownership checks and rate-limit partitioning.
func SubjectExtraction() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if subject := r.Header.Get(SubjectHeader); subject != "" {
				ctx := context.WithValue(r.Context(), SubjectIDKey, subject)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func SubjectFrom(ctx context.Context) string {
	if v := ctx.Value(SubjectIDKey); v != nil {
		if subject, ok := v.(string); ok {
			return subject
		}
	}
	return ""
}

// RateLimitIdentity prefers the authenticated subject and falls back to
// the caller's network address, so anonymous abuse never consumes an
// authenticated user's quota. Callers behind one gateway share the
// fallback bucket; see DESIGN.md.
func RateLimitIdentity(r *http.Request) string {
	if subject := SubjectFrom(r.Context()); subject != "" {
		return "sub:" + subject
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
