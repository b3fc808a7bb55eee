package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"server/internal/identity"
)

type subjectContextKey struct{}

// SubjectVerifier validates a raw bearer token.
type SubjectVerifier interface {
	Verify(ctx context.Context, raw string) (identity.Subject, error)
}

// BearerToken extracts the raw token from the Authorization header. Returns
// an empty string when the header is absent or not a bearer scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Auth verifies the bearer token and stores the subject in the request
// context. Missing and invalid credentials both answer 401; the distinction
// stays in the server logs.
func Auth(verifier SubjectVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, err := verifier.Verify(r.Context(), BearerToken(r))
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), subject)))
		})
	}
}

func ContextWithSubject(ctx context.Context, subject identity.Subject) context.Context {
	return context.WithValue(ctx, subjectContextKey{}, subject)
}

// SubjectFromContext returns the verified subject, if the request passed Auth.
func SubjectFromContext(ctx context.Context) (identity.Subject, bool) {
	subject, ok := ctx.Value(subjectContextKey{}).(identity.Subject)
	return subject, ok
}
