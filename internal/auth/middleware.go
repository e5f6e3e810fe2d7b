package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Authenticator attaches the verified principal to every request outside its public paths.
type Authenticator struct {
	verifier *Verifier
	public   map[string]struct{}
}

// NewAuthenticator builds an Authenticator. Requests to publicPaths and CORS preflights pass
// through without a token.
func NewAuthenticator(verifier *Verifier, publicPaths ...string) *Authenticator {
	public := make(map[string]struct{}, len(publicPaths))
	for _, path := range publicPaths {
		public[path] = struct{}{}
	}
	return &Authenticator{verifier: verifier, public: public}
}

// Handler is the chi-compatible middleware.
func (a *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := a.public[r.URL.Path]; ok || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := a.verifier.Verify(bearerToken(r))
		if err != nil {
			unauthorized(w, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// RequireScope rejects requests whose principal holds none of the accepted scopes.
// A request without a principal is unauthorized.
func RequireScope(accepted ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				unauthorized(w, ErrMissingToken.Error())
				return
			}
			if !principal.Scopes.Any(accepted...) {
				writeProblem(w, http.StatusForbidden, "forbidden", "scope "+strings.Join(accepted, " or ")+" required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRead admits callers holding read or write access.
func RequireRead() func(http.Handler) http.Handler {
	return RequireScope(ScopeMeasurementsRead, ScopeMeasurementsWrite)
}

// RequireWrite admits callers holding write access.
func RequireWrite() func(http.Handler) http.Handler {
	return RequireScope(ScopeMeasurementsWrite)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return ""
	}
	return header[len("Bearer "):]
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="bodymetrics"`)
	writeProblem(w, http.StatusUnauthorized, "unauthorized", detail)
}

func writeProblem(w http.ResponseWriter, status int, code, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"type": code, "detail": detail})
}
