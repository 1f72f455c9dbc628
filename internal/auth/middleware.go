package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Authenticator is the middleware gate in front of protected routes.
// A request passes only when its bearer token verifies cryptographically
// AND matches the live session registry entry byte-for-byte; the registry
// check is what makes logout and login-supersession effective before the
// signature itself expires.
type Authenticator struct {
	verifier *Verifier
	sessions SessionRegistry
}

func NewAuthenticator(verifier *Verifier, sessions SessionRegistry) *Authenticator {
	return &Authenticator{verifier: verifier, sessions: sessions}
}

// ExtractBearerToken pulls the token out of an Authorization header value.
func ExtractBearerToken(header string) string {
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// Middleware authenticates the request and attaches the identity to its
// context. Every failure is terminal and answers 401; the three causes
// (missing, invalid, stale) get distinct messages for diagnosability.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ExtractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeUnauthorized(w, "Access Denied. No token provided.", nil)
			return
		}

		claims, err := a.verifier.Verify(token)
		if err != nil {
			writeUnauthorized(w, "Invalid token", err)
			return
		}

		stored, err := a.sessions.Get(r.Context(), claims.ID)
		if err != nil || stored != token {
			// Logged out, superseded by a newer login, or an older
			// still-signed token being replayed: all stale.
			writeUnauthorized(w, "Invalid or expired token", nil)
			return
		}

		identity := Identity{ID: claims.ID, Username: claims.Username}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func writeUnauthorized(w http.ResponseWriter, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	body := map[string]string{"message": message}
	if err != nil {
		body["error"] = err.Error()
	}
	_ = json.NewEncoder(w).Encode(body)
}
