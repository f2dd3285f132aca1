package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"khaos-quiz-service/internal/app"
	"khaos-quiz-service/internal/domain"
)

// UserHeader identifies the caller when no JWT secret is configured.
const UserHeader = "X-User-Id"

type userKey struct{}

// Authenticator resolves the caller of every request through the user directory.
// With a secret, the caller is the "sub" claim of an HS256 bearer token;
// without one, the caller is taken from the X-User-Id header.
type Authenticator struct {
	users  app.UserDirectory
	secret []byte
}

func NewAuthenticator(users app.UserDirectory, secret string) *Authenticator {
	a := &Authenticator{users: users}
	if secret != "" {
		a.secret = []byte(secret)
	}
	return a
}

func (a *Authenticator) callerID(r *http.Request) (string, bool) {
	if a.secret == nil {
		id := r.Header.Get(UserHeader)
		return id, id != ""
	}

	// Browsers cannot set headers on websocket upgrades.
	raw := r.URL.Query().Get("access_token")
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		raw = strings.TrimPrefix(h, "Bearer ")
	}
	if raw == "" {
		return "", false
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// Middleware rejects unauthenticated requests with 401 and stores the resolved user on the context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := a.callerID(r)
		if !ok {
			writeStatus(w, http.StatusUnauthorized, "missing or invalid credentials")
			return
		}
		user, err := a.users.GetUser(r.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrKeyNotFound) {
				writeStatus(w, http.StatusUnauthorized, "unknown user")
				return
			}
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

func userFrom(r *http.Request) domain.User {
	user, _ := r.Context().Value(userKey{}).(domain.User)
	return user
}

// IssueToken signs an HS256 token for userID. It is used by tests and local tooling.
func IssueToken(secret, userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: userID})
	return token.SignedString([]byte(secret))
}
