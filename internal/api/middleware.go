// Package api implements the Corkboard REST API using chi.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Auth modes.
const (
	AuthDisabled = "disabled"
	AuthToken    = "token"
	AuthJWT      = "jwt"
)

// AuthConfig selects how requests are authenticated.
type AuthConfig struct {
	Mode      string
	Token     string
	JWTSecret string
}

type subjectKey struct{}

// Subject returns the JWT subject of an authenticated request, or "" in the
// other modes.
func Subject(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

// AuthMiddleware returns middleware that enforces cfg.
// disabled: all requests pass through.
// token: requests must carry "Authorization: Bearer <token>".
// jwt: requests must carry an HS256 token signed with cfg.JWTSecret; its
// subject is the caller's user id.
func AuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, hasBearer := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			switch cfg.Mode {
			case AuthToken:
				if !hasBearer || raw != cfg.Token {
					writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
					return
				}
			case AuthJWT:
				sub, ok := verifyJWT(raw, cfg.JWTSecret)
				if !hasBearer || !ok {
					writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
					return
				}
				r = r.WithContext(context.WithValue(r.Context(), subjectKey{}, sub))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func verifyJWT(raw, secret string) (string, bool) {
	tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return "", false
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}

// ownerOnly rejects a JWT caller touching another user's board.
func ownerOnly(w http.ResponseWriter, r *http.Request, userID string) bool {
	if sub := Subject(r.Context()); sub != "" && sub != userID {
		writeJSON(w, http.StatusForbidden, errorBody("forbidden"))
		return false
	}
	return true
}
