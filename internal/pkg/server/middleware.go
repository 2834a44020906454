package server

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/vittapcode/homeboard/internal/pkg/contxt"
	"github.com/vittapcode/homeboard/internal/pkg/model"
)

func LoggingMiddleware(next http.Handler) http.Handler {
	logger := zap.L()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info(r.RequestURI, zap.String("method", r.Method))
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		next.ServeHTTP(w, r)
	})
}

type authClaims struct {
	UserID   int64      `json:"userId"`
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the bearer token with the secret shared with the
// backend and stores the caller on the request context. The raw token is kept
// there too so passthrough handlers can forward it.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims := &authClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return s.secret, nil
		})
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		user := model.User{ID: claims.UserID, Username: claims.Username, Role: claims.Role}
		next.ServeHTTP(w, r.WithContext(contxt.WithUser(r.Context(), user, raw)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if after, found := strings.CutPrefix(header, "Bearer "); found && after != "" {
		return after, true
	}
	// Browsers cannot set headers on websocket upgrades.
	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}
	return "", false
}

// requirePermission guards a handler behind a role permission.
func (s *Server) requirePermission(permission model.Permission, handler http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := contxt.User(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if !user.Role.HasPermission(permission) {
			writeError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
		handler(w, r)
	})
}
