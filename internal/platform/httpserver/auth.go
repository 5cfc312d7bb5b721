package httpserver

import (
	"crypto/hmac"
	"errors"
	"fmt"
	"net/http"
	"strings"

	jwt "github.com/dgrijalva/jwt-go"

	"mboa/internal/platform/realtime"
)

// VerifyToken validates a signed HS256 user token and extracts the caller
// identity. It backs both the REST guards below and the websocket
// handshake, which hands tokens to the same verifier.
func (s *Server) VerifyToken(token string) (realtime.Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return realtime.Identity{}, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return realtime.Identity{}, errors.New("invalid token claims")
	}
	identity := realtime.Identity{
		UserID: claimString(claims, "userId"),
		Role:   claimString(claims, "role"),
		Name:   claimString(claims, "name"),
	}
	if identity.UserID == "" {
		return realtime.Identity{}, errors.New("token carries no userId claim")
	}
	return identity, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	if value, ok := claims[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// requireUser authenticates the request, writing a 401 envelope when the
// bearer token is missing or does not verify.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (realtime.Identity, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Authorization bearer token is required")
		return realtime.Identity{}, false
	}
	identity, err := s.VerifyToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return realtime.Identity{}, false
	}
	return identity, true
}

// optionalUser lets anonymous requests through with an empty identity.
// A token that is present but malformed is still rejected.
func (s *Server) optionalUser(w http.ResponseWriter, r *http.Request) (realtime.Identity, bool) {
	token := bearerToken(r)
	if token == "" {
		return realtime.Identity{}, true
	}
	identity, err := s.VerifyToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return realtime.Identity{}, false
	}
	return identity, true
}

func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) (realtime.Identity, bool) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return realtime.Identity{}, false
	}
	if !identity.IsAdmin() {
		writeError(w, http.StatusForbidden, "administrator role required")
		return realtime.Identity{}, false
	}
	return identity, true
}

// requireService guards the service-to-service webhooks. Callers present
// the shared secret as a bearer token together with an X-Service-Name
// header identifying the upstream.
func (s *Server) requireService(w http.ResponseWriter, r *http.Request) bool {
	token := bearerToken(r)
	if token == "" || s.serviceSecret == "" ||
		!hmac.Equal([]byte(token), []byte(s.serviceSecret)) {
		writeError(w, http.StatusUnauthorized, "service credentials required")
		return false
	}
	if strings.TrimSpace(r.Header.Get("X-Service-Name")) == "" {
		writeError(w, http.StatusUnauthorized, "X-Service-Name header is required")
		return false
	}
	return true
}
