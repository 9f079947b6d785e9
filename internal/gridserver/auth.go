package gridserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthService issues and validates the bearer tokens gridserver requires on
// every request, so a fleet of decoding workers shares one signing key
// instead of each needing its own trust relationship with Redis/Postgres.
type AuthService struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewAuthService returns an AuthService signing with HS256 under secretKey.
func NewAuthService(secretKey string, tokenTTL time.Duration) *AuthService {
	return &AuthService{secretKey: secretKey, tokenTTL: tokenTTL}
}

// IssueToken returns a signed token identifying clientID.
func (s *AuthService) IssueToken(clientID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"client_id": clientID,
		"exp":       now.Add(s.tokenTTL).Unix(),
		"iat":       now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}

// ValidateToken parses and verifies tokenString, returning the client id.
func (s *AuthService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != "HS256" {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secretKey), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	clientID, _ := claims["client_id"].(string)
	if clientID == "" {
		return "", fmt.Errorf("token missing client_id claim")
	}
	return clientID, nil
}

type contextKey string

const clientIDContextKey contextKey = "gridserver.client_id"

// RequireAuth is chi-compatible middleware validating a "Bearer <token>"
// Authorization header (or a "token" query parameter for WebSocket upgrade
// requests, which can't set arbitrary headers from a browser).
func (s *AuthService) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		clientID, err := s.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
			return
		}
		ctx := r.Context()
		r = r.WithContext(withClientID(ctx, clientID))
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
