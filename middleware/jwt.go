// auth/jwt.go
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long a login token stays valid.
const TokenTTL = 24 * time.Hour

// Claims are the custom payload in the JWT
type Claims struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	CompanyName string `json:"companyName"`
	DID         string `json:"did"`
	jwt.RegisteredClaims
}

// unexported type prevents collisions in context
type ctxKey int

const (
	userClaimsKey ctxKey = iota
)

// Auth signs and verifies HS256 tokens with one secret.
type Auth struct {
	key []byte
	now func() time.Time
}

func NewAuth(secret string) *Auth {
	return &Auth{key: []byte(secret), now: time.Now}
}

// GenerateToken creates a signed JWT valid for TokenTTL
func (a *Auth) GenerateToken(userID, email, companyName, did string) (string, error) {
	now := a.now()
	claims := Claims{
		UserID:      userID,
		Email:       email,
		CompanyName: companyName,
		DID:         did,

		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    "veritrace",
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.key)
}

// Parse verifies tokenStr and returns its claims.
func (a *Auth) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// JWTMiddleware validates the bearer token and stashes the Claims in ctx
func (a *Auth) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			unauthorized(w, "missing Authorization header")
			return
		}
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			unauthorized(w, "invalid auth header")
			return
		}

		claims, err := a.Parse(parts[1])
		if err != nil {
			unauthorized(w, "invalid or expired token")
			return
		}

		ctx := WithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// WithClaims attaches claims to ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, userClaimsKey, c)
}

// GetClaims pulls the *Claims out of the request context (or nil)
func GetClaims(r *http.Request) *Claims {
	if c, ok := r.Context().Value(userClaimsKey).(*Claims); ok {
		return c
	}
	return nil
}

func GetUserID(r *http.Request) string {
	if c := GetClaims(r); c != nil {
		return c.UserID
	}
	return ""
}
