package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingSigningKey is returned when tokens would be signed or checked
// with an empty key.
var ErrMissingSigningKey = errors.New("jwt signing key is not configured")

type contextKey string

const organizationKey contextKey = "organizationID"

// Claims identify the organization an ingestion client writes for.
type Claims struct {
	OrganizationID string `json:"org_id"`
	jwt.RegisteredClaims
}

func GenerateJWTToken(organizationID string, signingKey string, expirationTime time.Duration) (string, error) {
	if signingKey == "" {
		return "", ErrMissingSigningKey
	}
	expiration := time.Now().Add(expirationTime)
	claims := &Claims{
		OrganizationID: organizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(signingKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

func ValidateJWTToken(tokenString string, signingKey string) (*Claims, error) {
	if signingKey == "" {
		return nil, ErrMissingSigningKey
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(signingKey), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.OrganizationID == "" {
		return nil, fmt.Errorf("token has no organization")
	}

	return claims, nil
}

func JWTMiddleware(next http.Handler, signingKey string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if signingKey == "" {
			http.Error(w, "Authentication is not configured", http.StatusServiceUnavailable)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			http.Error(w, "Malformed Authorization header (expected Bearer <token>)", http.StatusUnauthorized)
			return
		}

		claims, err := ValidateJWTToken(parts[1], signingKey)
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid token: %v", err), http.StatusUnauthorized)
			return
		}

		ctx := WithOrganizationID(r.Context(), claims.OrganizationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func WithOrganizationID(ctx context.Context, organizationID string) context.Context {
	return context.WithValue(ctx, organizationKey, organizationID)
}

func GetOrganizationIDFromContext(ctx context.Context) (string, bool) {
	organizationID, ok := ctx.Value(organizationKey).(string)
	return organizationID, ok
}
