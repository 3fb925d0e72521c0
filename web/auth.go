// ABOUTME: Bearer-token authentication middleware for the HTTP boundary
// ABOUTME: Validates HS256 JWTs and puts the user id in the gin context
package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const userIDKey = "userID"

var (
	ErrUserNotFound  = errors.New("user not found in context")
	ErrNonValidToken = errors.New("token did not pass validation")
)

var tokenSignatureAlg = jwt.SigningMethodHS256

type authClaims struct {
	jwt.RegisteredClaims
}

// decodeJWT validates a bearer token and returns its claims. Token
// issuance lives in the auth service; this side only verifies.
func decodeJWT(tokenString, secret string) (*authClaims, error) {
	claims := &authClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{tokenSignatureAlg.Alg()}))

	if err != nil {
		return nil, err
	}
	if parsed == nil || !parsed.Valid {
		return nil, ErrNonValidToken
	}
	return claims, nil
}

// AuthMiddleware requires a valid Authorization: Bearer token and sets the
// subject claim as the request's user id.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, err := decodeJWT(token, secret)
		if err != nil || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(userIDKey, claims.Subject)
		c.Next()
	}
}

// GetUser returns the authenticated user id from the gin context.
func GetUser(c *gin.Context) (string, error) {
	uid, exists := c.Get(userIDKey)
	if !exists {
		return "", ErrUserNotFound
	}
	userID, ok := uid.(string)
	if !ok || userID == "" {
		return "", ErrUserNotFound
	}
	return userID, nil
}
