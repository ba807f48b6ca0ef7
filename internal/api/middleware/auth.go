package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/stitts-dev/acca-builder/pkg/utils"
)

type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// OptionalAuth attaches the caller's identity when a bearer token is sent.
// Anonymous requests pass through and share the anonymous archive; a token
// that fails validation is rejected. Browsers cannot set headers on websocket
// upgrades, so the token may also arrive as the access_token query parameter.
func OptionalAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("access_token")
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				c.Next()
				return
			}
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
		if tokenString == "" {
			c.Next()
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(jwtSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			utils.SendUnauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("authenticated", true)
		c.Next()
	}
}

// Owner returns the archive owner key of the request, empty when anonymous.
func Owner(c *gin.Context) string {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uint); ok {
			return strconv.FormatUint(uint64(id), 10)
		}
	}
	return ""
}
