package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys populated by JWTAuth for downstream handlers.
const (
	CtxAdminID   = "adminId"
	CtxAdminName = "adminName"
	CtxAdminRole = "adminRole"
)

// JWTAuth validates the Bearer token and feeds the caller identity into the
// request context. Entitlement decisions happen upstream; a valid token is
// trusted here.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "message": "missing or invalid Authorization header"})
			c.Abort()
			return
		}

		token, err := jwt.Parse(authHeader[7:], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "message": "invalid token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "message": "invalid claims"})
			c.Abort()
			return
		}
		if sub, _ := claims["sub"].(string); sub != "" {
			c.Set(CtxAdminID, sub)
		}
		if name, _ := claims["name"].(string); name != "" {
			c.Set(CtxAdminName, name)
		}
		if role, _ := claims["role"].(string); role != "" {
			c.Set(CtxAdminRole, role)
		}
		c.Next()
	}
}
