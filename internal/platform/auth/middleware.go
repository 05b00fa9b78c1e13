package auth

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"library-backend/internal/platform/apperr"
)

const (
	CtxMemberIDKey = "member_id"
	CtxRoleKey     = "role"
	CtxActiveKey   = "is_active"
)

// RequireAuth validates the Bearer token and resolves the session profile
// (member id, role, active flag) into the request context. This runs once per
// request; everything downstream reads the resolved values.
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			abortUnauthenticated(c, "missing Authorization header")
			return
		}

		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthenticated(c, "invalid Authorization header")
			return
		}

		tokenStr := strings.TrimSpace(parts[1])
		if tokenStr == "" {
			abortUnauthenticated(c, "empty token")
			return
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			// Pin the alg, rejects alg=none tokens.
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || token == nil || !token.Valid {
			abortUnauthenticated(c, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthenticated(c, "invalid claims")
			return
		}

		sub, _ := claims["sub"].(string)
		memberID, err := strconv.ParseInt(sub, 10, 64)
		if err != nil || memberID <= 0 {
			abortUnauthenticated(c, "invalid sub")
			return
		}

		role := ""
		if v, ok := claims["role"].(string); ok {
			role = v
		}
		active := false
		if v, ok := claims["act"].(bool); ok {
			active = v
		}

		c.Set(CtxMemberIDKey, memberID)
		c.Set(CtxRoleKey, role)
		c.Set(CtxActiveKey, active)
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, apperr.BodyFrom(apperr.ErrUnauthorized(msg)))
}
