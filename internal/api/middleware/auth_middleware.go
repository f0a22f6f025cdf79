package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"trackApply/internal/auth"
	"trackApply/internal/errcode"
)

// Context keys set by AuthMiddleware.
const (
	UserIDKey   = "userID"
	UsernameKey = "username"
)

// TokenVerifier checks a bearer token.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.TokenClaims, error)
}

func abort(c *gin.Context, status int, kind errcode.Kind, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": kind})
}

// AuthMiddleware 校验访问令牌并将 userID 注入上下文。
// 缺少或格式错误的 Authorization 头返回 401；令牌校验失败返回 403。
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.Fields(c.GetHeader("Authorization"))
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abort(c, http.StatusUnauthorized, errcode.Unauthorized, "Authentication required.")
			return
		}

		claims, err := verifier.VerifyToken(parts[1])
		if err != nil {
			LoggerFromContext(c).Debug("token rejected", "error", err)
			if errcode.Is(err, errcode.Unauthorized) {
				abort(c, http.StatusUnauthorized, errcode.Unauthorized, "Authentication required.")
				return
			}
			abort(c, http.StatusForbidden, errcode.Forbidden, "Invalid or expired token.")
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UsernameKey, claims.Username)
		c.Next()
	}
}
