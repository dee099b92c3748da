package jwt

import (
	"ShopPulse/pkg/back"
	"ShopPulse/pkg/util/myjwt"
	"ShopPulse/pkg/xerr"
	"strings"

	"github.com/gin-gonic/gin"
)

func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			back.Error(c, xerr.Unauthorized, "missing or invalid authorization header")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := myjwt.ParseToken(tokenString)
		if err != nil {
			back.Error(c, xerr.Unauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set("uuid", claims.Uuid)
		c.Set("username", claims.Username)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// StaffOnly 员工端接口的角色校验，必须在 Auth 之后挂载
func StaffOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != myjwt.RoleStaff {
			back.Error(c, xerr.Forbidden, "仅限员工访问")
			c.Abort()
			return
		}
		c.Next()
	}
}
