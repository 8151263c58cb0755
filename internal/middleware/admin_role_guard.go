package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// AdminRoleGuard は AuthJWT が詰めたroleを見て管理者以外を弾く。
// AuthJWTより後に積むこと。roleが無い＝未認証として401を返す。
func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(CtxUserRoleKey).(string)
			switch role {
			case "":
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			case "ADMIN":
				return next(c)
			default:
				return c.JSON(http.StatusForbidden, errorJSON("admin only"))
			}
		}
	}
}
