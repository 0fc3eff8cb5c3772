package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/avolkovs/authapi/internal/server/auth"
)

// NewRouter builds the echo instance with all routes attached.
func NewRouter(h *Handler, issuer *auth.Issuer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	bearer := Bearer(issuer)

	grp := e.Group("/api/auth")
	grp.POST("/register/password", h.Register)
	grp.POST("/login/password", h.Login)
	grp.POST("/refreshtoken", h.Refresh)
	grp.GET("/verify", h.Verify)

	grp.POST("/logout", h.Logout, bearer)
	grp.POST("/admin/create", h.PromoteAdmin, bearer)

	return e
}
