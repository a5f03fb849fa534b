package router

import (
	"github.com/labstack/echo/v4"

	"github.com/campuseats/campuseats/internal/handler"
	"github.com/campuseats/campuseats/internal/middleware"
	"github.com/campuseats/campuseats/internal/model"
)

// RegisterAdmin registers the verification queue under /v1/admin.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(string(model.RoleAdmin)),
	)

	g.GET("/owners/pending", a.ListPendingOwners)
	g.POST("/owners/:id/verify", a.VerifyOwner)
}
