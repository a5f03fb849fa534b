package router

import (
	"github.com/labstack/echo/v4"

	"github.com/campuseats/campuseats/internal/handler"
	"github.com/campuseats/campuseats/internal/middleware"
	"github.com/campuseats/campuseats/internal/model"
)

// RegisterStudent registers student-scoped endpoints under /v1.
func RegisterStudent(e *echo.Echo, o *handler.OrderHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(string(model.RoleStudent)),
	)

	g.POST("/orders", o.Place)
	g.GET("/orders", o.ListMine)
}
