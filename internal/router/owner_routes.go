package router

import (
	"github.com/labstack/echo/v4"

	"github.com/campuseats/campuseats/internal/handler"
	"github.com/campuseats/campuseats/internal/middleware"
	"github.com/campuseats/campuseats/internal/model"
)

// RegisterOwner registers canteen-owner endpoints under /v1/canteen.
// All routes require a valid JWT and the canteenOwner role.
func RegisterOwner(e *echo.Echo, ow *handler.OwnerHandler, ord *handler.OrderHandler, jwtSecret string) {
	g := e.Group(
		"/v1/canteen",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(string(model.RoleCanteenOwner)),
	)

	g.GET("", ow.GetCanteen)
	g.PATCH("/status", ow.SetOpen)

	g.GET("/menu", ow.ListMenu)
	g.POST("/menu", ow.UpsertMenuItem)
	g.PUT("/menu", ow.UpsertMenuItem)

	g.GET("/orders", ord.ListForCanteen)
	g.PATCH("/orders/:id/status", ord.SetStatus)
}
