// Package router wires handlers to URL paths. Route groups are split
// by audience: public browse, auth, student, owner and admin.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/campuseats/campuseats/internal/config"
	"github.com/campuseats/campuseats/internal/handler"
	"github.com/campuseats/campuseats/internal/middleware"
)

// RegisterRoutes registers unauthenticated plumbing: the health check
// used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the credential endpoints. The token-bucket
// limiter guards the whole group; the OTP endpoints are the reason it
// exists.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, rlCfg config.RateLimitConfig, rdb *redis.Client, jwtSecret string) {
	g := e.Group("/v1/auth", middleware.NewTokenBucket(rlCfg, rdb))
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/otp/request", a.RequestOTP)
	g.POST("/otp/verify", a.VerifyOTP)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1/auth", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the browse endpoints guests may hit.
func RegisterPublic(e *echo.Echo, d *handler.DirectoryHandler) {
	e.GET("/v1/colleges", d.ListColleges)
	e.GET("/v1/colleges/:id/canteens", d.ListCanteens)
	e.GET("/v1/canteens/:id/menu", d.ListMenu)
}

// RegisterPayments registers the payment gateway's callback. The
// gateway authenticates with its own shared-secret header validated
// upstream, not with user JWTs.
func RegisterPayments(e *echo.Echo, o *handler.OrderHandler) {
	e.POST("/v1/payments/webhook", o.PaymentWebhook)
}

// RegisterOnboarding registers the wizard persistence endpoints. Any
// authenticated non-admin role may use them; the handler rejects
// admins itself.
func RegisterOnboarding(e *echo.Echo, o *handler.OnboardingHandler, jwtSecret string) {
	g := e.Group("/v1/onboarding", middleware.JWTAuth(jwtSecret))
	g.GET("", o.Progress)
	g.PUT("/step", o.SaveStep)
	g.POST("/complete", o.Complete)
}
