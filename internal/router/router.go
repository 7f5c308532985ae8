package router // router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/cinecriticas/store/internal/handler"
	"github.com/cinecriticas/store/internal/middleware"
	"github.com/cinecriticas/store/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers register/login under /api/auth and the
// authenticated profile endpoint.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/api/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	auth := e.Group("/api", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the anonymous catalog endpoints.  cache may be
// nil, in which case responses are never cached.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	var mw []echo.MiddlewareFunc
	if cache != nil {
		mw = append(mw, cache)
	}
	g := e.Group("/api/public", mw...)
	g.GET("/products", p.ListProducts)
	// static segment wins over :id in echo's router
	g.GET("/products/slug/:slug", p.GetProductBySlug)
	g.GET("/products/:id", p.GetProduct)
	g.GET("/categories", p.ListCategories)
}

// RegisterOrders registers the purchase endpoints.  All routes require a
// valid JWT; limiter is applied after authentication so buckets can be
// keyed by user.
func RegisterOrders(e *echo.Echo, h *handler.OrderHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	mw := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret)}
	if limiter != nil {
		mw = append(mw, limiter)
	}
	g := e.Group("/api/orders", mw...)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
}

// RegisterAdmin registers catalog management under /api/admin.  Routes
// require a JWT carrying the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminProductHandler, jwtSecret string) {
	g := e.Group(
		"/api/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("/products", h.Create)
	g.PUT("/products/:id", h.Update)
	g.DELETE("/products/:id", h.Delete)
}
