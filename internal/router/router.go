package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework used for routing

	"github.com/iliyamo/starwars-api/internal/handler" // handlers implementing the endpoints
)

// RegisterRoutes registers routes that do not belong to a component:
// currently only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication surface under /api/auth.
// Everything except change-password is reachable without a session;
// the operations that need one (refresh, logout) authenticate with
// the refresh token carried in the body instead of a Bearer header.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, guard echo.MiddlewareFunc) {
	g := e.Group("/api/auth")
	g.POST("/register", a.Register)
	g.GET("/verification", a.VerifyEmail)
	g.POST("/verification/resend", a.ResendVerification)
	g.POST("/login", a.Login)
	g.POST("/logout", a.Logout)
	g.POST("/refresh-token", a.Refresh)
	g.POST("/forgot-password", a.ForgotPassword)
	g.POST("/reset-password", a.ResetPassword)

	// Changing a password requires a live access token.
	g.POST("/change-password", a.ChangePassword, guard)
}

// RegisterFilms registers the catalog proxy and comment endpoints
// under /api. Reads are public; writing a comment requires a session.
func RegisterFilms(e *echo.Echo, f *handler.FilmHandler, guard echo.MiddlewareFunc, cache echo.MiddlewareFunc) {
	e.GET("/api/films", f.ListFilms, cache)
	e.GET("/api/characters", f.ListCharacters, cache)
	e.GET("/api/films/:id/comments", f.ListComments)
	e.POST("/api/films/:id/comments", f.CreateComment, guard)
}
