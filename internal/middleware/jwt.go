package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"  // context with timeout for the user lookup
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming
	"time"     // timeout duration for DB calls

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/starwars-api/internal/repository" // user lookups for freshness checks
	"github.com/iliyamo/starwars-api/internal/token"      // access token verification
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the caller's identity into the request context.  Beyond the
// signature and expiry check performed by the codec, the middleware reloads
// the user from the database so that soft-deleted or deactivated accounts are
// locked out immediately even while their access tokens are still unexpired.
// Handlers access the authenticated user via `c.Get("user_id")` (uint64) and
// `c.Get("role")` (string).
func JWTAuth(codec *token.Codec, users *repository.UserRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Read the Authorization header.  A valid header starts with
			// "Bearer " followed by the JWT; anything else is rejected with
			// 401 before any parsing happens.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthorized(c)
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// The codec enforces the HMAC signing method, the signature and
			// the expiry.  Expired and forged tokens are indistinguishable
			// to the client.
			claims, err := codec.VerifyAccess(raw)
			if err != nil {
				return unauthorized(c)
			}

			// Reload the user so disabled accounts lose access right away.
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			u, err := users.FindByID(ctx, claims.ID)
			if err != nil || u.Disabled() {
				return unauthorized(c)
			}

			// Store the identity in the context for handlers and downstream
			// middleware (e.g. the rate limiter's per-user keys).
			c.Set("user_id", u.ID)
			c.Set("role", u.Role)
			return next(c)
		}
	}
}

// unauthorized writes the shared error envelope.  Missing, expired and
// forged tokens all get the same answer.
func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{
		"message":    "Please sign in or create an account",
		"status":     "error",
		"statusCode": http.StatusUnauthorized,
	})
}
