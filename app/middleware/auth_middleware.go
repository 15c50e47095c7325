// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"strings"

	"github.com/araw/ship-ledger/app/services"
	"github.com/araw/ship-ledger/utils"
	"github.com/gofiber/fiber/v3"
)

// PublicPaths lists the routes reachable without a session. A trailing
// segment match is enough; "/static" covers everything under it.
var PublicPaths = []string{
	"/login",
	"/api/login",
	"/api/verify-otp",
	"/api/forgot-password",
	"/api/send-otp",
	"/api/send-reset-otp",
	"/api/verify-reset-otp",
	"/api/reset-password",
	"/healthz",
	"/metrics",
	"/favicon.ico",
	"/static",
}

// AuthMiddleware guards every route behind the session cookie
type AuthMiddleware struct {
	tokenService services.TokenService
	secureCookie bool
}

// NewAuthMiddleware creates a new authentication middleware. secureCookie
// controls the Secure attribute on the cookie it clears.
func NewAuthMiddleware(tokenService services.TokenService, secureCookie bool) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		secureCookie: secureCookie,
	}
}

// RouteGuard applies the app-wide navigation rules: unauthenticated requests
// to private routes bounce to /login, and an authenticated visit to /login
// bounces back to the root. Everything else passes through with the session
// email stored in locals.
func (m *AuthMiddleware) RouteGuard() fiber.Handler {
	return func(c fiber.Ctx) error {
		path := c.Path()
		public := isPublicPath(path)

		token := c.Cookies(utils.SessionCookieName)
		if token == "" {
			if public {
				return c.Next()
			}
			return c.Redirect().Status(fiber.StatusFound).To("/login")
		}

		claims, err := m.tokenService.ValidateSessionToken(token)
		if err != nil {
			// Expired and malformed cookies are treated the same: drop the
			// cookie and start over at the login page.
			m.clearSessionCookie(c)
			if public {
				return c.Next()
			}
			return c.Redirect().Status(fiber.StatusFound).To("/login")
		}

		// A live session has no business on the login page.
		if path == "/login" {
			return c.Redirect().Status(fiber.StatusFound).To("/")
		}

		c.Locals("session_email", claims.Email)
		c.Locals("token_claims", claims)

		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

func (m *AuthMiddleware) clearSessionCookie(c fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     utils.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   m.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func isPublicPath(path string) bool {
	for _, p := range PublicPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// GetSessionEmailFromContext extracts the authenticated email from the request context
func GetSessionEmailFromContext(c fiber.Ctx) (string, bool) {
	email, ok := c.Locals("session_email").(string)
	return email, ok
}

// GetSessionClaimsFromContext extracts the session claims from the request context
func GetSessionClaimsFromContext(c fiber.Ctx) (*services.SessionClaims, bool) {
	claims, ok := c.Locals("token_claims").(*services.SessionClaims)
	return claims, ok
}
