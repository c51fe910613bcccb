package auth

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
)

// Middleware provides authentication middleware.
type Middleware struct {
	authService *Service
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{
		authService: authService,
	}
}

// Authenticate extracts and validates the JWT from the cookie. If valid, it
// verifies the user is still active and adds the user to the context. If not
// authenticated, it returns 401.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		cookie, err := c.Cookie(CookieName)
		if err != nil || cookie.Value == "" {
			return errcodes.Unauthorized("Authentication required")
		}

		claims, err := m.authService.ValidateToken(cookie.Value)
		if err != nil {
			return errcodes.Unauthorized("Invalid or expired token")
		}

		user, err := m.authService.GetUserByID(ctx, claims.UserID)
		if err != nil {
			return errcodes.Unauthorized("User not found or inactive")
		}

		c.Set("user_id", user.ID)
		c.Set("user", user)

		return next(c)
	}
}

// AuthenticateOptional adds the user to the context when a valid token is
// present but doesn't require one.
func (m *Middleware) AuthenticateOptional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		cookie, err := c.Cookie(CookieName)
		if err == nil && cookie.Value != "" {
			claims, err := m.authService.ValidateToken(cookie.Value)
			if err == nil {
				user, err := m.authService.GetUserByID(ctx, claims.UserID)
				if err == nil {
					c.Set("user_id", user.ID)
					c.Set("user", user)
				}
			}
		}
		return next(c)
	}
}
