package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/models"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "shelfmark_session"
	// CookieMaxAge is how long the cookie is valid.
	CookieMaxAge = 7 * 24 * time.Hour // 7 days
)

type handler struct {
	authService *Service
}

func buildMeResponse(user *models.User) MeResponse {
	return MeResponse{
		ID:    user.ID,
		Email: user.Email,
	}
}

func sessionCookie(c echo.Context, token string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Request().TLS != nil || c.Request().Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	}
}

// register creates a new account and signs it in.
func (h *handler) register(c echo.Context) error {
	ctx := c.Request().Context()

	params := RegisterPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.CreateUser(ctx, params.Email, params.Password)
	if err != nil {
		return errors.WithStack(err)
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return errors.WithStack(err)
	}
	c.SetCookie(sessionCookie(c, token, int(CookieMaxAge.Seconds())))

	return errors.WithStack(c.JSON(http.StatusCreated, buildMeResponse(user)))
}

// login handles user login.
func (h *handler) login(c echo.Context) error {
	ctx := c.Request().Context()

	params := LoginPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.Authenticate(ctx, params.Email, params.Password)
	if err != nil {
		return err
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return errors.WithStack(err)
	}
	c.SetCookie(sessionCookie(c, token, int(CookieMaxAge.Seconds())))

	return errors.WithStack(c.JSON(http.StatusOK, buildMeResponse(user)))
}

// logout clears the session cookie.
func (h *handler) logout(c echo.Context) error {
	c.SetCookie(sessionCookie(c, "", -1))
	return errors.WithStack(c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"}))
}

// me returns the current authenticated user's info.
func (h *handler) me(c echo.Context) error {
	ctx := c.Request().Context()

	cookie, err := c.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return errcodes.Unauthorized("Not authenticated")
	}

	claims, err := h.authService.ValidateToken(cookie.Value)
	if err != nil {
		return errcodes.Unauthorized("Invalid or expired token")
	}

	user, err := h.authService.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return errcodes.Unauthorized("User not found or inactive")
	}

	return errors.WithStack(c.JSON(http.StatusOK, buildMeResponse(user)))
}
