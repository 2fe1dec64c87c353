package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/anonto42/nano-forum/backend/internal/middleware"
	"github.com/anonto42/nano-forum/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	auth          *services.AuthService
	secureCookies bool
}

// NewAuthHandler creates a new AuthHandler. secureCookies switches the
// refresh cookie to Secure with SameSite=None for cross-site production use.
func NewAuthHandler(auth *services.AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{auth: auth, secureCookies: secureCookies}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("", h.Login)
	g.GET("/refresh", h.Refresh)
	g.POST("/logout", h.Logout)
	g.POST("/forgot-password", h.ForgotPassword)
	g.POST("/reset-password", h.ResetPassword)
	g.POST("/firebase-login", h.FirebaseLogin)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,password"`
}

type firebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

func (h *AuthHandler) refreshCookie(value string, maxAge int) *http.Cookie {
	cookie := &http.Cookie{
		Name:     middleware.RefreshCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if h.secureCookies {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteNoneMode
	}
	return cookie
}

func (h *AuthHandler) startSession(c echo.Context, session *services.Session) error {
	c.SetCookie(h.refreshCookie(session.RefreshToken, int(services.RefreshTokenTTL/time.Second)))
	return c.JSON(http.StatusOK, echo.Map{"accessToken": session.AccessToken})
}

// Login authenticates by username or email and sets the refresh cookie
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "All fields are required")
	}
	session, err := h.auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return httpError(err)
	}
	return h.startSession(c, session)
}

// Refresh issues a new access token from the refresh cookie
func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(middleware.RefreshCookie)
	if err != nil || cookie.Value == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	access, err := h.auth.Refresh(c.Request().Context(), cookie.Value)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"accessToken": access})
}

// Logout clears the refresh cookie if there is one
func (h *AuthHandler) Logout(c echo.Context) error {
	if _, err := c.Cookie(middleware.RefreshCookie); err != nil {
		return c.NoContent(http.StatusNoContent)
	}
	c.SetCookie(h.refreshCookie("", -1))
	return c.JSON(http.StatusOK, echo.Map{"message": "Cookie cleared"})
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Email is required")
	}
	if err := h.auth.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		if errors.Is(err, services.ErrValidation) {
			return httpError(err)
		}
		log.Printf("forgot password: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Error sending email")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "If that email is registered, a reset link has been sent."})
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.auth.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password has been reset successfully"})
}

// FirebaseLogin exchanges a Firebase ID token for a local session
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	var req firebaseLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	session, err := h.auth.FirebaseLogin(c.Request().Context(), req.IDToken)
	if err != nil {
		return httpError(err)
	}
	return h.startSession(c, session)
}
