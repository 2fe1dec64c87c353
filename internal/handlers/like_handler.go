package handlers

import (
	"net/http"

	"github.com/anonto42/nano-forum/backend/internal/models"
	"github.com/anonto42/nano-forum/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// LikeHandler handles HTTP requests related to likes
type LikeHandler struct {
	likes *services.LikeLedger
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(likes *services.LikeLedger) *LikeHandler {
	return &LikeHandler{likes: likes}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("", h.ToggleLike)
	g.GET("/count", h.GetLikeCount)
	g.GET("/status", h.GetLikeStatus)
}

// ToggleLike likes or unlikes a post or reply and returns the new count
func (h *LikeHandler) ToggleLike(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.ToggleLikeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	result, err := h.likes.Toggle(c.Request().Context(), actor, req.TargetID, req.TargetType)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *LikeHandler) GetLikeCount(c echo.Context) error {
	var q models.LikeQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}
	count, err := h.likes.Count(c.Request().Context(), q.TargetID, q.TargetType)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": count})
}

// GetLikeStatus reports whether the caller likes the target
func (h *LikeHandler) GetLikeStatus(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var q models.LikeQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}
	liked, err := h.likes.Status(c.Request().Context(), actor.ID, q.TargetID, q.TargetType)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"liked": liked})
}
