package handlers

import (
	"fmt"
	"net/http"

	"github.com/anonto42/nano-forum/backend/internal/models"
	"github.com/anonto42/nano-forum/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// ReplyHandler handles edits and deletes of single replies
type ReplyHandler struct {
	forum *services.ForumService
}

func NewReplyHandler(forum *services.ForumService) *ReplyHandler {
	return &ReplyHandler{forum: forum}
}

func (h *ReplyHandler) RegisterReplyRoutes(g *echo.Group) {
	g.PATCH("/:id", h.EditReply)
	g.DELETE("/:id", h.DeleteReply)
}

// EditReply lets the author change the reply text
func (h *ReplyHandler) EditReply(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.UpdateReplyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	reply, err := h.forum.EditReply(c.Request().Context(), actor, c.Param("id"), req.ReplyText)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Reply updated", "reply": reply})
}

func (h *ReplyHandler) DeleteReply(c echo.Context) error {
	id := c.Param("id")
	if err := h.forum.DeleteReply(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": fmt.Sprintf("Reply with ID %s deleted (and associated likes)", id)})
}
