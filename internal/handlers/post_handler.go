package handlers

import (
	"fmt"
	"net/http"

	"github.com/anonto42/nano-forum/backend/internal/models"
	"github.com/anonto42/nano-forum/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// PostHandler serves one kind of post. The same handler backs /forums and
// /notes with a different kind bound.
type PostHandler struct {
	kind  string
	label string
	forum *services.ForumService
}

// NewPostHandler creates a PostHandler for kind
func NewPostHandler(kind string, forum *services.ForumService) *PostHandler {
	label := "Forum"
	if kind == models.KindNote {
		label = "Note"
	}
	return &PostHandler{kind: kind, label: label, forum: forum}
}

// RegisterPostRoutes registers post and reply routes on g
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.GET("", h.GetPosts)
	g.POST("", h.CreatePost)
	g.GET("/:id", h.GetPost)
	g.PATCH("/:id", h.UpdatePost)
	g.DELETE("/:id", h.DeletePost)
	g.GET("/:id/replies", h.GetReplies)
	g.POST("/:id/replies", h.AddReply)
}

func (h *PostHandler) GetPosts(c echo.Context) error {
	posts, err := h.forum.ListPosts(c.Request().Context(), h.kind)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, posts)
}

func (h *PostHandler) CreatePost(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	post, err := h.forum.CreatePost(c.Request().Context(), actor, h.kind, req.Title, req.Text)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": fmt.Sprintf("New %s created", h.kind), "id": post.ID.Hex()})
}

func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.forum.GetPost(c.Request().Context(), h.kind, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, post)
}

// UpdatePost replaces title, text, owner and completion; the caller is
// recorded as the editor
func (h *PostHandler) UpdatePost(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.UpdatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	post, err := h.forum.UpdatePost(c.Request().Context(), actor, services.UpdatePostInput{
		Kind:      h.kind,
		ID:        c.Param("id"),
		OwnerID:   req.User,
		Title:     req.Title,
		Text:      req.Text,
		Completed: req.Completed,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": fmt.Sprintf("'%s' updated", post.Title)})
}

// DeletePost removes the post with its replies, likes and notifications
func (h *PostHandler) DeletePost(c echo.Context) error {
	post, err := h.forum.DeletePost(c.Request().Context(), h.kind, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("%s '%s' with ID %s deleted (and associated replies, notifications, and likes)",
			h.label, post.Title, post.ID.Hex()),
	})
}

func (h *PostHandler) GetReplies(c echo.Context) error {
	replies, err := h.forum.ListReplies(c.Request().Context(), h.kind, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, replies)
}

// AddReply stores the reply; notifications follow in the background
func (h *PostHandler) AddReply(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.CreateReplyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	reply, err := h.forum.AddReply(c.Request().Context(), actor, h.kind, c.Param("id"), req.ReplyText)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, reply)
}
