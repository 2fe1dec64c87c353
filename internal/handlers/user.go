package handlers

import (
	"fmt"
	"net/http"

	"github.com/anonto42/nano-forum/backend/internal/models"
	"github.com/anonto42/nano-forum/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	users *services.UserService
	likes *services.LikeLedger
	forum *services.ForumService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users *services.UserService, likes *services.LikeLedger, forum *services.ForumService) *UserHandler {
	return &UserHandler{users: users, likes: likes, forum: forum}
}

// RegisterUserRoutes registers signup on the public group and the rest on
// the authenticated one. Both groups are rooted at /users.
func (h *UserHandler) RegisterUserRoutes(public, protected *echo.Group) {
	public.POST("", h.CreateUser)

	protected.GET("", h.GetUsers)
	protected.PATCH("/:id", h.UpdateUser)
	protected.DELETE("/:id", h.DeleteUser)
	protected.GET("/:id/liked-posts", h.GetLikedPosts)
	protected.GET("/:id/liked-replies", h.GetLikedReplies)
	protected.GET("/:id/replies", h.GetReplies)
}

func (h *UserHandler) CreateUser(c echo.Context) error {
	var req models.CreateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.users.Register(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": fmt.Sprintf("New user %s created", user.Username), "id": user.ID})
}

func (h *UserHandler) GetUsers(c echo.Context) error {
	users, err := h.users.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UserHandler) UpdateUser(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	var req models.UpdateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.users.Update(c.Request().Context(), actor, id, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": fmt.Sprintf("%s updated", user.Username)})
}

// DeleteUser removes the account and everything it owns
func (h *UserHandler) DeleteUser(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	user, err := h.users.Delete(c.Request().Context(), actor, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("Username %s with ID %d and all related data deleted", user.Username, user.ID),
	})
}

func (h *UserHandler) GetLikedPosts(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	posts, err := h.likes.LikedPosts(c.Request().Context(), actor, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, posts)
}

func (h *UserHandler) GetLikedReplies(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	replies, err := h.likes.LikedReplies(c.Request().Context(), actor, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, replies)
}

// GetReplies lists the user's own replies with the titles of their posts
func (h *UserHandler) GetReplies(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	replies, err := h.forum.RepliesByUser(c.Request().Context(), actor, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, replies)
}
