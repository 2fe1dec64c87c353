package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post kinds. Forums and notes share one collection.
const (
	KindForum = "forum"
	KindNote  = "note"
)

// Post represents a forum thread or note stored in MongoDB
type Post struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Kind      string             `json:"kind" bson:"kind"`
	OwnerID   uint               `json:"user" bson:"owner_id"`
	Title     string             `json:"title" bson:"title"`
	Text      string             `json:"text" bson:"text"`
	Completed bool               `json:"completed" bson:"completed"`
	EditedBy  *string            `json:"edited_by" bson:"edited_by"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// PostView is a post with its owner's username attached
type PostView struct {
	Post
	Username string `json:"username"`
}

// LikedPost is a post listed in a user's likes
type LikedPost struct {
	PostView
	LikedAt time.Time `json:"liked_at"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	Text  string `json:"text" validate:"required"`
}

// UpdatePostRequest defines the request body for updating an existing post
type UpdatePostRequest struct {
	User      uint   `json:"user" validate:"required"`
	Title     string `json:"title" validate:"required,max=200"`
	Text      string `json:"text" validate:"required"`
	Completed bool   `json:"completed"`
}
