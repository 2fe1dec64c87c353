package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reply is a comment attached to a post, stored in MongoDB
type Reply struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	PostID    primitive.ObjectID `json:"post_id" bson:"post_id"`
	AuthorID  uint               `json:"user" bson:"author_id"`
	Text      string             `json:"text" bson:"text"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// ReplyView is a reply with the author's username and the post title resolved
type ReplyView struct {
	Reply     `bson:",inline"`
	Username  string `json:"username,omitempty" bson:"-"`
	PostTitle string `json:"post_title,omitempty" bson:"post_title,omitempty"`
}

// LikedReply is a reply listed in a user's likes
type LikedReply struct {
	ReplyView
	LikedAt time.Time `json:"liked_at"`
}

type CreateReplyRequest struct {
	ReplyText string `json:"replyText" validate:"required,max=2000"`
}

type UpdateReplyRequest struct {
	ReplyText string `json:"replyText" validate:"required,max=2000"`
}
