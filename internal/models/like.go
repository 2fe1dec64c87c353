package models

import "time"

// Like target kinds
const (
	TargetPost  = "post"
	TargetReply = "reply"
)

// Like represents one user's like on a post or reply.
// The (user, target id, target type) tuple is unique.
type Like struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_like_user_target"`
	TargetID   string    `json:"target_id" gorm:"size:24;not null;index;uniqueIndex:idx_like_user_target"`
	TargetType string    `json:"target_type" gorm:"size:10;not null;uniqueIndex:idx_like_user_target"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}

// ToggleLikeRequest defines the request body for liking or unliking a target
type ToggleLikeRequest struct {
	TargetID   string `json:"targetId" validate:"required,objectid"`
	TargetType string `json:"targetType" validate:"required,oneof=post reply"`
}

// LikeQuery binds the query string of the count and status endpoints
type LikeQuery struct {
	TargetID   string `query:"targetId" validate:"required,objectid"`
	TargetType string `query:"targetType" validate:"required,oneof=post reply"`
}

// LikeResult is returned by a toggle
type LikeResult struct {
	Liked bool  `json:"liked"`
	Count int64 `json:"count"`
}
