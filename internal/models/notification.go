package models

import (
	"fmt"
	"time"
)

type NotificationType string

const (
	NotificationReply     NotificationType = "reply"
	NotificationTag       NotificationType = "tag"
	NotificationLikePost  NotificationType = "like-post"
	NotificationLikeReply NotificationType = "like-reply"
)

// Notification represents a user notification (SQL)
type Notification struct {
	ID            uint             `json:"id" gorm:"primaryKey"`
	RecipientID   uint             `json:"recipient_id" gorm:"not null;index"`
	PostID        string           `json:"post_id,omitempty" gorm:"size:24;index"`
	PostTitle     string           `json:"post_title,omitempty"`
	ReplyID       string           `json:"reply_id,omitempty" gorm:"size:24;index"`
	ReplyText     string           `json:"reply_text,omitempty"`
	ActorUsername string           `json:"username" gorm:"size:20;not null;index"`
	Type          NotificationType `json:"type" gorm:"size:20;not null"`
	Message       string           `json:"message,omitempty"`
	Read          bool             `json:"read" gorm:"not null;default:false;index"`
	CreatedAt     time.Time        `json:"created_at" gorm:"index"`
}

// NotificationPayload is one of the notice variants below. Each variant
// carries only the fields its notification type needs.
type NotificationPayload interface {
	Type() NotificationType
	apply(n *Notification)
}

// NewNotification builds an unread notification row for the recipient.
func NewNotification(recipientID uint, actorUsername string, p NotificationPayload) *Notification {
	n := &Notification{
		RecipientID:   recipientID,
		ActorUsername: actorUsername,
		Type:          p.Type(),
	}
	p.apply(n)
	return n
}

// ReplyNotice tells a post owner somebody replied.
type ReplyNotice struct {
	PostID    string
	PostTitle string
	ReplyID   string
	ReplyText string
}

func (ReplyNotice) Type() NotificationType { return NotificationReply }

func (r ReplyNotice) apply(n *Notification) {
	n.PostID, n.PostTitle = r.PostID, r.PostTitle
	n.ReplyID, n.ReplyText = r.ReplyID, r.ReplyText
}

// TagNotice tells a user they were mentioned in a reply.
type TagNotice struct {
	PostID    string
	PostTitle string
	ReplyID   string
	ReplyText string
}

func (TagNotice) Type() NotificationType { return NotificationTag }

func (t TagNotice) apply(n *Notification) {
	n.PostID, n.PostTitle = t.PostID, t.PostTitle
	n.ReplyID, n.ReplyText = t.ReplyID, t.ReplyText
	n.Message = fmt.Sprintf("%s mentioned you in a reply.", n.ActorUsername)
}

type PostLikeNotice struct {
	PostID    string
	PostTitle string
}

func (PostLikeNotice) Type() NotificationType { return NotificationLikePost }

func (l PostLikeNotice) apply(n *Notification) {
	n.PostID, n.PostTitle = l.PostID, l.PostTitle
	n.Message = fmt.Sprintf("%s liked your post %q", n.ActorUsername, l.PostTitle)
}

type ReplyLikeNotice struct {
	PostID    string
	PostTitle string
	ReplyID   string
	ReplyText string
}

func (ReplyLikeNotice) Type() NotificationType { return NotificationLikeReply }

func (l ReplyLikeNotice) apply(n *Notification) {
	n.PostID, n.PostTitle = l.PostID, l.PostTitle
	n.ReplyID, n.ReplyText = l.ReplyID, l.ReplyText
	n.Message = fmt.Sprintf("%s liked your reply %q", n.ActorUsername, l.ReplyText)
}

// CreateNotificationRequest is the body of the generic creation endpoint
type CreateNotificationRequest struct {
	UserID    uint   `json:"userId" validate:"required"`
	PostID    string `json:"postId" validate:"required,objectid"`
	ReplyID   string `json:"replyId,omitempty" validate:"omitempty,objectid"`
	ReplyText string `json:"replyText" validate:"required"`
}

// UpdateNotificationRequest marks one notification read or unread
type UpdateNotificationRequest struct {
	Read *bool `json:"read" validate:"required"`
}
