package services

import (
	"context"

	"github.com/anonto42/nano-forum/backend/internal/models"
	"github.com/anonto42/nano-forum/backend/internal/repositories"
	"github.com/pkg/errors"
)

// NotificationDispatcher creates and manages per-user notifications.
type NotificationDispatcher struct {
	notifications repositories.NotificationRepository
}

func NewNotificationDispatcher(notifications repositories.NotificationRepository) *NotificationDispatcher {
	return &NotificationDispatcher{notifications: notifications}
}

// Create stores a notification on behalf of actor. Users cannot notify
// themselves.
func (d *NotificationDispatcher) Create(ctx context.Context, actor models.Identity, recipientID uint, payload models.NotificationPayload) (*models.Notification, error) {
	if recipientID == actor.ID {
		return nil, errors.Wrap(ErrForbidden, "cannot create notification for your own action")
	}
	return d.dispatch(ctx, recipientID, actor.Username, payload)
}

// dispatch stores a notification without any self-check; callers decide
// who gets notified.
func (d *NotificationDispatcher) dispatch(ctx context.Context, recipientID uint, actorUsername string, payload models.NotificationPayload) (*models.Notification, error) {
	n := models.NewNotification(recipientID, actorUsername, payload)
	if err := d.notifications.CreateNotification(ctx, n); err != nil {
		return nil, errors.Wrapf(err, "store %s notification", payload.Type())
	}
	return n, nil
}

// List returns the user's notifications, newest first.
func (d *NotificationDispatcher) List(ctx context.Context, userID uint) ([]models.Notification, error) {
	return d.notifications.GetByRecipientID(ctx, userID)
}

func (d *NotificationDispatcher) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return d.notifications.GetUnreadCount(ctx, userID)
}

func (d *NotificationDispatcher) MarkRead(ctx context.Context, id uint, read bool) (*models.Notification, error) {
	n, err := d.notifications.SetRead(ctx, id, read)
	if err != nil {
		return nil, notFound(err, "notification")
	}
	return n, nil
}

// MarkAllRead flips every unread notification of the user and reports how
// many changed.
func (d *NotificationDispatcher) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return d.notifications.MarkAllAsRead(ctx, userID)
}

// Delete removes a notification; only its recipient may do so.
func (d *NotificationDispatcher) Delete(ctx context.Context, id uint, requester models.Identity) error {
	n, err := d.notifications.GetNotificationByID(ctx, id)
	if err != nil {
		return notFound(err, "notification")
	}
	if n.RecipientID != requester.ID {
		return errors.Wrap(ErrForbidden, "not authorized to delete this notification")
	}
	if err := d.notifications.DeleteNotification(ctx, id); err != nil {
		return notFound(err, "notification")
	}
	return nil
}
