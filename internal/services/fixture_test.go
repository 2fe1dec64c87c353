package services

import (
	"context"
	"errors"
	"testing"

	"github.com/anonto42/nano-forum/backend/internal/models"
	"github.com/anonto42/nano-forum/backend/internal/repositories/memory"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	store      *memory.Store
	dispatcher *NotificationDispatcher
	likes      *LikeLedger
	forum      *ForumService
	users      *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	dispatcher := NewNotificationDispatcher(store.Notifications)
	forum := NewForumService(store.Users, store.Posts, store.Replies, store.Likes, store.Notifications, dispatcher, InlineTasks{})
	return &fixture{
		store:      store,
		dispatcher: dispatcher,
		likes:      NewLikeLedger(store.Likes, store.Posts, store.Replies, store.Users, dispatcher),
		forum:      forum,
		users:      NewUserService(store.Users, forum),
	}
}

// user seeds an active member whose password is "pass1234".
func (f *fixture) user(t *testing.T, username string, roles ...string) models.Identity {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("pass1234"), bcrypt.MinCost)
	require.NoError(t, err)
	if len(roles) == 0 {
		roles = []string{models.RoleMember}
	}
	u := &models.User{Username: username, Email: username + "@example.com", Password: string(hash), Roles: roles, Active: true}
	require.NoError(t, f.store.Users.CreateUser(context.Background(), u))
	return u.Identity()
}

func (f *fixture) post(t *testing.T, owner models.Identity, title string) *models.Post {
	t.Helper()
	p, err := f.forum.CreatePost(context.Background(), owner, models.KindForum, title, "body of "+title)
	require.NoError(t, err)
	return p
}

func (f *fixture) reply(t *testing.T, author models.Identity, post *models.Post, text string) *models.Reply {
	t.Helper()
	r, err := f.forum.AddReply(context.Background(), author, "", post.ID.Hex(), text)
	require.NoError(t, err)
	return r
}

func (f *fixture) inbox(t *testing.T, userID uint) []models.Notification {
	t.Helper()
	list, err := f.dispatcher.List(context.Background(), userID)
	require.NoError(t, err)
	return list
}

// failingNotifications refuses to store notifications for one recipient.
type failingNotifications struct {
	*memory.Notifications
	recipient uint
}

func (n failingNotifications) CreateNotification(ctx context.Context, notification *models.Notification) error {
	if notification.RecipientID == n.recipient {
		return errors.New("notifications unavailable")
	}
	return n.Notifications.CreateNotification(ctx, notification)
}

// failingLookups errors on exact lookups of one username.
type failingLookups struct {
	*memory.Users
	username string
}

func (u failingLookups) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if username == u.username {
		return nil, errors.New("lookup timed out")
	}
	return u.Users.GetUserByUsername(ctx, username)
}
