package services

import (
	"context"
	"testing"

	"github.com/anonto42/nano-forum/backend/internal/models"
	"github.com/anonto42/nano-forum/backend/internal/repositories"
	"github.com/anonto42/nano-forum/backend/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleTwiceRestoresCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	post := f.post(t, alice, "Hello")

	before, err := f.likes.Count(ctx, post.ID.Hex(), models.TargetPost)
	require.NoError(t, err)

	res, err := f.likes.Toggle(ctx, bob, post.ID.Hex(), models.TargetPost)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Equal(t, before+1, res.Count)

	liked, err := f.likes.Status(ctx, bob.ID, post.ID.Hex(), models.TargetPost)
	require.NoError(t, err)
	assert.True(t, liked)

	res, err = f.likes.Toggle(ctx, bob, post.ID.Hex(), models.TargetPost)
	require.NoError(t, err)
	assert.False(t, res.Liked)
	assert.Equal(t, before, res.Count)

	liked, err = f.likes.Status(ctx, bob.ID, post.ID.Hex(), models.TargetPost)
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestToggleNotifiesPostOwner(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	post := f.post(t, alice, "Hello")

	_, err := f.likes.Toggle(context.Background(), bob, post.ID.Hex(), models.TargetPost)
	require.NoError(t, err)

	inbox := f.inbox(t, alice.ID)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.NotificationLikePost, inbox[0].Type)
	assert.Equal(t, `bob liked your post "Hello"`, inbox[0].Message)
	assert.Equal(t, post.ID.Hex(), inbox[0].PostID)
	assert.Equal(t, "bob", inbox[0].ActorUsername)
	assert.False(t, inbox[0].Read)
}

func TestToggleReplyNotifiesAuthor(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	post := f.post(t, bob, "Thread")
	reply := f.reply(t, alice, post, "first!")

	_, err := f.likes.Toggle(context.Background(), bob, reply.ID.Hex(), models.TargetReply)
	require.NoError(t, err)

	inbox := f.inbox(t, alice.ID)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.NotificationLikeReply, inbox[0].Type)
	assert.Equal(t, `bob liked your reply "first!"`, inbox[0].Message)
	assert.Equal(t, "Thread", inbox[0].PostTitle)
	assert.Equal(t, reply.ID.Hex(), inbox[0].ReplyID)
}

func TestSelfLikeCountsWithoutNotification(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	post := f.post(t, alice, "Mine")

	res, err := f.likes.Toggle(context.Background(), alice, post.ID.Hex(), models.TargetPost)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.EqualValues(t, 1, res.Count)
	assert.Empty(t, f.inbox(t, alice.ID))
}

func TestToggleRejectsBadTargets(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	post := f.post(t, alice, "Hello")

	_, err := f.likes.Toggle(context.Background(), alice, post.ID.Hex(), "forum")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.likes.Toggle(context.Background(), alice, "64b7f0c2a1b2c3d4e5f60718", models.TargetPost)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.likes.Toggle(context.Background(), alice, post.ID.Hex(), models.TargetReply)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.likes.Count(context.Background(), post.ID.Hex(), "")
	assert.ErrorIs(t, err, ErrValidation)
}

// blindLikes never sees existing likes, like a toggle racing another one.
type blindLikes struct {
	*memory.Likes
}

func (blindLikes) GetLike(context.Context, uint, string, string) (*models.Like, error) {
	return nil, repositories.ErrNotFound
}

func TestToggleDuplicateInsertCountsAsLiked(t *testing.T) {
	f := newFixture(t)
	ledger := NewLikeLedger(blindLikes{f.store.Likes}, f.store.Posts, f.store.Replies, f.store.Users, f.dispatcher)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	post := f.post(t, alice, "Hello")

	for range 2 {
		res, err := ledger.Toggle(context.Background(), bob, post.ID.Hex(), models.TargetPost)
		require.NoError(t, err)
		assert.True(t, res.Liked)
		assert.EqualValues(t, 1, res.Count)
	}
	assert.Len(t, f.inbox(t, alice.ID), 1)
}

func TestLikedPostsAndReplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	first := f.post(t, alice, "First")
	second := f.post(t, alice, "Second")
	reply := f.reply(t, alice, first, "a reply")

	for _, id := range []string{first.ID.Hex(), second.ID.Hex()} {
		_, err := f.likes.Toggle(ctx, bob, id, models.TargetPost)
		require.NoError(t, err)
	}
	_, err := f.likes.Toggle(ctx, bob, reply.ID.Hex(), models.TargetReply)
	require.NoError(t, err)

	posts, err := f.likes.LikedPosts(ctx, bob, bob.ID)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "Second", posts[0].Title)
	assert.Equal(t, "First", posts[1].Title)
	assert.Equal(t, "alice", posts[0].Username)
	assert.False(t, posts[0].LikedAt.IsZero())

	replies, err := f.likes.LikedReplies(ctx, bob, bob.ID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, "First", replies[0].PostTitle)
	assert.Equal(t, "alice", replies[0].Username)

	_, err = f.likes.LikedPosts(ctx, alice, bob.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.likes.LikedReplies(ctx, alice, bob.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestToggleKeepsLikeWhenNotificationFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	post := f.post(t, alice, "Hello")
	dispatcher := NewNotificationDispatcher(failingNotifications{f.store.Notifications, alice.ID})
	ledger := NewLikeLedger(f.store.Likes, f.store.Posts, f.store.Replies, f.store.Users, dispatcher)

	res, err := ledger.Toggle(ctx, bob, post.ID.Hex(), models.TargetPost)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.EqualValues(t, 1, res.Count)

	liked, err := ledger.Status(ctx, bob.ID, post.ID.Hex(), models.TargetPost)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Empty(t, f.inbox(t, alice.ID))

	res, err = ledger.Toggle(ctx, bob, post.ID.Hex(), models.TargetPost)
	require.NoError(t, err)
	assert.False(t, res.Liked)
	assert.Zero(t, res.Count)
}
