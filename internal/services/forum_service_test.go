package services

import (
	"context"
	"testing"

	"github.com/anonto42/nano-forum/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePostRejectsDuplicateTitleIgnoringCase(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	f.post(t, alice, "Hello")

	_, err := f.forum.CreatePost(context.Background(), bob, models.KindNote, "HELLO", "text")
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "duplicate forum title", Message(err))
}

func TestCreatePostValidates(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")

	_, err := f.forum.CreatePost(context.Background(), alice, models.KindForum, "", "text")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.forum.CreatePost(context.Background(), alice, "blog", "t", "text")
	assert.ErrorIs(t, err, ErrValidation)

	post, err := f.forum.CreatePost(context.Background(), alice, models.KindNote, "Todo", "milk")
	require.NoError(t, err)
	assert.False(t, post.Completed)
	assert.Nil(t, post.EditedBy)
	assert.Equal(t, alice.ID, post.OwnerID)
}

func TestUpdatePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	post := f.post(t, alice, "Hello")
	f.post(t, alice, "Taken")

	updated, err := f.forum.UpdatePost(ctx, bob, UpdatePostInput{
		ID: post.ID.Hex(), OwnerID: alice.ID, Title: "HELLO", Text: "new text", Completed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "HELLO", updated.Title)
	assert.True(t, updated.Completed)
	require.NotNil(t, updated.EditedBy)
	assert.Equal(t, "bob", *updated.EditedBy)

	_, err = f.forum.UpdatePost(ctx, bob, UpdatePostInput{ID: post.ID.Hex(), OwnerID: alice.ID, Title: "taken", Text: "x"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.forum.UpdatePost(ctx, bob, UpdatePostInput{ID: "64b7f0c2a1b2c3d4e5f60718", OwnerID: alice.ID, Title: "x", Text: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.forum.UpdatePost(ctx, bob, UpdatePostInput{Kind: models.KindNote, ID: post.ID.Hex(), OwnerID: alice.ID, Title: "x", Text: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplyNotifiesOwner(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	post := f.post(t, alice, "Hello")

	reply := f.reply(t, bob, post, "nice post")

	inbox := f.inbox(t, alice.ID)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.NotificationReply, inbox[0].Type)
	assert.Equal(t, "bob", inbox[0].ActorUsername)
	assert.Equal(t, "Hello", inbox[0].PostTitle)
	assert.Equal(t, reply.ID.Hex(), inbox[0].ReplyID)
	assert.Equal(t, "nice post", inbox[0].ReplyText)
}

func TestReplyTaggingOwnerSendsOnlyTag(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	post := f.post(t, alice, "Hello")

	f.reply(t, bob, post, "@alice look @alice")

	inbox := f.inbox(t, alice.ID)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.NotificationTag, inbox[0].Type)
	assert.Equal(t, "bob mentioned you in a reply.", inbox[0].Message)
}

func TestReplyTagRules(t *testing.T) {
	f := newFixture(t)
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")
	post := f.post(t, alice, "Hello")

	f.reply(t, bob, post, "@bob @carol @Carol @nobody")

	assert.Empty(t, f.inbox(t, bob.ID))
	carolInbox := f.inbox(t, carol.ID)
	require.Len(t, carolInbox, 1)
	assert.Equal(t, models.NotificationTag, carolInbox[0].Type)
	require.Len(t, f.inbox(t, alice.ID), 1)
}

func TestOwnReplyNotifiesNobody(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	post := f.post(t, alice, "Hello")

	f.reply(t, alice, post, "bump @alice")
	assert.Empty(t, f.inbox(t, alice.ID))
}

func TestAddReplyValidation(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	post := f.post(t, alice, "Hello")

	_, err := f.forum.AddReply(context.Background(), alice, "", post.ID.Hex(), "  ")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.forum.AddReply(context.Background(), alice, "", "64b7f0c2a1b2c3d4e5f60718", "hi")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.forum.AddReply(context.Background(), alice, models.KindNote, post.ID.Hex(), "hi")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPostsAndReplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	post := f.post(t, alice, "Hello")
	_, err := f.forum.CreatePost(ctx, bob, models.KindNote, "A note", "text")
	require.NoError(t, err)
	f.reply(t, bob, post, "one")
	f.reply(t, alice, post, "two")

	forums, err := f.forum.ListPosts(ctx, models.KindForum)
	require.NoError(t, err)
	require.Len(t, forums, 1)
	assert.Equal(t, "alice", forums[0].Username)

	view, err := f.forum.GetPost(ctx, models.KindForum, post.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "alice", view.Username)

	replies, err := f.forum.ListReplies(ctx, models.KindForum, post.ID.Hex())
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, "one", replies[0].Text)
	assert.Equal(t, "bob", replies[0].Username)
	assert.Equal(t, "alice", replies[1].Username)

	mine, err := f.forum.RepliesByUser(ctx, bob, bob.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Hello", mine[0].PostTitle)

	_, err = f.forum.RepliesByUser(ctx, alice, bob.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeletePostCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	post := f.post(t, alice, "Hello")
	keep := f.post(t, alice, "Keep")
	reply := f.reply(t, bob, post, "hi @alice")
	kept := f.reply(t, bob, keep, "still here")
	for _, target := range []struct{ id, kind string }{
		{post.ID.Hex(), models.TargetPost},
		{reply.ID.Hex(), models.TargetReply},
		{kept.ID.Hex(), models.TargetReply},
	} {
		_, err := f.likes.Toggle(ctx, alice, target.id, target.kind)
		require.NoError(t, err)
	}

	deleted, err := f.forum.DeletePost(ctx, models.KindForum, post.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Hello", deleted.Title)

	_, err = f.store.Posts.GetPostByID(ctx, post.ID.Hex())
	assert.Error(t, err)
	replies, err := f.store.Replies.GetRepliesByPostID(ctx, post.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, replies)
	for _, target := range []struct{ id, kind string }{
		{post.ID.Hex(), models.TargetPost},
		{reply.ID.Hex(), models.TargetReply},
	} {
		n, err := f.store.Likes.CountByTarget(ctx, target.id, target.kind)
		require.NoError(t, err)
		assert.Zero(t, n)
	}
	for _, n := range append(f.inbox(t, alice.ID), f.inbox(t, bob.ID)...) {
		assert.NotEqual(t, post.ID.Hex(), n.PostID)
	}

	n, err := f.store.Likes.CountByTarget(ctx, kept.ID.Hex(), models.TargetReply)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = f.forum.DeletePost(ctx, models.KindForum, post.ID.Hex())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	post := f.post(t, alice, "Hello")
	reply := f.reply(t, bob, post, "hi")
	_, err := f.likes.Toggle(ctx, alice, reply.ID.Hex(), models.TargetReply)
	require.NoError(t, err)

	require.NoError(t, f.forum.DeleteReply(ctx, reply.ID.Hex()))
	n, err := f.store.Likes.CountByTarget(ctx, reply.ID.Hex(), models.TargetReply)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, f.forum.DeleteReply(ctx, reply.ID.Hex()), ErrNotFound)
}

func TestEditReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	post := f.post(t, alice, "Hello")
	reply := f.reply(t, bob, post, "hi")

	_, err := f.forum.EditReply(ctx, alice, reply.ID.Hex(), "hijack")
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := f.forum.EditReply(ctx, bob, reply.ID.Hex(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", updated.Text)

	_, err = f.forum.EditReply(ctx, bob, "64b7f0c2a1b2c3d4e5f60718", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUserCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")
	alicePost := f.post(t, alice, "Alice's")
	bobPost := f.post(t, bob, "Bob's")
	onAlice := f.reply(t, carol, alicePost, "carol on alice")
	aliceOnBob := f.reply(t, alice, bobPost, "alice on bob @carol")
	carolOnBob := f.reply(t, carol, bobPost, "carol on bob")
	_, err := f.likes.Toggle(ctx, carol, aliceOnBob.ID.Hex(), models.TargetReply)
	require.NoError(t, err)
	_, err = f.likes.Toggle(ctx, alice, carolOnBob.ID.Hex(), models.TargetReply)
	require.NoError(t, err)
	_, err = f.likes.Toggle(ctx, alice, bobPost.ID.Hex(), models.TargetPost)
	require.NoError(t, err)

	deleted, err := f.forum.DeleteUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", deleted.Username)

	_, err = f.store.Users.GetUserByID(ctx, alice.ID)
	assert.Error(t, err)
	_, err = f.store.Posts.GetPostByID(ctx, alicePost.ID.Hex())
	assert.Error(t, err)
	_, err = f.store.Replies.GetReplyByID(ctx, onAlice.ID.Hex())
	assert.Error(t, err)
	_, err = f.store.Replies.GetReplyByID(ctx, aliceOnBob.ID.Hex())
	assert.Error(t, err)

	remaining, err := f.store.Replies.GetRepliesByPostID(ctx, bobPost.ID.Hex())
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, carolOnBob.ID, remaining[0].ID)

	for _, kind := range []string{models.TargetPost, models.TargetReply} {
		likes, err := f.store.Likes.GetLikesByUser(ctx, alice.ID, kind)
		require.NoError(t, err)
		assert.Empty(t, likes)
	}
	n, err := f.store.Likes.CountByTarget(ctx, aliceOnBob.ID.Hex(), models.TargetReply)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Empty(t, f.inbox(t, alice.ID))
	for _, uid := range []uint{bob.ID, carol.ID} {
		for _, n := range f.inbox(t, uid) {
			assert.NotEqual(t, "alice", n.ActorUsername)
			assert.NotEqual(t, alicePost.ID.Hex(), n.PostID)
		}
	}
	assert.NotEmpty(t, f.inbox(t, bob.ID))

	_, err = f.forum.DeleteUser(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddReplyFanoutFailuresKeepReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")
	dave := f.user(t, "dave")
	post := f.post(t, alice, "Hello")

	notifications := failingNotifications{f.store.Notifications, alice.ID}
	users := failingLookups{f.store.Users, "dave"}
	dispatcher := NewNotificationDispatcher(notifications)
	forum := NewForumService(users, f.store.Posts, f.store.Replies, f.store.Likes, notifications, dispatcher, InlineTasks{})

	reply, err := forum.AddReply(ctx, bob, models.KindForum, post.ID.Hex(), "@dave @carol have a look")
	require.NoError(t, err)
	require.NotNil(t, reply)

	replies, err := forum.ListReplies(ctx, models.KindForum, post.ID.Hex())
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, reply.ID, replies[0].ID)

	assert.Empty(t, f.inbox(t, alice.ID))
	assert.Empty(t, f.inbox(t, dave.ID))
	carolInbox := f.inbox(t, carol.ID)
	require.Len(t, carolInbox, 1)
	assert.Equal(t, models.NotificationTag, carolInbox[0].Type)
	assert.Equal(t, "bob", carolInbox[0].ActorUsername)
}
