package services

import (
	"context"
	"log"
	"strings"

	"github.com/anonto42/nano-forum/backend/internal/models"
	"github.com/anonto42/nano-forum/backend/internal/repositories"
	"github.com/pkg/errors"
)

// ForumService owns posts and replies and keeps replies, likes and
// notifications consistent with them. Every delete cascades eagerly so
// nothing is left pointing at a removed post or reply.
type ForumService struct {
	users         repositories.UserRepository
	posts         repositories.PostRepository
	replies       repositories.ReplyRepository
	likes         repositories.LikeRepository
	notifications repositories.NotificationRepository
	dispatcher    *NotificationDispatcher
	tasks         TaskRunner
}

func NewForumService(
	users repositories.UserRepository,
	posts repositories.PostRepository,
	replies repositories.ReplyRepository,
	likes repositories.LikeRepository,
	notifications repositories.NotificationRepository,
	dispatcher *NotificationDispatcher,
	tasks TaskRunner,
) *ForumService {
	return &ForumService{
		users:         users,
		posts:         posts,
		replies:       replies,
		likes:         likes,
		notifications: notifications,
		dispatcher:    dispatcher,
		tasks:         tasks,
	}
}

// UpdatePostInput carries a full replacement of a post's editable fields.
// An empty Kind matches posts of any kind.
type UpdatePostInput struct {
	Kind      string
	ID        string
	OwnerID   uint
	Title     string
	Text      string
	Completed bool
}

// loadPost finds a post by id, treating a kind mismatch as a miss.
func (s *ForumService) loadPost(ctx context.Context, kind, id string) (*models.Post, error) {
	post, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return nil, notFound(err, kindName(kind))
	}
	if kind != "" && post.Kind != kind {
		return nil, errors.Wrap(ErrNotFound, kindName(kind)+" not found")
	}
	return post, nil
}

func kindName(kind string) string {
	if kind == "" {
		return "post"
	}
	return kind
}

// ListPosts returns every post of the kind with its owner's username.
func (s *ForumService) ListPosts(ctx context.Context, kind string) ([]models.PostView, error) {
	posts, err := s.posts.GetAllPosts(ctx, kind)
	if err != nil {
		return nil, errors.Wrap(err, "load posts")
	}
	owners := make([]uint, len(posts))
	for i, p := range posts {
		owners[i] = p.OwnerID
	}
	names, err := usernames(ctx, s.users, owners)
	if err != nil {
		return nil, err
	}
	views := make([]models.PostView, len(posts))
	for i, p := range posts {
		views[i] = models.PostView{Post: p, Username: names[p.OwnerID]}
	}
	return views, nil
}

func (s *ForumService) GetPost(ctx context.Context, kind, id string) (*models.PostView, error) {
	post, err := s.loadPost(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	view := &models.PostView{Post: *post}
	if owner, err := s.users.GetUserByID(ctx, post.OwnerID); err == nil {
		view.Username = owner.Username
	}
	return view, nil
}

// CreatePost stores a new post owned by actor. Titles are unique across all
// posts regardless of case.
func (s *ForumService) CreatePost(ctx context.Context, actor models.Identity, kind, title, text string) (*models.Post, error) {
	if kind != models.KindForum && kind != models.KindNote {
		return nil, errors.Wrapf(ErrValidation, "unknown post kind %q", kind)
	}
	if strings.TrimSpace(title) == "" || strings.TrimSpace(text) == "" {
		return nil, errors.Wrap(ErrValidation, "all fields are required")
	}
	if err := s.checkTitle(ctx, title, ""); err != nil {
		return nil, err
	}

	post := &models.Post{Kind: kind, OwnerID: actor.ID, Title: title, Text: text}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, errors.Wrapf(ErrConflict, "duplicate %s title", kind)
		}
		return nil, errors.Wrap(err, "create post")
	}
	return post, nil
}

// checkTitle fails with ErrConflict when a post other than selfID already
// uses title.
func (s *ForumService) checkTitle(ctx context.Context, title, selfID string) error {
	dup, err := s.posts.FindByTitle(ctx, title)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return nil
	case err != nil:
		return errors.Wrap(err, "check title")
	case dup.ID.Hex() != selfID:
		return errors.Wrapf(ErrConflict, "duplicate %s title", kindName(dup.Kind))
	}
	return nil
}

// UpdatePost replaces the post's fields and records actor as the editor.
func (s *ForumService) UpdatePost(ctx context.Context, actor models.Identity, in UpdatePostInput) (*models.Post, error) {
	if in.OwnerID == 0 || strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Text) == "" {
		return nil, errors.Wrap(ErrValidation, "all fields are required")
	}
	post, err := s.loadPost(ctx, in.Kind, in.ID)
	if err != nil {
		return nil, err
	}
	if err := s.checkTitle(ctx, in.Title, post.ID.Hex()); err != nil {
		return nil, err
	}

	editor := actor.Username
	post.OwnerID = in.OwnerID
	post.Title = in.Title
	post.Text = in.Text
	post.Completed = in.Completed
	post.EditedBy = &editor
	if err := s.posts.UpdatePost(ctx, post); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, errors.Wrapf(ErrConflict, "duplicate %s title", kindName(post.Kind))
		}
		return nil, notFound(err, kindName(post.Kind))
	}
	return post, nil
}

// DeletePost removes a post together with its replies, the likes on both
// and every notification about the post.
func (s *ForumService) DeletePost(ctx context.Context, kind, id string) (*models.Post, error) {
	post, err := s.loadPost(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := s.cascadePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *ForumService) cascadePost(ctx context.Context, post *models.Post) error {
	postIDs := []string{post.ID.Hex()}
	replyIDs, err := s.replies.ReplyIDsByPostIDs(ctx, postIDs)
	if err != nil {
		return errors.Wrap(err, "collect replies")
	}
	if _, err := s.replies.DeleteByPostIDs(ctx, postIDs); err != nil {
		return errors.Wrap(err, "delete replies")
	}
	if _, err := s.notifications.DeleteByPostIDs(ctx, postIDs); err != nil {
		return errors.Wrap(err, "delete notifications")
	}
	if _, err := s.likes.DeleteByTargets(ctx, models.TargetPost, postIDs); err != nil {
		return errors.Wrap(err, "delete post likes")
	}
	if _, err := s.likes.DeleteByTargets(ctx, models.TargetReply, replyIDs); err != nil {
		return errors.Wrap(err, "delete reply likes")
	}
	if err := s.posts.DeletePost(ctx, postIDs[0]); err != nil {
		return notFound(err, kindName(post.Kind))
	}
	return nil
}

// ListReplies returns the replies of a post, oldest first, with their
// authors' current usernames.
func (s *ForumService) ListReplies(ctx context.Context, kind, postID string) ([]models.ReplyView, error) {
	if _, err := s.loadPost(ctx, kind, postID); err != nil {
		return nil, err
	}
	replies, err := s.replies.GetRepliesByPostID(ctx, postID)
	if err != nil {
		return nil, errors.Wrap(err, "load replies")
	}
	authors := make([]uint, len(replies))
	for i, r := range replies {
		authors[i] = r.AuthorID
	}
	names, err := usernames(ctx, s.users, authors)
	if err != nil {
		return nil, err
	}
	views := make([]models.ReplyView, len(replies))
	for i, r := range replies {
		views[i] = models.ReplyView{Reply: r, Username: names[r.AuthorID]}
	}
	return views, nil
}

// RepliesByUser lists everything userID replied, with post titles. Users may
// only list their own replies.
func (s *ForumService) RepliesByUser(ctx context.Context, actor models.Identity, userID uint) ([]models.ReplyView, error) {
	if actor.ID != userID {
		return nil, errors.Wrap(ErrForbidden, "forbidden")
	}
	replies, err := s.replies.GetRepliesByAuthor(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load replies")
	}
	for i := range replies {
		replies[i].Username = actor.Username
	}
	return replies, nil
}

// AddReply stores a reply and returns it right away. Reply and mention
// notifications are sent afterwards by the task runner; their failures
// never affect the stored reply.
func (s *ForumService) AddReply(ctx context.Context, actor models.Identity, kind, postID, text string) (*models.Reply, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.Wrap(ErrValidation, "reply is required")
	}
	post, err := s.loadPost(ctx, kind, postID)
	if err != nil {
		return nil, err
	}

	reply := &models.Reply{PostID: post.ID, AuthorID: actor.ID, Text: text}
	if err := s.replies.CreateReply(ctx, reply); err != nil {
		return nil, errors.Wrap(err, "create reply")
	}

	saved := *reply
	s.tasks.Go("reply-notifications", func(ctx context.Context) error {
		s.notifyReply(ctx, actor, post, &saved)
		return nil
	})
	return reply, nil
}

func (s *ForumService) notifyReply(ctx context.Context, actor models.Identity, post *models.Post, reply *models.Reply) {
	tags := ExtractMentions(reply.Text)

	ownerUsername := ""
	if owner, err := s.users.GetUserByID(ctx, post.OwnerID); err == nil {
		ownerUsername = owner.Username
	} else {
		log.Printf("reply %s: resolve post owner %d: %v", reply.ID.Hex(), post.OwnerID, err)
	}
	ownerTagged := false
	for _, tag := range tags {
		if ownerUsername != "" && tag == ownerUsername {
			ownerTagged = true
		}
	}

	postID, replyID := post.ID.Hex(), reply.ID.Hex()
	if post.OwnerID != actor.ID && !ownerTagged {
		notice := models.ReplyNotice{PostID: postID, PostTitle: post.Title, ReplyID: replyID, ReplyText: reply.Text}
		if _, err := s.dispatcher.dispatch(ctx, post.OwnerID, actor.Username, notice); err != nil {
			log.Printf("reply %s: notify owner: %v", replyID, err)
		}
	}

	for _, tag := range tags {
		if tag == actor.Username {
			continue
		}
		tagged, err := s.users.GetUserByUsername(ctx, tag)
		if err != nil {
			if !errors.Is(err, repositories.ErrNotFound) {
				log.Printf("reply %s: resolve @%s: %v", replyID, tag, err)
			}
			continue
		}
		if tagged.ID == actor.ID {
			continue
		}
		notice := models.TagNotice{PostID: postID, PostTitle: post.Title, ReplyID: replyID, ReplyText: reply.Text}
		if _, err := s.dispatcher.dispatch(ctx, tagged.ID, actor.Username, notice); err != nil {
			log.Printf("reply %s: notify @%s: %v", replyID, tag, err)
		}
	}
}

// DeleteReply removes a reply and the likes on it.
func (s *ForumService) DeleteReply(ctx context.Context, id string) error {
	if _, err := s.replies.GetReplyByID(ctx, id); err != nil {
		return notFound(err, "reply")
	}
	if _, err := s.likes.DeleteByTargets(ctx, models.TargetReply, []string{id}); err != nil {
		return errors.Wrap(err, "delete reply likes")
	}
	if err := s.replies.DeleteReply(ctx, id); err != nil {
		return notFound(err, "reply")
	}
	return nil
}

// EditReply replaces the text of a reply. Only its author may edit it.
func (s *ForumService) EditReply(ctx context.Context, actor models.Identity, id, text string) (*models.Reply, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.Wrap(ErrValidation, "reply ID and new text are required")
	}
	reply, err := s.replies.GetReplyByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "reply")
	}
	if reply.AuthorID != actor.ID {
		return nil, errors.Wrap(ErrForbidden, "not authorized to edit this reply")
	}
	updated, err := s.replies.UpdateReplyText(ctx, id, text)
	if err != nil {
		return nil, notFound(err, "reply")
	}
	return updated, nil
}

// DeleteUser removes a user and everything that hangs off them: their posts
// with the full post cascade, their replies elsewhere and the likes on them,
// the likes they placed, and notifications sent to them or caused by them.
func (s *ForumService) DeleteUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}

	posts, err := s.posts.GetPostsByOwner(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "load user posts")
	}
	for i := range posts {
		if err := s.cascadePost(ctx, &posts[i]); err != nil {
			return nil, err
		}
	}

	replyIDs, err := s.replies.ReplyIDsByAuthor(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "collect user replies")
	}
	if _, err := s.likes.DeleteByTargets(ctx, models.TargetReply, replyIDs); err != nil {
		return nil, errors.Wrap(err, "delete reply likes")
	}
	if _, err := s.replies.DeleteByAuthor(ctx, id); err != nil {
		return nil, errors.Wrap(err, "delete user replies")
	}
	if _, err := s.likes.DeleteByUser(ctx, id); err != nil {
		return nil, errors.Wrap(err, "delete user likes")
	}
	if _, err := s.notifications.DeleteByRecipient(ctx, id); err != nil {
		return nil, errors.Wrap(err, "delete user notifications")
	}
	if _, err := s.notifications.DeleteByActor(ctx, user.Username); err != nil {
		return nil, errors.Wrap(err, "delete actor notifications")
	}
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}
