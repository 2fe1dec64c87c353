package services

import (
	"context"
	"log"

	"github.com/anonto42/nano-forum/backend/internal/models"
	"github.com/anonto42/nano-forum/backend/internal/repositories"
	"github.com/pkg/errors"
)

// LikeLedger records likes on posts and replies and keeps the per-target
// counts consistent with the like rows.
type LikeLedger struct {
	likes      repositories.LikeRepository
	posts      repositories.PostRepository
	replies    repositories.ReplyRepository
	users      repositories.UserRepository
	dispatcher *NotificationDispatcher
}

func NewLikeLedger(likes repositories.LikeRepository, posts repositories.PostRepository, replies repositories.ReplyRepository, users repositories.UserRepository, dispatcher *NotificationDispatcher) *LikeLedger {
	return &LikeLedger{likes: likes, posts: posts, replies: replies, users: users, dispatcher: dispatcher}
}

func validTarget(targetType string) error {
	if targetType != models.TargetPost && targetType != models.TargetReply {
		return errors.Wrap(ErrValidation, "targetId and valid targetType are required")
	}
	return nil
}

// Toggle likes the target if actor has not liked it yet and unlikes it
// otherwise. A fresh like on someone else's content notifies the owner.
func (l *LikeLedger) Toggle(ctx context.Context, actor models.Identity, targetID, targetType string) (*models.LikeResult, error) {
	if err := validTarget(targetType); err != nil {
		return nil, err
	}
	notice, ownerID, err := l.resolveTarget(ctx, targetID, targetType)
	if err != nil {
		return nil, err
	}

	result := &models.LikeResult{}
	existing, err := l.likes.GetLike(ctx, actor.ID, targetID, targetType)
	switch {
	case err == nil:
		if err := l.likes.DeleteLike(ctx, existing.ID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, errors.Wrap(err, "delete like")
		}
	case errors.Is(err, repositories.ErrNotFound):
		result.Liked = true
		like := &models.Like{UserID: actor.ID, TargetID: targetID, TargetType: targetType}
		err := l.likes.CreateLike(ctx, like)
		switch {
		case errors.Is(err, repositories.ErrDuplicate):
			// a concurrent toggle won the insert and already notified
		case err != nil:
			return nil, errors.Wrap(err, "create like")
		case ownerID != actor.ID:
			if _, err := l.dispatcher.dispatch(ctx, ownerID, actor.Username, notice); err != nil {
				log.Printf("like %s: notify owner %d: %v", targetID, ownerID, err)
			}
		}
	default:
		return nil, errors.Wrap(err, "load like")
	}

	result.Count, err = l.likes.CountByTarget(ctx, targetID, targetType)
	if err != nil {
		return nil, errors.Wrap(err, "count likes")
	}
	return result, nil
}

// resolveTarget loads the liked post or reply and prepares the notice its
// owner would receive.
func (l *LikeLedger) resolveTarget(ctx context.Context, targetID, targetType string) (models.NotificationPayload, uint, error) {
	if targetType == models.TargetPost {
		post, err := l.posts.GetPostByID(ctx, targetID)
		if err != nil {
			return nil, 0, notFound(err, "post")
		}
		return models.PostLikeNotice{PostID: targetID, PostTitle: post.Title}, post.OwnerID, nil
	}

	reply, err := l.replies.GetReplyByID(ctx, targetID)
	if err != nil {
		return nil, 0, notFound(err, "reply")
	}
	notice := models.ReplyLikeNotice{
		PostID:    reply.PostID.Hex(),
		ReplyID:   targetID,
		ReplyText: reply.Text,
	}
	if post, err := l.posts.GetPostByID(ctx, notice.PostID); err == nil {
		notice.PostTitle = post.Title
	}
	return notice, reply.AuthorID, nil
}

func (l *LikeLedger) Count(ctx context.Context, targetID, targetType string) (int64, error) {
	if err := validTarget(targetType); err != nil {
		return 0, err
	}
	return l.likes.CountByTarget(ctx, targetID, targetType)
}

// Status reports whether the user currently likes the target.
func (l *LikeLedger) Status(ctx context.Context, userID uint, targetID, targetType string) (bool, error) {
	if err := validTarget(targetType); err != nil {
		return false, err
	}
	_, err := l.likes.GetLike(ctx, userID, targetID, targetType)
	if errors.Is(err, repositories.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "load like")
	}
	return true, nil
}

// LikedPosts lists the posts userID liked, most recently liked first.
func (l *LikeLedger) LikedPosts(ctx context.Context, actor models.Identity, userID uint) ([]models.LikedPost, error) {
	if actor.ID != userID {
		return nil, errors.Wrap(ErrForbidden, "forbidden")
	}
	likes, err := l.likes.GetLikesByUser(ctx, userID, models.TargetPost)
	if err != nil {
		return nil, errors.Wrap(err, "load likes")
	}
	posts, err := l.posts.GetPostsByIDs(ctx, targetIDs(likes))
	if err != nil {
		return nil, errors.Wrap(err, "load liked posts")
	}
	byID := make(map[string]models.Post, len(posts))
	owners := make([]uint, 0, len(posts))
	for _, p := range posts {
		byID[p.ID.Hex()] = p
		owners = append(owners, p.OwnerID)
	}
	names, err := usernames(ctx, l.users, owners)
	if err != nil {
		return nil, err
	}

	liked := []models.LikedPost{}
	for _, like := range likes {
		p, ok := byID[like.TargetID]
		if !ok {
			continue
		}
		liked = append(liked, models.LikedPost{
			PostView: models.PostView{Post: p, Username: names[p.OwnerID]},
			LikedAt:  like.CreatedAt,
		})
	}
	return liked, nil
}

// LikedReplies lists the replies userID liked with their post titles, most
// recently liked first.
func (l *LikeLedger) LikedReplies(ctx context.Context, actor models.Identity, userID uint) ([]models.LikedReply, error) {
	if actor.ID != userID {
		return nil, errors.Wrap(ErrForbidden, "forbidden")
	}
	likes, err := l.likes.GetLikesByUser(ctx, userID, models.TargetReply)
	if err != nil {
		return nil, errors.Wrap(err, "load likes")
	}
	replies, err := l.replies.GetRepliesByIDs(ctx, targetIDs(likes))
	if err != nil {
		return nil, errors.Wrap(err, "load liked replies")
	}
	byID := make(map[string]models.ReplyView, len(replies))
	authors := make([]uint, 0, len(replies))
	for _, r := range replies {
		byID[r.ID.Hex()] = r
		authors = append(authors, r.AuthorID)
	}
	names, err := usernames(ctx, l.users, authors)
	if err != nil {
		return nil, err
	}

	liked := []models.LikedReply{}
	for _, like := range likes {
		r, ok := byID[like.TargetID]
		if !ok {
			continue
		}
		r.Username = names[r.AuthorID]
		liked = append(liked, models.LikedReply{ReplyView: r, LikedAt: like.CreatedAt})
	}
	return liked, nil
}

func targetIDs(likes []models.Like) []string {
	ids := make([]string, len(likes))
	for i, like := range likes {
		ids[i] = like.TargetID
	}
	return ids
}

// usernames resolves user ids to usernames in one query. Unknown ids are
// simply absent from the map.
func usernames(ctx context.Context, users repositories.UserRepository, ids []uint) (map[uint]string, error) {
	names := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	found, err := users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "load usernames")
	}
	for _, u := range found {
		names[u.ID] = u.Username
	}
	return names, nil
}
