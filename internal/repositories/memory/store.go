// Package memory holds in-process implementations of the repository
// interfaces. The server falls back to it for posts and replies when no
// MongoDB URI is configured, and the service and handler tests run on it.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/nano-forum/backend/internal/models"
	"github.com/anonto42/nano-forum/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is a set of repositories sharing one lock and one dataset.
type Store struct {
	mu            sync.Mutex
	users         []models.User
	posts         []models.Post
	replies       []models.Reply
	likes         []models.Like
	notifications []models.Notification
	nextUser      uint
	nextLike      uint
	nextNotif     uint

	Users         *Users
	Posts         *Posts
	Replies       *Replies
	Likes         *Likes
	Notifications *Notifications
}

func NewStore() *Store {
	s := &Store{}
	s.Users = &Users{s: s}
	s.Posts = &Posts{s: s}
	s.Replies = &Replies{s: s}
	s.Likes = &Likes{s: s}
	s.Notifications = &Notifications{s: s}
	return s
}

var (
	_ repositories.UserRepository         = (*Users)(nil)
	_ repositories.PostRepository         = (*Posts)(nil)
	_ repositories.ReplyRepository        = (*Replies)(nil)
	_ repositories.LikeRepository         = (*Likes)(nil)
	_ repositories.NotificationRepository = (*Notifications)(nil)
)

// newestFirst walks a slice backwards so that later inserts come first.
func newestFirst[T any](items []T, keep func(*T) bool) []T {
	out := []T{}
	for i := len(items) - 1; i >= 0; i-- {
		if keep(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}

// removeWhere deletes matching items in place and returns how many went.
func removeWhere[T any](items *[]T, match func(*T) bool) int64 {
	before := len(*items)
	*items = slices.DeleteFunc(*items, func(t T) bool { return match(&t) })
	return int64(before - len(*items))
}

// Users

type Users struct{ s *Store }

func cloneUser(u models.User) *models.User {
	u.Roles = slices.Clone(u.Roles)
	return &u
}

func (r *Users) CreateUser(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repositories.ErrDuplicate
		}
	}
	r.s.nextUser++
	now := time.Now()
	user.ID = r.s.nextUser
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users = append(r.s.users, *cloneUser(*user))
	return nil
}

func (r *Users) find(match func(*models.User) bool) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.users {
		if match(&r.s.users[i]) {
			return cloneUser(r.s.users[i]), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *Users) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *Users) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username })
}

func (r *Users) FindUsernameFold(_ context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return strings.EqualFold(u.Username, username) })
}

func (r *Users) FindEmailFold(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *Users) FindByLogin(_ context.Context, login string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == login || u.Email == login })
}

func (r *Users) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *Users) GetUserByResetToken(_ context.Context, token string, now time.Time) (*models.User, error) {
	return r.find(func(u *models.User) bool {
		return u.ResetToken != nil && *u.ResetToken == token &&
			u.ResetTokenExpiry != nil && u.ResetTokenExpiry.After(now)
	})
}

func (r *Users) GetUsers(_ context.Context) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.User, len(r.s.users))
	for i, u := range r.s.users {
		out[i] = *cloneUser(u)
	}
	return out, nil
}

func (r *Users) GetUsersByIDs(_ context.Context, ids []uint) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.User{}
	for _, u := range r.s.users {
		if slices.Contains(ids, u.ID) {
			out = append(out, *cloneUser(u))
		}
	}
	return out, nil
}

func (r *Users) UpdateUser(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.ID != user.ID && (u.Username == user.Username || u.Email == user.Email) {
			return repositories.ErrDuplicate
		}
	}
	for i := range r.s.users {
		if r.s.users[i].ID == user.ID {
			user.UpdatedAt = time.Now()
			r.s.users[i] = *cloneUser(*user)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (r *Users) DeleteUser(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if removeWhere(&r.s.users, func(u *models.User) bool { return u.ID == id }) == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// Posts

type Posts struct{ s *Store }

func clonePost(p models.Post) models.Post {
	if p.EditedBy != nil {
		by := *p.EditedBy
		p.EditedBy = &by
	}
	return p
}

func (r *Posts) CreatePost(_ context.Context, post *models.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.posts {
		if strings.EqualFold(p.Title, post.Title) {
			return repositories.ErrDuplicate
		}
	}
	now := time.Now()
	post.ID = primitive.NewObjectID()
	post.CreatedAt, post.UpdatedAt = now, now
	r.s.posts = append(r.s.posts, clonePost(*post))
	return nil
}

func (r *Posts) findLocked(match func(*models.Post) bool) (*models.Post, error) {
	for i := range r.s.posts {
		if match(&r.s.posts[i]) {
			p := clonePost(r.s.posts[i])
			return &p, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *Posts) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.findLocked(func(p *models.Post) bool { return p.ID.Hex() == id })
}

func (r *Posts) FindByTitle(_ context.Context, title string) (*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.findLocked(func(p *models.Post) bool { return strings.EqualFold(p.Title, title) })
}

func (r *Posts) list(match func(*models.Post) bool) []models.Post {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := newestFirst(r.s.posts, match)
	for i := range out {
		out[i] = clonePost(out[i])
	}
	return out
}

func (r *Posts) GetAllPosts(_ context.Context, kind string) ([]models.Post, error) {
	return r.list(func(p *models.Post) bool { return kind == "" || p.Kind == kind }), nil
}

func (r *Posts) GetPostsByOwner(_ context.Context, ownerID uint) ([]models.Post, error) {
	return r.list(func(p *models.Post) bool { return p.OwnerID == ownerID }), nil
}

func (r *Posts) GetPostsByIDs(_ context.Context, ids []string) ([]models.Post, error) {
	return r.list(func(p *models.Post) bool { return slices.Contains(ids, p.ID.Hex()) }), nil
}

func (r *Posts) UpdatePost(_ context.Context, post *models.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.posts {
		if p.ID != post.ID && strings.EqualFold(p.Title, post.Title) {
			return repositories.ErrDuplicate
		}
	}
	for i := range r.s.posts {
		if r.s.posts[i].ID == post.ID {
			post.UpdatedAt = time.Now()
			r.s.posts[i] = clonePost(*post)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (r *Posts) DeletePost(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if removeWhere(&r.s.posts, func(p *models.Post) bool { return p.ID.Hex() == id }) == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// Replies

type Replies struct{ s *Store }

func (r *Replies) CreateReply(_ context.Context, reply *models.Reply) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	reply.ID = primitive.NewObjectID()
	reply.CreatedAt, reply.UpdatedAt = now, now
	r.s.replies = append(r.s.replies, *reply)
	return nil
}

func (r *Replies) GetReplyByID(_ context.Context, id string) (*models.Reply, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, reply := range r.s.replies {
		if reply.ID.Hex() == id {
			return &reply, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *Replies) GetRepliesByPostID(_ context.Context, postID string) ([]models.Reply, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Reply{}
	for _, reply := range r.s.replies {
		if reply.PostID.Hex() == postID {
			out = append(out, reply)
		}
	}
	return out, nil
}

// views resolves post titles the way the Mongo $lookup does.
func (r *Replies) views(match func(*models.Reply) bool) []models.ReplyView {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.ReplyView{}
	for _, reply := range newestFirst(r.s.replies, match) {
		view := models.ReplyView{Reply: reply}
		for _, p := range r.s.posts {
			if p.ID == reply.PostID {
				view.PostTitle = p.Title
				break
			}
		}
		out = append(out, view)
	}
	return out
}

func (r *Replies) GetRepliesByIDs(_ context.Context, ids []string) ([]models.ReplyView, error) {
	return r.views(func(reply *models.Reply) bool { return slices.Contains(ids, reply.ID.Hex()) }), nil
}

func (r *Replies) GetRepliesByAuthor(_ context.Context, authorID uint) ([]models.ReplyView, error) {
	return r.views(func(reply *models.Reply) bool { return reply.AuthorID == authorID }), nil
}

func (r *Replies) collectIDs(match func(*models.Reply) bool) []string {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := []string{}
	for i := range r.s.replies {
		if match(&r.s.replies[i]) {
			ids = append(ids, r.s.replies[i].ID.Hex())
		}
	}
	return ids
}

func (r *Replies) ReplyIDsByPostIDs(_ context.Context, postIDs []string) ([]string, error) {
	return r.collectIDs(func(reply *models.Reply) bool { return slices.Contains(postIDs, reply.PostID.Hex()) }), nil
}

func (r *Replies) ReplyIDsByAuthor(_ context.Context, authorID uint) ([]string, error) {
	return r.collectIDs(func(reply *models.Reply) bool { return reply.AuthorID == authorID }), nil
}

func (r *Replies) UpdateReplyText(_ context.Context, id string, text string) (*models.Reply, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.replies {
		if r.s.replies[i].ID.Hex() == id {
			r.s.replies[i].Text = text
			r.s.replies[i].UpdatedAt = time.Now()
			reply := r.s.replies[i]
			return &reply, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *Replies) DeleteReply(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if removeWhere(&r.s.replies, func(reply *models.Reply) bool { return reply.ID.Hex() == id }) == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *Replies) DeleteByPostIDs(_ context.Context, postIDs []string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return removeWhere(&r.s.replies, func(reply *models.Reply) bool {
		return slices.Contains(postIDs, reply.PostID.Hex())
	}), nil
}

func (r *Replies) DeleteByAuthor(_ context.Context, authorID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return removeWhere(&r.s.replies, func(reply *models.Reply) bool { return reply.AuthorID == authorID }), nil
}

// Likes

type Likes struct{ s *Store }

func (r *Likes) CreateLike(_ context.Context, like *models.Like) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.likes {
		if l.UserID == like.UserID && l.TargetID == like.TargetID && l.TargetType == like.TargetType {
			return repositories.ErrDuplicate
		}
	}
	r.s.nextLike++
	like.ID = r.s.nextLike
	like.CreatedAt = time.Now()
	r.s.likes = append(r.s.likes, *like)
	return nil
}

func (r *Likes) GetLike(_ context.Context, userID uint, targetID, targetType string) (*models.Like, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.likes {
		if l.UserID == userID && l.TargetID == targetID && l.TargetType == targetType {
			return &l, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *Likes) DeleteLike(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if removeWhere(&r.s.likes, func(l *models.Like) bool { return l.ID == id }) == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *Likes) CountByTarget(_ context.Context, targetID, targetType string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, l := range r.s.likes {
		if l.TargetID == targetID && l.TargetType == targetType {
			n++
		}
	}
	return n, nil
}

func (r *Likes) GetLikesByUser(_ context.Context, userID uint, targetType string) ([]models.Like, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return newestFirst(r.s.likes, func(l *models.Like) bool {
		return l.UserID == userID && l.TargetType == targetType
	}), nil
}

func (r *Likes) DeleteByTargets(_ context.Context, targetType string, targetIDs []string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return removeWhere(&r.s.likes, func(l *models.Like) bool {
		return l.TargetType == targetType && slices.Contains(targetIDs, l.TargetID)
	}), nil
}

func (r *Likes) DeleteByUser(_ context.Context, userID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return removeWhere(&r.s.likes, func(l *models.Like) bool { return l.UserID == userID }), nil
}

// Notifications

type Notifications struct{ s *Store }

func (r *Notifications) CreateNotification(_ context.Context, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextNotif++
	n.ID = r.s.nextNotif
	n.CreatedAt = time.Now()
	r.s.notifications = append(r.s.notifications, *n)
	return nil
}

func (r *Notifications) GetNotificationByID(_ context.Context, id uint) (*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.notifications {
		if n.ID == id {
			return &n, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *Notifications) GetByRecipientID(_ context.Context, recipientID uint) ([]models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return newestFirst(r.s.notifications, func(n *models.Notification) bool {
		return n.RecipientID == recipientID
	}), nil
}

func (r *Notifications) GetUnreadCount(_ context.Context, recipientID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, n := range r.s.notifications {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *Notifications) SetRead(_ context.Context, id uint, read bool) (*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.notifications {
		if r.s.notifications[i].ID == id {
			r.s.notifications[i].Read = read
			n := r.s.notifications[i]
			return &n, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *Notifications) MarkAllAsRead(_ context.Context, recipientID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var modified int64
	for i := range r.s.notifications {
		if r.s.notifications[i].RecipientID == recipientID && !r.s.notifications[i].Read {
			r.s.notifications[i].Read = true
			modified++
		}
	}
	return modified, nil
}

func (r *Notifications) DeleteNotification(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if removeWhere(&r.s.notifications, func(n *models.Notification) bool { return n.ID == id }) == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *Notifications) DeleteByPostIDs(_ context.Context, postIDs []string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return removeWhere(&r.s.notifications, func(n *models.Notification) bool {
		return slices.Contains(postIDs, n.PostID)
	}), nil
}

func (r *Notifications) DeleteByRecipient(_ context.Context, recipientID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return removeWhere(&r.s.notifications, func(n *models.Notification) bool {
		return n.RecipientID == recipientID
	}), nil
}

func (r *Notifications) DeleteByActor(_ context.Context, username string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return removeWhere(&r.s.notifications, func(n *models.Notification) bool {
		return n.ActorUsername == username
	}), nil
}
