package services

import (
	"context"
	"slices"

	"github.com/anonto42/nano-forum/backend/internal/models"
	"github.com/anonto42/nano-forum/backend/internal/repositories"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// UserService manages accounts. Deleting a user goes through the forum
// cascade so no content is orphaned.
type UserService struct {
	users repositories.UserRepository
	forum *ForumService
}

func NewUserService(users repositories.UserRepository, forum *ForumService) *UserService {
	return &UserService{users: users, forum: forum}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hash), nil
}

// Register creates an active account. Usernames and emails are unique
// regardless of case; roles default to Member.
func (s *UserService) Register(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	if err := s.checkUsername(ctx, req.Username, 0); err != nil {
		return nil, err
	}
	if _, err := s.users.FindEmailFold(ctx, req.Email); err == nil {
		return nil, errors.Wrap(ErrConflict, "duplicate email")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, errors.Wrap(err, "check email")
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	roles := req.Roles
	if len(roles) == 0 {
		roles = []string{models.RoleMember}
	}
	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hash,
		Roles:    roles,
		Active:   true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, errors.Wrap(ErrConflict, "duplicate username or email")
		}
		return nil, errors.Wrap(err, "create user")
	}
	return user, nil
}

// checkUsername fails with ErrConflict when a user other than selfID holds
// the username in any casing.
func (s *UserService) checkUsername(ctx context.Context, username string, selfID uint) error {
	dup, err := s.users.FindUsernameFold(ctx, username)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return nil
	case err != nil:
		return errors.Wrap(err, "check username")
	case dup.ID != selfID:
		return errors.Wrap(ErrConflict, "duplicate username")
	}
	return nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.users.GetUsers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load users")
	}
	return users, nil
}

func canManage(actor models.Identity, id uint) bool {
	return actor.ID == id || actor.HasRole(models.RoleAdmin)
}

// Update changes username, roles, active flag and optionally the password.
// Users edit themselves; admins edit anyone. Only admins change roles.
func (s *UserService) Update(ctx context.Context, actor models.Identity, id uint, req models.UpdateUserRequest) (*models.User, error) {
	if !canManage(actor, id) {
		return nil, errors.Wrap(ErrForbidden, "forbidden")
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	if !actor.HasRole(models.RoleAdmin) && !sameRoles(user.Roles, req.Roles) {
		return nil, errors.Wrap(ErrForbidden, "only admins can change roles")
	}
	if err := s.checkUsername(ctx, req.Username, id); err != nil {
		return nil, err
	}

	user.Username = req.Username
	user.Roles = req.Roles
	user.Active = *req.Active
	if req.Password != "" {
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) == nil {
			return nil, errors.Wrap(ErrValidation, "new password must be different from the current password")
		}
		if user.Password, err = hashPassword(req.Password); err != nil {
			return nil, err
		}
	}
	if err := s.users.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, errors.Wrap(ErrConflict, "duplicate username")
		}
		return nil, notFound(err, "user")
	}
	return user, nil
}

func sameRoles(a, b []string) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

// Delete removes a user and all related data. Users delete themselves;
// admins delete anyone.
func (s *UserService) Delete(ctx context.Context, actor models.Identity, id uint) (*models.User, error) {
	if !canManage(actor, id) {
		return nil, errors.Wrap(ErrForbidden, "forbidden")
	}
	return s.forum.DeleteUser(ctx, id)
}
