package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/nano-forum/backend/internal/models"
	"github.com/anonto42/nano-forum/backend/internal/repositories"
	"github.com/anonto42/nano-forum/backend/pkg/mailer"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const resetTokenTTL = time.Hour

// TokenVerifier checks Firebase ID tokens; *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// Session is the token pair handed out on login.
type Session struct {
	AccessToken  string
	RefreshToken string
}

type AuthService struct {
	users       repositories.UserRepository
	tokens      *TokenIssuer
	mailer      mailer.Mailer
	verifier    TokenVerifier
	frontendURL string
	now         func() time.Time
}

// NewAuthService builds the service. verifier may be nil, in which case
// Firebase login is rejected.
func NewAuthService(users repositories.UserRepository, tokens *TokenIssuer, sender mailer.Mailer, verifier TokenVerifier, frontendURL string) *AuthService {
	return &AuthService{
		users:       users,
		tokens:      tokens,
		mailer:      sender,
		verifier:    verifier,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
	}
}

// Login accepts a username or an email. Unknown, inactive and wrong
// password all look the same to the caller.
func (s *AuthService) Login(ctx context.Context, login, password string) (*Session, error) {
	if login == "" || password == "" {
		return nil, errors.Wrap(ErrValidation, "all fields are required")
	}
	user, err := s.users.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, errors.Wrap(ErrUnauthorized, "unauthorized")
		}
		return nil, errors.Wrap(err, "load user")
	}
	if !user.Active {
		return nil, errors.Wrap(ErrUnauthorized, "unauthorized")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, errors.Wrap(ErrUnauthorized, "unauthorized")
	}
	return s.session(user)
}

func (s *AuthService) session(user *models.User) (*Session, error) {
	access, err := s.tokens.AccessToken(user)
	if err != nil {
		return nil, errors.Wrap(err, "sign access token")
	}
	refresh, err := s.tokens.RefreshToken(user)
	if err != nil {
		return nil, errors.Wrap(err, "sign refresh token")
	}
	return &Session{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", errors.Wrap(ErrUnauthorized, "unauthorized")
	}
	username, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return "", err
	}
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", errors.Wrap(ErrUnauthorized, "unauthorized")
		}
		return "", errors.Wrap(err, "load user")
	}
	access, err := s.tokens.AccessToken(user)
	if err != nil {
		return "", errors.Wrap(err, "sign access token")
	}
	return access, nil
}

// ForgotPassword mails a one-hour reset link. Unknown emails succeed
// silently so callers cannot probe for accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return errors.Wrap(ErrValidation, "email is required")
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "load user")
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	expiry := s.now().Add(resetTokenTTL)
	user.ResetToken = &token
	user.ResetTokenExpiry = &expiry
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return errors.Wrap(err, "store reset token")
	}

	link := fmt.Sprintf("%s/reset-password/%s", s.frontendURL, token)
	body := fmt.Sprintf("You requested a password reset. Click the link to reset your password: %s\n"+
		"If you did not request this, please ignore this email.", link)
	if err := s.mailer.Send(ctx, user.Email, "Password Reset Request", body); err != nil {
		return errors.Wrap(err, "error sending email")
	}
	return nil
}

// ResetPassword sets a new password for the holder of a live reset token
// and burns the token.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" || password == "" {
		return errors.Wrap(ErrValidation, "token and new password are required")
	}
	user, err := s.users.GetUserByResetToken(ctx, token, s.now())
	if errors.Is(err, repositories.ErrNotFound) {
		return errors.Wrap(ErrValidation, "invalid or expired token")
	}
	if err != nil {
		return errors.Wrap(err, "load user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil {
		return errors.Wrap(ErrValidation, "new password must be different from the current password")
	}
	if user.Password, err = hashPassword(password); err != nil {
		return err
	}
	user.ResetToken = nil
	user.ResetTokenExpiry = nil
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return errors.Wrap(err, "update password")
	}
	return nil
}

var nonUsername = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// FirebaseLogin trades a verified Firebase ID token for a local session,
// creating a Member account on first sight of the email.
func (s *AuthService) FirebaseLogin(ctx context.Context, idToken string) (*Session, error) {
	if s.verifier == nil {
		return nil, errors.Wrap(ErrUnauthorized, "firebase login is not configured")
	}
	if idToken == "" {
		return nil, errors.Wrap(ErrValidation, "idToken is required")
	}
	token, err := s.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, errors.Wrap(ErrUnauthorized, "invalid firebase ID token")
	}
	email, _ := token.Claims["email"].(string)
	if email == "" {
		return nil, errors.Wrap(ErrUnauthorized, "firebase token has no email")
	}

	user, err := s.users.FindEmailFold(ctx, email)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		if user, err = s.createFirebaseUser(ctx, email); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, errors.Wrap(err, "load user")
	}
	if !user.Active {
		return nil, errors.Wrap(ErrUnauthorized, "unauthorized")
	}
	return s.session(user)
}

func (s *AuthService) createFirebaseUser(ctx context.Context, email string) (*models.User, error) {
	base := nonUsername.ReplaceAllString(strings.SplitN(email, "@", 2)[0], "")
	if len(base) > 16 {
		base = base[:16]
	}
	for len(base) < 3 {
		base += "_"
	}
	username := base
	for i := 1; ; i++ {
		_, err := s.users.FindUsernameFold(ctx, username)
		if errors.Is(err, repositories.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "check username")
		}
		if i > 999 {
			return nil, errors.Wrap(ErrConflict, "no free username for "+email)
		}
		username = fmt.Sprintf("%s%d", base, i)
	}

	hash, err := hashPassword(uuid.NewString())
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username: username,
		Email:    email,
		Password: hash,
		Roles:    []string{models.RoleMember},
		Active:   true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, errors.Wrap(err, "create user")
	}
	return user, nil
}
