package user

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-auth-web/internal/domain"
)

const avatarURLTTL = 15 * time.Minute

type UserStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, userID string) error
}

type SessionStore interface {
	SoftDeleteByUser(ctx context.Context, userID string) error
}

// ObjectStore is the avatar blob store.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type Service interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	// ChangePassword verifies the current password before storing the new
	// hash. Accounts without a password (Google-only) cannot use it.
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	// UploadAvatar stores the image and records its object key on the user.
	UploadAvatar(ctx context.Context, userID string, r io.Reader, contentType string) error
	// AvatarURL returns a short-lived presigned URL for the user's avatar.
	AvatarURL(ctx context.Context, userID string) (string, error)
	DeleteAvatar(ctx context.Context, userID string) error
	// Delete disables the account and every session attached to it.
	Delete(ctx context.Context, userID string) error
}

type ServiceDeps struct {
	Users    UserStore
	Sessions SessionStore
	Objects  ObjectStore
}

type service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) Service {
	return &service{deps: deps}
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.deps.Users.Get(ctx, userID)
}

func (s *service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	u, err := s.deps.Users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u.PasswordHash == "" {
		return fmt.Errorf("account has no password: %w", domain.ErrBadRequest)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)) != nil {
		return fmt.Errorf("current password is incorrect: %w", domain.ErrUnauthorized)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.deps.Users.Update(ctx, userID, map[string]interface{}{
		"password_hash": string(hash),
	})
}

func (s *service) UploadAvatar(ctx context.Context, userID string, r io.Reader, contentType string) error {
	key := avatarKey(userID)
	if _, err := s.deps.Objects.Upload(ctx, key, r, contentType); err != nil {
		return err
	}
	return s.deps.Users.Update(ctx, userID, map[string]interface{}{
		"avatar_key": key,
	})
}

func (s *service) AvatarURL(ctx context.Context, userID string) (string, error) {
	u, err := s.deps.Users.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if u.AvatarKey == "" {
		return "", fmt.Errorf("no avatar set: %w", domain.ErrNotFound)
	}
	return s.deps.Objects.PresignedURL(ctx, u.AvatarKey, avatarURLTTL)
}

func (s *service) DeleteAvatar(ctx context.Context, userID string) error {
	u, err := s.deps.Users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u.AvatarKey == "" {
		return nil
	}
	if err := s.deps.Objects.Delete(ctx, u.AvatarKey); err != nil {
		return err
	}
	return s.deps.Users.Update(ctx, userID, map[string]interface{}{
		"avatar_key": "",
	})
}

func (s *service) Delete(ctx context.Context, userID string) error {
	if err := s.deps.Users.SoftDelete(ctx, userID); err != nil {
		return err
	}
	return s.deps.Sessions.SoftDeleteByUser(ctx, userID)
}

func avatarKey(userID string) string {
	return "avatars/" + userID
}
