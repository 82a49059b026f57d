package http

import (
	"context"
	"io"
	"time"

	"github.com/go-auth-web/internal/domain"
	"github.com/go-auth-web/internal/infrastructure/google"
)

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByGoogleSub(ctx context.Context, sub string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, userID string) error
}

// SessionRepository is the minimal interface the router requires from a session store.
type SessionRepository interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Update(ctx context.Context, sessionID string, updates map[string]interface{}) error
	SoftDeleteByUser(ctx context.Context, userID string) error
}

// VerificationRepository is the minimal interface the router requires from a
// verification record store.
type VerificationRepository interface {
	Upsert(ctx context.Context, v *domain.Verification) error
	Find(ctx context.Context, target string, typ domain.VerificationType) (*domain.Verification, error)
	Delete(ctx context.Context, target string, typ domain.VerificationType) error
	ConsumeIfSecret(ctx context.Context, target string, typ domain.VerificationType, secret string) (bool, error)
}

// ObjectStore is the minimal interface the router requires from an object storage backend.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// GoogleVerifier is the minimal interface the router requires from the Google
// ID-token verifier.
type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (*google.Payload, error)
}
