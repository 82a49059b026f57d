package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-auth-web/internal/application/verification"
	"github.com/go-auth-web/internal/domain"
	"github.com/go-auth-web/internal/infrastructure/google"
	"github.com/go-auth-web/internal/infrastructure/smtp"
	"github.com/go-auth-web/internal/infrastructure/sns"
	"github.com/go-auth-web/internal/pkg/id"
)

type UserStore interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByGoogleSub(ctx context.Context, sub string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type SessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Update(ctx context.Context, sessionID string, updates map[string]interface{}) error
	SoftDeleteByUser(ctx context.Context, userID string) error
}

type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (*google.Payload, error)
}

type TokenSigner interface {
	Sign(sessionID, userID string) (string, error)
}

// LoginResult pairs a freshly created session with the signed cookie token
// that references it.
type LoginResult struct {
	Session *domain.Session
	Token   string
}

type Service interface {
	// Signup issues an onboarding code for email, mails the verify link and
	// returns the verify page URL to redirect the browser to. An existing
	// enabled account yields domain.ErrConflict.
	Signup(ctx context.Context, email, redirectTo string) (string, error)
	// Onboard creates the account after its email was verified, then logs it
	// in.
	Onboard(ctx context.Context, email, password string) (*LoginResult, error)
	// Login authenticates a local-password account. Wrong email and wrong
	// password are indistinguishable to the caller.
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	// LoginWithGoogle verifies the Google ID token and signs in the matching
	// account, linking or creating one as needed.
	LoginWithGoogle(ctx context.Context, idToken string) (*LoginResult, error)
	// Logout disables the server-side session.
	Logout(ctx context.Context, sessionID string) error
	// Current resolves a live session and its user. Disabled or expired
	// sessions, and disabled users, yield domain.ErrUnauthorized.
	Current(ctx context.Context, sessionID string) (*domain.Session, error)
	// ForgotPassword issues a reset code for an existing account, mails the
	// verify link and returns the verify page URL.
	ForgotPassword(ctx context.Context, email, redirectTo string) (string, error)
	// ResetPassword replaces the password and disables every session of the
	// account. Callers must have verified the email first.
	ResetPassword(ctx context.Context, email, newPassword string) error
	// UserExists reports whether an enabled account exists for email.
	UserExists(ctx context.Context, email string) bool
}

type ServiceDeps struct {
	Users         UserStore
	Sessions      SessionStore
	Verifier      verification.Service
	Mailer        smtp.Mailer
	Events        sns.Publisher // nil disables event publishing
	Google        GoogleVerifier
	Signer        TokenSigner
	SessionExpiry time.Duration
}

type service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) Service {
	return &service{deps: deps}
}

func (s *service) Signup(ctx context.Context, email, redirectTo string) (string, error) {
	if _, err := s.deps.Users.GetByEmail(ctx, email); err == nil {
		return "", fmt.Errorf("a user already exists with this email: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}
	return s.sendVerification(ctx, domain.VerificationTypeOnboarding, email, redirectTo,
		"Welcome!", "Here's your verification code: ")
}

func (s *service) ForgotPassword(ctx context.Context, email, redirectTo string) (string, error) {
	if _, err := s.deps.Users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("no user exists with this email: %w", domain.ErrNotFound)
		}
		return "", err
	}
	return s.sendVerification(ctx, domain.VerificationTypeResetPassword, email, redirectTo,
		"Password reset", "Here's your verification code: ")
}

// sendVerification issues a code and mails the verify link. A delivery
// failure is returned to the caller; the stored record stays valid, so a
// retry re-issues rather than strands the user.
func (s *service) sendVerification(ctx context.Context, typ domain.VerificationType, email, redirectTo, subject, intro string) (string, error) {
	prepared, err := s.deps.Verifier.Prepare(ctx, typ, email, redirectTo)
	if err != nil {
		return "", err
	}
	body := fmt.Sprintf("%s%s\n\nOr open this link to verify: %s", intro, prepared.OTP, prepared.VerifyURL)
	if err := s.deps.Mailer.SendEmail(email, subject, body); err != nil {
		return "", fmt.Errorf("send verification email: %w", err)
	}
	return prepared.RedirectTo.String(), nil
}

func (s *service) Onboard(ctx context.Context, email, password string) (*LoginResult, error) {
	if _, err := s.deps.Users.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("a user already exists with this email: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        email,
		PasswordHash: string(hash),
		AuthProvider: domain.ProviderLocal,
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.deps.Users.Put(ctx, u); err != nil {
		return nil, err
	}
	s.publish(ctx, sns.EventAccountCreated, u)
	return s.createSession(ctx, u)
}

func (s *service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
	}
	if !u.Enable {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}
	if u.PasswordHash == "" {
		return nil, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
	}
	return s.createSession(ctx, u)
}

func (s *service) LoginWithGoogle(ctx context.Context, idToken string) (*LoginResult, error) {
	payload, err := s.deps.Google.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	if !payload.EmailVerified {
		return nil, fmt.Errorf("google account email not verified: %w", domain.ErrUnauthorized)
	}

	u, err := s.deps.Users.GetByGoogleSub(ctx, payload.Sub)
	switch {
	case err == nil:
		// known Google account
	case errors.Is(err, domain.ErrNotFound):
		u, err = s.linkOrCreateGoogleUser(ctx, payload)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	if !u.Enable {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}
	return s.createSession(ctx, u)
}

func (s *service) linkOrCreateGoogleUser(ctx context.Context, payload *google.Payload) (*domain.User, error) {
	u, err := s.deps.Users.GetByEmail(ctx, payload.Email)
	if err == nil {
		// existing local account with a verified matching email: link it
		if err := s.deps.Users.Update(ctx, u.UserID, map[string]interface{}{
			"google_sub": payload.Sub,
		}); err != nil {
			return nil, err
		}
		u.GoogleSub = payload.Sub
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	u = &domain.User{
		UserID:       id.New(),
		Email:        payload.Email,
		AuthProvider: domain.ProviderGoogle,
		GoogleSub:    payload.Sub,
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.deps.Users.Put(ctx, u); err != nil {
		return nil, err
	}
	s.publish(ctx, sns.EventAccountCreated, u)
	return u, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	return s.deps.Sessions.Update(ctx, sessionID, map[string]interface{}{"enable": false})
}

func (s *service) Current(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.deps.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", domain.ErrUnauthorized)
	}
	if !sess.Enable || sess.Expired(time.Now()) {
		return nil, fmt.Errorf("session no longer valid: %w", domain.ErrUnauthorized)
	}
	u, err := s.deps.Users.Get(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrUnauthorized)
	}
	if !u.Enable {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrUnauthorized)
	}
	sess.User = u
	return sess, nil
}

func (s *service) ResetPassword(ctx context.Context, email, newPassword string) error {
	u, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.deps.Users.Update(ctx, u.UserID, map[string]interface{}{
		"password_hash": string(hash),
	}); err != nil {
		return err
	}
	// Every live session dies with the old password.
	if err := s.deps.Sessions.SoftDeleteByUser(ctx, u.UserID); err != nil {
		slog.Warn("failed to disable sessions after password reset", "user_id", u.UserID, "err", err)
	}
	s.publish(ctx, sns.EventPasswordReset, u)
	return nil
}

func (s *service) UserExists(ctx context.Context, email string) bool {
	u, err := s.deps.Users.GetByEmail(ctx, email)
	return err == nil && u.Enable
}

func (s *service) createSession(ctx context.Context, u *domain.User) (*LoginResult, error) {
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID: id.New(),
		UserID:    u.UserID,
		ExpiresAt: now.Add(s.deps.SessionExpiry).Unix(),
		Enable:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.deps.Sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	token, err := s.deps.Signer.Sign(sess.SessionID, u.UserID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return &LoginResult{Session: sess, Token: token}, nil
}

// publish emits an account event when a publisher is configured. Event
// delivery is best-effort and never fails the request.
func (s *service) publish(ctx context.Context, event string, u *domain.User) {
	if s.deps.Events == nil {
		return
	}
	if err := s.deps.Events.Publish(ctx, event, u.UserID, u.Email); err != nil {
		slog.Warn("failed to publish account event", "event", event, "user_id", u.UserID, "err", err)
	}
}
