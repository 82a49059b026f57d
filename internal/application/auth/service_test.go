package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/go-auth-web/internal/application/verification"
	"github.com/go-auth-web/internal/domain"
	"github.com/go-auth-web/internal/infrastructure/google"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByGoogleSub(ctx context.Context, sub string) (*domain.User, error) {
	args := m.Called(ctx, sub)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) Put(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) Update(ctx context.Context, sessionID string, updates map[string]interface{}) error {
	return m.Called(ctx, sessionID, updates).Error(0)
}
func (m *mockSessionStore) SoftDeleteByUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockVerifier struct{ mock.Mock }

func (m *mockVerifier) Prepare(ctx context.Context, typ domain.VerificationType, target, redirectTo string) (*verification.Prepared, error) {
	args := m.Called(ctx, typ, target, redirectTo)
	if p, _ := args.Get(0).(*verification.Prepared); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockVerifier) IsCodeValid(ctx context.Context, code string, typ domain.VerificationType, target string) bool {
	return m.Called(ctx, code, typ, target).Bool(0)
}
func (m *mockVerifier) Consume(ctx context.Context, code string, typ domain.VerificationType, target string) (bool, error) {
	args := m.Called(ctx, code, typ, target)
	return args.Bool(0), args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, event, userID, email string) error {
	return m.Called(ctx, event, userID, email).Error(0)
}

type mockGoogleVerifier struct{ mock.Mock }

func (m *mockGoogleVerifier) Verify(ctx context.Context, token string) (*google.Payload, error) {
	args := m.Called(ctx, token)
	if p, _ := args.Get(0).(*google.Payload); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(sessionID, userID string) (string, error) {
	args := m.Called(sessionID, userID)
	return args.String(0), args.Error(1)
}

// --- builder ---

func newService(us *mockUserStore, ss *mockSessionStore, vf *mockVerifier, ml *mockMailer, gv *mockGoogleVerifier, sg *mockSigner) Service {
	deps := ServiceDeps{
		SessionExpiry: 30 * 24 * time.Hour,
	}
	if us != nil {
		deps.Users = us
	}
	if ss != nil {
		deps.Sessions = ss
	}
	if vf != nil {
		deps.Verifier = vf
	}
	if ml != nil {
		deps.Mailer = ml
	}
	if gv != nil {
		deps.Google = gv
	}
	if sg != nil {
		deps.Signer = sg
	}
	return NewService(deps)
}

func preparedFixture() *verification.Prepared {
	verify, _ := url.Parse("https://app.example.com/verify?code=123456&target=a%40b.com&type=onboarding")
	redirect, _ := url.Parse("https://app.example.com/verify?target=a%40b.com&type=onboarding")
	return &verification.Prepared{OTP: "123456", VerifyURL: verify, RedirectTo: redirect}
}

// --- Signup ---

func TestSignup_SendsCodeAndReturnsRedirect(t *testing.T) {
	us := &mockUserStore{}
	vf := &mockVerifier{}
	ml := &mockMailer{}

	us.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, domain.ErrNotFound)
	vf.On("Prepare", mock.Anything, domain.VerificationTypeOnboarding, "a@b.com", "/dashboard").
		Return(preparedFixture(), nil)
	ml.On("SendEmail", "a@b.com", mock.Anything, mock.MatchedBy(func(body string) bool {
		return strings.Contains(body, "123456") && strings.Contains(body, "https://app.example.com/verify")
	})).Return(nil)

	svc := newService(us, nil, vf, ml, nil, nil)
	redirect, err := svc.Signup(context.Background(), "a@b.com", "/dashboard")

	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com/verify?target=a%40b.com&type=onboarding", redirect)
	ml.AssertExpectations(t)
}

func TestSignup_ExistingEmail_ReturnsConflict(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1", Enable: true}, nil)

	svc := newService(us, nil, nil, nil, nil, nil)
	_, err := svc.Signup(context.Background(), "a@b.com", "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestSignup_MailFailure_Propagates(t *testing.T) {
	us := &mockUserStore{}
	vf := &mockVerifier{}
	ml := &mockMailer{}

	us.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, domain.ErrNotFound)
	vf.On("Prepare", mock.Anything, domain.VerificationTypeOnboarding, "a@b.com", "").
		Return(preparedFixture(), nil)
	ml.On("SendEmail", "a@b.com", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	svc := newService(us, nil, vf, ml, nil, nil)
	_, err := svc.Signup(context.Background(), "a@b.com", "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "send verification email")
}

// --- ForgotPassword ---

func TestForgotPassword_UnknownEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "x@x.com").Return(nil, domain.ErrNotFound)

	svc := newService(us, nil, nil, nil, nil, nil)
	_, err := svc.ForgotPassword(context.Background(), "x@x.com", "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestForgotPassword_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	vf := &mockVerifier{}
	ml := &mockMailer{}

	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1", Email: "a@b.com", Enable: true}, nil)
	vf.On("Prepare", mock.Anything, domain.VerificationTypeResetPassword, "a@b.com", "").
		Return(preparedFixture(), nil)
	ml.On("SendEmail", "a@b.com", mock.Anything, mock.Anything).Return(nil)

	svc := newService(us, nil, vf, ml, nil, nil)
	redirect, err := svc.ForgotPassword(context.Background(), "a@b.com", "")

	require.NoError(t, err)
	assert.NotEmpty(t, redirect)
}

// --- Onboard ---

func TestOnboard_CreatesUserAndSession(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	sg := &mockSigner{}

	us.On("GetByEmail", mock.Anything, "new@b.com").Return(nil, domain.ErrNotFound)
	var created *domain.User
	us.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.User) }).
		Return(nil)
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)
	sg.On("Sign", mock.Anything, mock.Anything).Return("cookie-token", nil)

	svc := newService(us, ss, nil, nil, nil, sg)
	result, err := svc.Onboard(context.Background(), "new@b.com", "s3cretpass")

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "new@b.com", created.Email)
	assert.Equal(t, domain.ProviderLocal, created.AuthProvider)
	assert.True(t, created.Enable)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("s3cretpass")))

	assert.Equal(t, "cookie-token", result.Token)
	assert.Equal(t, created.UserID, result.Session.UserID)
	assert.Equal(t, created, result.Session.User)
}

func TestOnboard_ExistingEmail_ReturnsConflict(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1"}, nil)

	svc := newService(us, nil, nil, nil, nil, nil)
	_, err := svc.Onboard(context.Background(), "a@b.com", "whatever1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

// --- Login ---

func TestLogin_HappyPath(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	us := &mockUserStore{}
	ss := &mockSessionStore{}
	sg := &mockSigner{}
	us.On("GetByEmail", mock.Anything, "a@b.com").
		Return(&domain.User{UserID: "u1", Email: "a@b.com", PasswordHash: string(hash), Enable: true}, nil)
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)
	sg.On("Sign", mock.Anything, "u1").Return("cookie-token", nil)

	svc := newService(us, ss, nil, nil, nil, sg)
	result, err := svc.Login(context.Background(), "a@b.com", "correct horse")

	require.NoError(t, err)
	assert.Equal(t, "cookie-token", result.Token)
	assert.Equal(t, "u1", result.Session.UserID)
	assert.True(t, result.Session.Enable)
}

func TestLogin_WrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").
		Return(&domain.User{UserID: "u1", PasswordHash: string(hash), Enable: true}, nil)

	svc := newService(us, nil, nil, nil, nil, nil)
	_, err = svc.Login(context.Background(), "a@b.com", "battery staple")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_UnknownEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "x@x.com").Return(nil, domain.ErrNotFound)

	svc := newService(us, nil, nil, nil, nil, nil)
	_, err := svc.Login(context.Background(), "x@x.com", "whatever1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_GoogleOnlyAccount_NoPasswordHash(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").
		Return(&domain.User{UserID: "u1", AuthProvider: domain.ProviderGoogle, Enable: true}, nil)

	svc := newService(us, nil, nil, nil, nil, nil)
	_, err := svc.Login(context.Background(), "a@b.com", "whatever1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_DisabledAccount(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").
		Return(&domain.User{UserID: "u1", PasswordHash: "x", Enable: false}, nil)

	svc := newService(us, nil, nil, nil, nil, nil)
	_, err := svc.Login(context.Background(), "a@b.com", "whatever1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

// --- LoginWithGoogle ---

func TestLoginWithGoogle_KnownSub(t *testing.T) {
	gv := &mockGoogleVerifier{}
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	sg := &mockSigner{}

	gv.On("Verify", mock.Anything, "idtok").
		Return(&google.Payload{Sub: "g-sub", Email: "a@b.com", EmailVerified: true}, nil)
	us.On("GetByGoogleSub", mock.Anything, "g-sub").
		Return(&domain.User{UserID: "u1", GoogleSub: "g-sub", Enable: true}, nil)
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)
	sg.On("Sign", mock.Anything, "u1").Return("cookie-token", nil)

	svc := newService(us, ss, nil, nil, gv, sg)
	result, err := svc.LoginWithGoogle(context.Background(), "idtok")

	require.NoError(t, err)
	assert.Equal(t, "u1", result.Session.UserID)
}

func TestLoginWithGoogle_LinksExistingEmail(t *testing.T) {
	gv := &mockGoogleVerifier{}
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	sg := &mockSigner{}

	gv.On("Verify", mock.Anything, "idtok").
		Return(&google.Payload{Sub: "g-sub", Email: "a@b.com", EmailVerified: true}, nil)
	us.On("GetByGoogleSub", mock.Anything, "g-sub").Return(nil, domain.ErrNotFound)
	us.On("GetByEmail", mock.Anything, "a@b.com").
		Return(&domain.User{UserID: "u1", Email: "a@b.com", Enable: true}, nil)
	us.On("Update", mock.Anything, "u1", map[string]interface{}{"google_sub": "g-sub"}).Return(nil)
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)
	sg.On("Sign", mock.Anything, "u1").Return("cookie-token", nil)

	svc := newService(us, ss, nil, nil, gv, sg)
	result, err := svc.LoginWithGoogle(context.Background(), "idtok")

	require.NoError(t, err)
	assert.Equal(t, "g-sub", result.Session.User.GoogleSub)
	us.AssertExpectations(t)
}

func TestLoginWithGoogle_CreatesNewAccount(t *testing.T) {
	gv := &mockGoogleVerifier{}
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	sg := &mockSigner{}

	gv.On("Verify", mock.Anything, "idtok").
		Return(&google.Payload{Sub: "g-sub", Email: "new@b.com", EmailVerified: true}, nil)
	us.On("GetByGoogleSub", mock.Anything, "g-sub").Return(nil, domain.ErrNotFound)
	us.On("GetByEmail", mock.Anything, "new@b.com").Return(nil, domain.ErrNotFound)
	var created *domain.User
	us.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.User) }).
		Return(nil)
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)
	sg.On("Sign", mock.Anything, mock.Anything).Return("cookie-token", nil)

	svc := newService(us, ss, nil, nil, gv, sg)
	_, err := svc.LoginWithGoogle(context.Background(), "idtok")

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, domain.ProviderGoogle, created.AuthProvider)
	assert.Empty(t, created.PasswordHash)
}

func TestLoginWithGoogle_UnverifiedEmail(t *testing.T) {
	gv := &mockGoogleVerifier{}
	gv.On("Verify", mock.Anything, "idtok").
		Return(&google.Payload{Sub: "g-sub", Email: "a@b.com", EmailVerified: false}, nil)

	svc := newService(nil, nil, nil, nil, gv, nil)
	_, err := svc.LoginWithGoogle(context.Background(), "idtok")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

// --- Current / Logout ---

func TestCurrent_HappyPath(t *testing.T) {
	ss := &mockSessionStore{}
	us := &mockUserStore{}

	ss.On("Get", mock.Anything, "s1").Return(&domain.Session{
		SessionID: "s1", UserID: "u1", Enable: true,
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}, nil)
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Enable: true}, nil)

	svc := newService(us, ss, nil, nil, nil, nil)
	sess, err := svc.Current(context.Background(), "s1")

	require.NoError(t, err)
	assert.Equal(t, "u1", sess.User.UserID)
}

func TestCurrent_ExpiredSession(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("Get", mock.Anything, "s1").Return(&domain.Session{
		SessionID: "s1", UserID: "u1", Enable: true,
		ExpiresAt: time.Now().Add(-time.Hour).Unix(),
	}, nil)

	svc := newService(nil, ss, nil, nil, nil, nil)
	_, err := svc.Current(context.Background(), "s1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestCurrent_DisabledSession(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("Get", mock.Anything, "s1").Return(&domain.Session{
		SessionID: "s1", UserID: "u1", Enable: false,
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}, nil)

	svc := newService(nil, ss, nil, nil, nil, nil)
	_, err := svc.Current(context.Background(), "s1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogout_DisablesSession(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("Update", mock.Anything, "s1", map[string]interface{}{"enable": false}).Return(nil)

	svc := newService(nil, ss, nil, nil, nil, nil)
	require.NoError(t, svc.Logout(context.Background(), "s1"))
	ss.AssertExpectations(t)
}

// --- ResetPassword ---

func TestResetPassword_UpdatesHashAndKillsSessions(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}

	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1", Email: "a@b.com"}, nil)
	us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(m map[string]interface{}) bool {
		hash, ok := m["password_hash"].(string)
		return ok && bcrypt.CompareHashAndPassword([]byte(hash), []byte("newpassword1")) == nil
	})).Return(nil)
	ss.On("SoftDeleteByUser", mock.Anything, "u1").Return(nil)

	svc := newService(us, ss, nil, nil, nil, nil)
	require.NoError(t, svc.ResetPassword(context.Background(), "a@b.com", "newpassword1"))
	us.AssertExpectations(t)
	ss.AssertExpectations(t)
}

func TestResetPassword_PublishesEvent(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	pub := &mockPublisher{}

	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1", Email: "a@b.com"}, nil)
	us.On("Update", mock.Anything, "u1", mock.Anything).Return(nil)
	ss.On("SoftDeleteByUser", mock.Anything, "u1").Return(nil)
	pub.On("Publish", mock.Anything, "password.reset", "u1", "a@b.com").Return(nil)

	svc := NewService(ServiceDeps{Users: us, Sessions: ss, Events: pub, SessionExpiry: time.Hour})
	require.NoError(t, svc.ResetPassword(context.Background(), "a@b.com", "newpassword1"))
	pub.AssertExpectations(t)
}

// --- UserExists ---

func TestUserExists(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1", Enable: true}, nil)
	us.On("GetByEmail", mock.Anything, "gone@b.com").Return(&domain.User{UserID: "u2", Enable: false}, nil)
	us.On("GetByEmail", mock.Anything, "x@x.com").Return(nil, domain.ErrNotFound)

	svc := newService(us, nil, nil, nil, nil, nil)
	assert.True(t, svc.UserExists(context.Background(), "a@b.com"))
	assert.False(t, svc.UserExists(context.Background(), "gone@b.com"))
	assert.False(t, svc.UserExists(context.Background(), "x@x.com"))
}
