package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/go-auth-web/internal/application/auth"
	"github.com/go-auth-web/internal/application/user"
	"github.com/go-auth-web/internal/application/verification"
	"github.com/go-auth-web/internal/config"
	"github.com/go-auth-web/internal/infrastructure/cookies"
	jwtinfra "github.com/go-auth-web/internal/infrastructure/jwt"
	"github.com/go-auth-web/internal/infrastructure/smtp"
	"github.com/go-auth-web/internal/infrastructure/sns"
	"github.com/go-auth-web/internal/transport/http/handler"
	appmiddleware "github.com/go-auth-web/internal/transport/http/middleware"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         UserRepository
	SessionRepo      SessionRepository
	VerificationRepo VerificationRepository
	S3Store          ObjectStore
	Mailer           smtp.Mailer
	Events           sns.Publisher // nil disables account events
	GoogleVerifier   GoogleVerifier
	JWTProvider      *jwtinfra.Provider
	Stash            *cookies.Stash
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)
	anonMw := appmiddleware.RequireAnonymous(deps.JWTProvider)

	// 5 requests/second, burst of 10 — applied to code-issuing and credential
	// endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	sessionExpiry := time.Duration(cfg.SessionExpiryDays) * 24 * time.Hour

	verificationSvc := verification.NewService(deps.VerificationRepo, cfg.BaseURL, cfg.VerificationPeriod)
	authSvc := auth.NewService(auth.ServiceDeps{
		Users:         deps.UserRepo,
		Sessions:      deps.SessionRepo,
		Verifier:      verificationSvc,
		Mailer:        deps.Mailer,
		Events:        deps.Events,
		Google:        deps.GoogleVerifier,
		Signer:        deps.JWTProvider,
		SessionExpiry: sessionExpiry,
	})
	userSvc := user.NewService(user.ServiceDeps{
		Users:    deps.UserRepo,
		Sessions: deps.SessionRepo,
		Objects:  deps.S3Store,
	})

	secure := cfg.IsProduction()
	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc, sessionExpiry, secure)
	verifyH := handler.NewVerifyHandler(verificationSvc, authSvc, deps.Stash)
	onboardingH := handler.NewOnboardingHandler(authSvc, deps.Stash, sessionExpiry, secure)
	profileH := handler.NewProfileHandler(authSvc, userSvc, secure)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check", healthH.Ping)

		// ── Anonymous-only routes ────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(anonMw)

			r.With(sensitiveRL.Limit).Post("/auth/signup", authH.Signup)
			r.With(sensitiveRL.Limit).Get("/auth/verify", verifyH.Verify)
			r.With(sensitiveRL.Limit).Post("/auth/verify", verifyH.Verify)
			r.Post("/auth/onboarding", onboardingH.Onboarding)
			r.With(sensitiveRL.Limit).Post("/auth/login", authH.Login)
			r.With(sensitiveRL.Limit).Post("/auth/google", authH.GoogleLogin)
			r.With(sensitiveRL.Limit).Post("/auth/forgot-password", authH.ForgotPassword)
			r.Post("/auth/reset-password", onboardingH.ResetPassword)
		})

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/auth/logout", authH.Logout)
			r.Get("/me", profileH.Me)
			r.Delete("/me", profileH.DeleteAccount)
			r.Put("/me/password", profileH.ChangePassword)
			r.Post("/me/avatar", profileH.UploadAvatar)
			r.Get("/me/avatar", profileH.GetAvatar)
			r.Delete("/me/avatar", profileH.DeleteAvatar)
		})
	})

	return r
}
