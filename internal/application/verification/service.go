package verification

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-auth-web/internal/domain"
	"github.com/go-auth-web/internal/pkg/otp"
)

// Query parameter names of the verify link. The link is plain key-value
// query parameters so it survives any mail client.
const (
	CodeParam       = "code"
	TypeParam       = "type"
	TargetParam     = "target"
	RedirectToParam = "redirectTo"
)

// Store is the verification record store contract: one live record per
// (target, type), overwrite on re-issue, expiry-aware reads, atomic consume.
type Store interface {
	Upsert(ctx context.Context, v *domain.Verification) error
	Find(ctx context.Context, target string, typ domain.VerificationType) (*domain.Verification, error)
	Delete(ctx context.Context, target string, typ domain.VerificationType) error
	ConsumeIfSecret(ctx context.Context, target string, typ domain.VerificationType, secret string) (bool, error)
}

// Prepared is the result of issuing a verification code.
type Prepared struct {
	// OTP is the freshly derived one-time code. Never persisted.
	OTP string
	// VerifyURL is the emailed link: the verify surface plus the code.
	VerifyURL *url.URL
	// RedirectTo is where the issuing flow sends the user next — the verify
	// surface without the code, so they can type it in.
	RedirectTo *url.URL
}

type Service interface {
	// Prepare generates a fresh code for (type, target), stores its
	// parameters (superseding any previous record for the pair) and builds
	// the verify URLs. Delivery is the caller's responsibility.
	Prepare(ctx context.Context, typ domain.VerificationType, target, redirectTo string) (*Prepared, error)
	// IsCodeValid reports whether code matches the live record for
	// (target, type). Missing or expired records yield false without any
	// code comparison.
	IsCodeValid(ctx context.Context, code string, typ domain.VerificationType, target string) bool
	// Consume validates the code and, on success, atomically deletes the
	// record so the code is single-use. Returns false for a wrong code, a
	// missing/expired record, or a record consumed or superseded in the
	// meantime.
	Consume(ctx context.Context, code string, typ domain.VerificationType, target string) (bool, error)
}

type service struct {
	store   Store
	baseURL string
	period  int // seconds
}

func NewService(store Store, baseURL string, period int) Service {
	return &service{store: store, baseURL: baseURL, period: period}
}

func (s *service) Prepare(ctx context.Context, typ domain.VerificationType, target, redirectTo string) (*Prepared, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("unknown verification type %q: %w", typ, domain.ErrBadRequest)
	}

	code, cfg, err := otp.Generate(s.period)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(time.Duration(cfg.Period) * time.Second).Unix()
	record := &domain.Verification{
		Target:    target,
		Type:      typ,
		Algorithm: cfg.Algorithm,
		Secret:    cfg.Secret,
		Period:    cfg.Period,
		Digits:    cfg.Digits,
		CharSet:   cfg.CharSet,
		ExpiresAt: &expiresAt,
	}
	if err := s.store.Upsert(ctx, record); err != nil {
		return nil, err
	}

	verifyURL, err := s.verifyURL(typ, target, redirectTo)
	if err != nil {
		return nil, err
	}
	redirect := *verifyURL

	q := verifyURL.Query()
	q.Set(CodeParam, code)
	verifyURL.RawQuery = q.Encode()

	return &Prepared{OTP: code, VerifyURL: verifyURL, RedirectTo: &redirect}, nil
}

func (s *service) IsCodeValid(ctx context.Context, code string, typ domain.VerificationType, target string) bool {
	record, err := s.store.Find(ctx, target, typ)
	if err != nil {
		return false
	}
	return otp.Validate(code, otpConfig(record))
}

func (s *service) Consume(ctx context.Context, code string, typ domain.VerificationType, target string) (bool, error) {
	record, err := s.store.Find(ctx, target, typ)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if !otp.Validate(code, otpConfig(record)) {
		return false, nil
	}
	// Conditioning the delete on the secret we validated against makes
	// validate+delete atomic: a concurrent submission or a re-issued code
	// loses the race here and is rejected.
	return s.store.ConsumeIfSecret(ctx, target, typ, record.Secret)
}

func (s *service) verifyURL(typ domain.VerificationType, target, redirectTo string) (*url.URL, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	u.Path = "/verify"
	q := u.Query()
	q.Set(TypeParam, string(typ))
	q.Set(TargetParam, target)
	if redirectTo != "" {
		q.Set(RedirectToParam, redirectTo)
	}
	u.RawQuery = q.Encode()
	return u, nil
}

func otpConfig(v *domain.Verification) otp.Config {
	return otp.Config{
		Secret:    v.Secret,
		Algorithm: v.Algorithm,
		Period:    v.Period,
		Digits:    v.Digits,
		CharSet:   v.CharSet,
	}
}
