package otp

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Defaults for codes issued by this application. These are persisted with each
// verification record so codes remain checkable if the defaults ever change.
const (
	DefaultAlgorithm = "SHA256"
	DefaultDigits    = 6
	DefaultCharSet   = "0123456789"

	secretSize = 20 // bytes of seed material per secret
)

// Config carries everything needed to re-derive a time-stepped code:
// the secret, the hash algorithm, the step length and the code shape.
type Config struct {
	Secret    string
	Algorithm string
	Period    int // seconds
	Digits    int
	CharSet   string
}

// Generate derives a one-time code for the current time step of length
// period seconds, using a freshly generated random secret. The returned
// Config holds the parameters a validator needs to check the code later.
func Generate(period int) (string, Config, error) {
	return generateAt(period, time.Now())
}

func generateAt(period int, at time.Time) (string, Config, error) {
	buf := make([]byte, secretSize)
	if _, err := rand.Read(buf); err != nil {
		return "", Config{}, fmt.Errorf("generate otp secret: %w", err)
	}
	cfg := Config{
		Secret:    base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf),
		Algorithm: DefaultAlgorithm,
		Period:    period,
		Digits:    DefaultDigits,
		CharSet:   DefaultCharSet,
	}
	opts, err := validateOpts(cfg, 0)
	if err != nil {
		return "", Config{}, err
	}
	code, err := totp.GenerateCodeCustom(cfg.Secret, at, opts)
	if err != nil {
		return "", Config{}, fmt.Errorf("generate otp: %w", err)
	}
	return code, cfg, nil
}

// Validate checks the code against cfg for the current time, allowing the
// standard ±1 time-step skew.
func Validate(code string, cfg Config) bool {
	return ValidateAt(code, cfg, time.Now())
}

// ValidateAt checks the code against cfg at the given time. Any failure —
// wrong code, malformed secret, unknown algorithm — yields false; a wrong
// code is never an error.
func ValidateAt(code string, cfg Config, at time.Time) bool {
	opts, err := validateOpts(cfg, 1)
	if err != nil {
		return false
	}
	ok, err := totp.ValidateCustom(code, cfg.Secret, at, opts)
	if err != nil {
		return false
	}
	return ok
}

func validateOpts(cfg Config, skew uint) (totp.ValidateOpts, error) {
	alg, err := algorithm(cfg.Algorithm)
	if err != nil {
		return totp.ValidateOpts{}, err
	}
	return totp.ValidateOpts{
		Period:    uint(cfg.Period),
		Skew:      skew,
		Digits:    otp.Digits(cfg.Digits),
		Algorithm: alg,
	}, nil
}

func algorithm(name string) (otp.Algorithm, error) {
	switch name {
	case "SHA1":
		return otp.AlgorithmSHA1, nil
	case "SHA256":
		return otp.AlgorithmSHA256, nil
	case "SHA512":
		return otp.AlgorithmSHA512, nil
	}
	return 0, fmt.Errorf("unknown otp algorithm %q", name)
}
