package domain

import "time"

// VerificationType enumerates the flows a one-time code can belong to.
type VerificationType string

const (
	VerificationTypeOnboarding    VerificationType = "onboarding"
	VerificationTypeResetPassword VerificationType = "reset_password"
)

// Valid reports whether t is a known verification type.
func (t VerificationType) Valid() bool {
	switch t {
	case VerificationTypeOnboarding, VerificationTypeResetPassword:
		return true
	}
	return false
}

// Verification stores the parameters needed to re-derive a time-based
// one-time code. The code itself is never persisted.
// PK: target (e.g. an email address), SK: type.
// At most one live record exists per (target, type); issuing a new code
// overwrites the previous record, invalidating its code even if unexpired.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL; nil means no expiry.
type Verification struct {
	Target    string           `json:"target" dynamodbav:"target"`
	Type      VerificationType `json:"type" dynamodbav:"type"`
	Algorithm string           `json:"algorithm" dynamodbav:"algorithm"`
	Secret    string           `json:"secret" dynamodbav:"secret"`
	Period    int              `json:"period" dynamodbav:"period"` // seconds
	Digits    int              `json:"digits" dynamodbav:"digits"`
	CharSet   string           `json:"char_set" dynamodbav:"char_set"`
	ExpiresAt *int64           `json:"expires_at,omitempty" dynamodbav:"expires_at,omitempty"`
}

// Expired reports whether the record has passed its expiry. The record is
// live strictly before ExpiresAt and expired from that instant on, matching
// the `expires_at > :now` consume condition. A nil ExpiresAt never expires.
func (v *Verification) Expired(now time.Time) bool {
	return v.ExpiresAt != nil && *v.ExpiresAt <= now.Unix()
}
