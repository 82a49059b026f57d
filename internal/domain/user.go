package domain

import "time"

// Auth providers recorded on a user account.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// User is an account record. GoogleSub keys the google_sub-index GSI and
// must be omitted when empty: DynamoDB rejects items carrying an empty value
// for an index key attribute, so local users leave the index sparse.
type User struct {
	UserID       string     `json:"id" dynamodbav:"user_id"`
	Email        string     `json:"email" dynamodbav:"email"`
	PasswordHash string     `json:"-" dynamodbav:"password_hash"`
	AuthProvider string     `json:"auth_provider,omitempty" dynamodbav:"auth_provider"` // "local" | "google"
	GoogleSub    string     `json:"-" dynamodbav:"google_sub,omitempty"`
	AvatarKey    string     `json:"-" dynamodbav:"avatar_key"`
	Enable       bool       `json:"enable" dynamodbav:"enable"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at"`
	CreatedAt    time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time  `json:"updated" dynamodbav:"updated_at"`
}
