// Package domain contains persistence models for short-lived access tokens.
package domain

// AccessToken binds an opaque bearer token to a user until expires_at
// (epoch seconds). Tokens carry no category scope; the access gate
// checks entitlements separately.
type AccessToken struct {
	Token     string `gorm:"column:token;primaryKey" json:"token"`
	UserID    int64  `gorm:"column:user_id;not null" json:"user_id"`
	ExpiresAt int64  `gorm:"column:expires_at;not null" json:"expires_at"`
}

// TableName sets the database table name.
func (AccessToken) TableName() string { return "access_tokens" }
