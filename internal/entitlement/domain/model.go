// Package domain contains persistence models for category entitlements.
package domain

import "github.com/bwmarrin/snowflake"

// Entitlement grants a user timed access to one content category.
// All timestamps are epoch seconds; expires_at > now is the sole
// authority for whether access is live.
type Entitlement struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"-"`
	UserID    int64        `gorm:"column:user_id;not null" json:"user_id"`
	Category  string       `gorm:"column:category;type:text;not null" json:"category"`
	ExpiresAt int64        `gorm:"column:expires_at;not null" json:"expires_at"`
	PlanDays  int          `gorm:"column:plan_days;not null" json:"plan_days"`
	StartsAt  int64        `gorm:"column:starts_at;not null" json:"starts_at"`
	RevokedAt int64        `gorm:"column:revoked_at;not null" json:"revoked_at"`
}

// TableName sets the database table name.
func (Entitlement) TableName() string { return "entitlements" }

// Active reports whether the entitlement is live at the given instant.
func (e Entitlement) Active(now int64) bool {
	return e.ExpiresAt > now
}
