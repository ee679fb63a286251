package domain

// User is a directory entry for anyone who has interacted with the
// front-end. StartedAt is set on first contact and never updated;
// LastSeen moves on every upsert.
type User struct {
	UserID    int64  `gorm:"column:user_id;primaryKey" json:"user_id"`
	Username  string `gorm:"column:username" json:"username"`
	FirstName string `gorm:"column:first_name" json:"first_name"`
	LastName  string `gorm:"column:last_name" json:"last_name"`
	StartedAt int64  `gorm:"column:started_at" json:"started_at"`
	LastSeen  int64  `gorm:"column:last_seen" json:"last_seen"`
}

func (User) TableName() string {
	return "users"
}
