package session

import "time"

type RefreshToken struct {
	ID        string     `gorm:"primaryKey;size:36"`
	AccountID string     `gorm:"column:account_id;size:36;index;not null"`
	TokenHash string     `gorm:"column:token_hash;size:64;uniqueIndex;not null"`
	UserAgent string     `gorm:"column:user_agent"`
	IPAddress string     `gorm:"column:ip_address"`
	Device    string     `gorm:"column:device"`
	IsRevoked bool       `gorm:"column:is_revoked;not null"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;not null"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

type LoginHistory struct {
	ID            string     `gorm:"primaryKey;size:36"`
	AccountID     *string    `gorm:"column:account_id;size:36;index"`
	Email         string     `gorm:"column:email"`
	IPAddress     string     `gorm:"column:ip_address"`
	UserAgent     string     `gorm:"column:user_agent"`
	Status        string     `gorm:"column:status;not null"`
	FailureReason *string    `gorm:"column:failure_reason"`
	LoginAt       time.Time  `gorm:"column:login_at;not null"`
	LogoutAt      *time.Time `gorm:"column:logout_at"`
}

func (LoginHistory) TableName() string { return "login_histories" }
