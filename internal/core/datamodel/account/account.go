package account

import "time"

type Account struct {
	ID           string     `gorm:"primaryKey;size:36"`
	Email        string     `gorm:"column:email;uniqueIndex;not null"`
	DisplayName  string     `gorm:"column:display_name;not null"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	EmployeeID   *string    `gorm:"column:employee_id;size:64"`
	IsActive     bool       `gorm:"column:is_active;not null"`
	IsSuspended  bool       `gorm:"column:is_suspended;not null"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Account) TableName() string { return "accounts" }

// AccountRole assigns a role to an account, optionally bounded in time.
type AccountRole struct {
	AccountID  string     `gorm:"primaryKey;column:account_id;size:36"`
	RoleID     string     `gorm:"primaryKey;column:role_id;size:36"`
	AssignedBy *string    `gorm:"column:assigned_by;size:36"`
	ValidFrom  *time.Time `gorm:"column:valid_from"`
	ValidUntil *time.Time `gorm:"column:valid_until"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (AccountRole) TableName() string { return "account_roles" }
