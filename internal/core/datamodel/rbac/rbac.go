package rbac

import "time"

type Role struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Name        string    `gorm:"column:name;uniqueIndex;not null"`
	Description string    `gorm:"column:description"`
	Version     int       `gorm:"column:version;not null"`
	IsSystem    bool      `gorm:"column:is_system;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Role) TableName() string { return "roles" }

type Permission struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Name        string    `gorm:"column:name;uniqueIndex;not null"`
	Resource    string    `gorm:"column:resource;not null"`
	Action      string    `gorm:"column:action;not null"`
	Scope       string    `gorm:"column:scope;not null"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Permission) TableName() string { return "permissions" }

type RolePermission struct {
	RoleID       string    `gorm:"primaryKey;column:role_id;size:36"`
	PermissionID string    `gorm:"primaryKey;column:permission_id;size:36"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (RolePermission) TableName() string { return "role_permissions" }
