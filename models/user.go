package models

import (
	"time"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// User 用户模型
type User struct {
	ID         string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AuthSource string     `gorm:"type:varchar(10);default:'local'" json:"auth_source"` // "local" 或 "google"
	Username   string     `json:"username" gorm:"unique;not null"`
	Email      string     `json:"email" gorm:"unique;not null"`
	Password   string     `json:"-" gorm:"nullable"`
	AvatarURL  string     `json:"avatar_url"`
	Status     string     `json:"status" gorm:"type:varchar(10);default:'offline'"`
	LastLogin  *time.Time `json:"last_login" gorm:"default:NULL"` // 允许 NULL
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
