package models

import "time"

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type ConversationParticipant struct {
	ConversationID string    `gorm:"primaryKey;type:varchar(36)" json:"conversation_id"`
	UserID         string    `gorm:"primaryKey;type:varchar(36)" json:"user_id"`      // 用户 ID
	Role           string    `gorm:"type:varchar(10);default:'member'" json:"role"`   // "admin" 或 "member"
	JoinedAt       time.Time `gorm:"autoCreateTime" json:"joined_at"`                 // 用户加入会话的时间
}
