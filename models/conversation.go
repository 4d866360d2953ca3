package models

import "time"

const (
	KindPersonal = "personal"
	KindGroup    = "group"
)

// Conversation 会话模型，私聊与群聊共用
type Conversation struct {
	ConversationID string     `gorm:"primaryKey;type:varchar(36)" json:"conversation_id"`
	Kind           string     `gorm:"type:varchar(10);index" json:"kind"` // "personal" or "group"
	PairKey        *string    `gorm:"type:varchar(80);uniqueIndex" json:"-"` // 仅私聊用，排序后的 "a_b"，唯一索引防止重复会话
	Name           string     `gorm:"type:varchar(100)" json:"name,omitempty"`      // 仅群聊用
	AvatarURL      string     `gorm:"type:varchar(255)" json:"avatar_url,omitempty"` // 仅群聊用
	LastMessageAt  *time.Time `gorm:"index" json:"last_message_at"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
