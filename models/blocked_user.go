package models

import "time"

// BlockedUser 拉黑记录，存储上单向，效果上双向（任一方向存在即互相禁止发送）
type BlockedUser struct {
	UserID    string    `gorm:"primaryKey;type:varchar(36)" json:"user_id"`    // 拉黑发起人
	BlockedID string    `gorm:"primaryKey;type:varchar(36)" json:"blocked_id"` // 被拉黑的用户
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
