package models

import "time"

// Contact 联系人关系，首次私聊成功后双向写入
type Contact struct {
	UserID    string    `gorm:"primaryKey;type:varchar(36)" json:"user_id"`
	ContactID string    `gorm:"primaryKey;type:varchar(36)" json:"contact_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
