package models

import "time"

// Message 消息模型，写入后不再修改
type Message struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"` // 自增主键同时充当同会话内的追加顺序
	MessageID      string    `gorm:"type:varchar(36);uniqueIndex" json:"message_id"`
	ConversationID string    `gorm:"type:varchar(36);index" json:"conversation_id"`
	SenderID       string    `gorm:"type:varchar(36);index" json:"sender_id"`
	Content        string    `gorm:"type:text" json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
