package store

import (
	"chat-server/models"
)

// CreateConversationSpec 创建会话的参数
type CreateConversationSpec struct {
	Kind         string
	Name         string
	AvatarURL    string
	Participants []models.ConversationParticipant
}

// ParticipantMutation 成员变更，先删后增
type ParticipantMutation struct {
	Add    []models.ConversationParticipant
	Remove []string // user id 列表
}

// BlockMutation 拉黑名单变更
type BlockMutation struct {
	Add    []string
	Remove []string
}

// ConversationStore 会话持久化契约。查询未命中时返回 (nil, nil)，
// 只有存储层故障才返回 error。
type ConversationStore interface {
	// FindPersonalConversation 精确匹配 {两人, kind=personal}，
	// 不会返回恰好包含这两人的群聊
	FindPersonalConversation(userA, userB string) (*models.Conversation, error)
	FindConversation(conversationID string) (*models.Conversation, error)
	// CreateConversation 创建会话。私聊按无序对唯一，撞到已存在的记录时
	// 返回已有会话且 created=false
	CreateConversation(spec CreateConversationSpec) (conv *models.Conversation, created bool, err error)
	// AppendMessage 追加消息并刷新会话的 last_message_at
	AppendMessage(conversationID string, msg *models.Message) error
	UpdateParticipants(conversationID string, mut ParticipantMutation) error
	RenameConversation(conversationID, name string) error
	ParticipantsOf(conversationID string) ([]models.ConversationParticipant, error)
}

// UserStore 用户持久化契约，约定同上
type UserStore interface {
	FindUser(userID string) (*models.User, error)
	SetStatus(userID, status string) error
	// AddMutualContacts 双向写入联系人关系，重复写入为幂等
	AddMutualContacts(userA, userB string) error
	ContactsOf(userID string) ([]models.User, error)
	UpdateBlockSet(userID string, mut BlockMutation) error
	// IsBlockedEither 任一方向存在拉黑记录即为 true
	IsBlockedEither(userA, userB string) (bool, error)
	// BlockedBy 返回该用户拉黑的所有用户 ID
	BlockedBy(userID string) ([]string, error)
}

// PairKey 生成私聊会话的无序对键，保证 (a,b) 与 (b,a) 一致
func PairKey(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return userA + "_" + userB
}
