package services

import (
	"encoding/json"
	"fmt"

	"chat-server/models"
)

// 客户端上行事件
const (
	EventIsOnline           = "isOnline"
	EventOnlineContacts     = "onlineContacts"
	EventJoinConversations  = "joinConversations"
	EventSendPrivateMessage = "sendPrivateMessage"
	EventSendGroupMessage   = "sendGroupMessage"
	EventTyping             = "typing"
	EventStoppedTyping      = "stoppedTyping"
	EventCheckBlockedUser   = "checkBlockedUser"
	EventBlockUser          = "blockUser"
	EventUnblockUser        = "unblockUser"
	EventCreateGroup        = "createGroup"
	EventAddMembers         = "addMembers"
	EventRemoveMembers      = "removeMembers"
	EventLeaveGroup         = "leaveGroup"
	EventRenameGroup        = "renameGroup"
)

// 服务端下行事件
const (
	EventMessageReceived       = "messageReceived"
	EventMessageRequest        = "messageRequest"
	EventRoomCreated           = "roomCreated"
	EventUserOnlineStatus      = "userOnlineStatus"
	EventRecipientBlockedUsers = "recipientBlockedUsers"
	EventMembershipChanged     = "membershipChanged"
	EventError                 = "error"
)

// Event 统一的事件信封：事件名 + 强类型负载，在分发入口完成校验
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Marshal 组装一条下行事件
func Marshal(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return json.Marshal(Event{Event: event, Data: data})
}

// ---- 上行负载 ----

type PrivateMessagePayload struct {
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
}

type GroupMessagePayload struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

type JoinConversationsPayload struct {
	ConversationIDs []string `json:"conversation_ids"`
}

type TypingPayload struct {
	ConversationID string `json:"conversation_id"`
}

type TargetUserPayload struct {
	UserID string `json:"user_id"`
}

type CreateGroupPayload struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

type MembersPayload struct {
	ConversationID string   `json:"conversation_id"`
	MemberIDs      []string `json:"member_ids"`
}

type LeaveGroupPayload struct {
	ConversationID string `json:"conversation_id"`
}

type RenameGroupPayload struct {
	ConversationID string `json:"conversation_id"`
	Name           string `json:"name"`
}

// ---- 下行负载 ----

// ConversationView 会话及其成员，发给首次收到会话的客户端
type ConversationView struct {
	models.Conversation
	Participants []models.ConversationParticipant `json:"participants"`
}

type MessageReceivedPayload struct {
	Message        models.Message `json:"message"`
	ConversationID string         `json:"conversation_id"`
}

// MessageRequestPayload 收信方第一次遇到这个会话时下发，附带完整会话信息
type MessageRequestPayload struct {
	Message      models.Message   `json:"message"`
	Conversation ConversationView `json:"conversation"`
}

type RoomCreatedPayload struct {
	Conversation ConversationView `json:"conversation"`
}

type UserOnlineStatusPayload struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

type OnlineContactsPayload struct {
	Users []models.User `json:"users"`
}

type RecipientBlockedUsersPayload struct {
	UserID       string   `json:"user_id"`
	BlockedUsers []string `json:"blocked_users"`
}

type MembershipChangedPayload struct {
	ConversationID string   `json:"conversation_id"`
	Action         string   `json:"action"` // "added"|"removed"|"left"|"renamed"
	ActorID        string   `json:"actor_id"`
	UserIDs        []string `json:"user_ids,omitempty"`
	Name           string   `json:"name,omitempty"`
}

type TypingStatusPayload struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Typing         bool   `json:"typing"`
}

type ErrorPayload struct {
	Event   string `json:"event,omitempty"` // 触发错误的上行事件
	Code    string `json:"code"`
	Message string `json:"message"`
}
