package services

import (
	"log"
	"time"

	"github.com/google/uuid"

	"chat-server/models"
	"chat-server/store"
)

// MessageRouter 消息路由：校验、懒建会话、持久化、向房间扇出。
// 顺序保证依赖存储层的原子追加：先持久化，成功后才扇出。
type MessageRouter struct {
	conversations store.ConversationStore
	users         store.UserStore
	registry      *ConnectionRegistry
	rooms         *RoomManager
	blocks        *BlockGate
}

func NewMessageRouter(conversations store.ConversationStore, users store.UserStore,
	registry *ConnectionRegistry, rooms *RoomManager, blocks *BlockGate) *MessageRouter {
	return &MessageRouter{
		conversations: conversations,
		users:         users,
		registry:      registry,
		rooms:         rooms,
		blocks:        blocks,
	}
}

// Delivery 一次成功投递的结果
type Delivery struct {
	Conversation *models.Conversation
	Message      *models.Message
	Created      bool // 本次发送完成了首次联系（新建会话，或为空会话补齐首次联系的副作用）
}

// SendPrivate 私聊发送。originConnectionID 是发送方发起本次
// 发送的连接，扇出时排除；发送方断开不影响持久化完成。
func (r *MessageRouter) SendPrivate(senderID, recipientID, content, originConnectionID string) (*Delivery, error) {
	if senderID == recipientID || content == "" {
		return nil, ErrInvalidState
	}
	// 拉黑是硬失败，直接报给发送方，而不是静默丢弃
	if err := r.blocks.CheckBlocked(senderID, recipientID); err != nil {
		return nil, err
	}
	recipient, err := r.users.FindUser(recipientID)
	if err != nil {
		return nil, storageErr("find recipient", err)
	}
	if recipient == nil {
		return nil, ErrNotFound
	}

	// 精确匹配 {两人, kind=personal}，包含两人的群聊不会被当成私聊
	conv, err := r.conversations.FindPersonalConversation(senderID, recipientID)
	if err != nil {
		return nil, storageErr("find personal conversation", err)
	}

	created := false
	if conv == nil {
		// 原子创建，无序对唯一键兜底并发互发
		conv, created, err = r.conversations.CreateConversation(store.CreateConversationSpec{
			Kind: models.KindPersonal,
			Participants: []models.ConversationParticipant{
				{UserID: senderID, Role: models.RoleMember},
				{UserID: recipientID, Role: models.RoleMember},
			},
		})
		if err != nil {
			return nil, storageErr("create conversation", err)
		}
	}

	// 建会话成功但首条消息落库失败时客户端会重试：重试命中的是
	// 一条还没有任何消息的既有会话，首次联系的副作用必须补上，
	// 否则联系人永远建立不起来、接收方也无从得知会话存在
	firstContact := created || conv.LastMessageAt == nil

	msg := &models.Message{
		MessageID: uuid.NewString(),
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := r.conversations.AppendMessage(conv.ConversationID, msg); err != nil {
		return nil, storageErr("append message", err)
	}

	if firstContact {
		return r.finishFirstContact(senderID, recipientID, conv, msg, originConnectionID)
	}

	r.rooms.FanOutEvent(conv.ConversationID, senderID, EventMessageReceived,
		MessageReceivedPayload{Message: *msg, ConversationID: conv.ConversationID}, originConnectionID)
	return &Delivery{Conversation: conv, Message: msg}, nil
}

// finishFirstContact 首次联系的副作用：双向登记联系人（幂等），
// 先通知发送方其他连接有了新房间，再把消息作为 messageRequest
// 发给接收方的连接
func (r *MessageRouter) finishFirstContact(senderID, recipientID string, conv *models.Conversation, msg *models.Message, originConnectionID string) (*Delivery, error) {
	// 联系人关系在首次私聊成功后建立
	if err := r.users.AddMutualContacts(senderID, recipientID); err != nil {
		log.Println("Failed to register contacts:", err)
	}

	view := ConversationView{Conversation: *conv}
	if participants, err := r.conversations.ParticipantsOf(conv.ConversationID); err == nil {
		view.Participants = participants
	}

	// 发起连接自动入房；发送方的其他标签页收到 roomCreated 后自行订阅
	r.rooms.Subscribe(originConnectionID, conv.ConversationID)
	if roomMsg, err := Marshal(EventRoomCreated, RoomCreatedPayload{Conversation: view}); err == nil {
		r.registry.PushToUser(senderID, roomMsg, originConnectionID)
	}

	// 接收方还没有这个房间，消息连同会话整体下发
	if reqMsg, err := Marshal(EventMessageRequest, MessageRequestPayload{Message: *msg, Conversation: view}); err == nil {
		r.registry.PushToUser(recipientID, reqMsg, "")
	}

	return &Delivery{Conversation: conv, Message: msg, Created: true}, nil
}

// SendGroup 群聊发送。不隐式建房，群只能显式创建
func (r *MessageRouter) SendGroup(senderID, conversationID, content, originConnectionID string) (*Delivery, error) {
	if content == "" {
		return nil, ErrInvalidState
	}
	conv, err := r.conversations.FindConversation(conversationID)
	if err != nil {
		return nil, storageErr("find conversation", err)
	}
	if conv == nil {
		return nil, ErrNotFound
	}

	participants, err := r.conversations.ParticipantsOf(conversationID)
	if err != nil {
		return nil, storageErr("load participants", err)
	}
	if !containsParticipant(participants, senderID) {
		return nil, ErrForbidden
	}

	msg := &models.Message{
		MessageID: uuid.NewString(),
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := r.conversations.AppendMessage(conversationID, msg); err != nil {
		return nil, storageErr("append message", err)
	}
	r.rooms.FanOutEvent(conversationID, senderID, EventMessageReceived,
		MessageReceivedPayload{Message: *msg, ConversationID: conversationID}, originConnectionID)
	return &Delivery{Conversation: conv, Message: msg}, nil
}

func containsParticipant(participants []models.ConversationParticipant, userID string) bool {
	for _, p := range participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
