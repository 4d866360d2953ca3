package services

import (
	"encoding/json"
	"log"

	"chat-server/store"
)

// Hub 把各组件攒在一起，并用单一分发表按事件名路由上行事件。
// 注册/注销走通道由 Run 串行处理（单写者），上行事件在各连接的
// 读协程里并发处理，顺序由存储层的原子追加兜底。
type Hub struct {
	Registry *ConnectionRegistry
	Rooms    *RoomManager
	Presence *PresenceTracker
	Router   *MessageRouter
	Groups   *GroupManager
	Blocks   *BlockGate
	Typing   *TypingCoordinator

	conversations store.ConversationStore

	register   chan *Client
	unregister chan *Client
	handlers   map[string]handlerFunc
}

type handlerFunc func(c *Client, data json.RawMessage) error

var hub *Hub

// InitHub 装配全局 Hub，main 启动时调用一次
func InitHub(conversations store.ConversationStore, users store.UserStore) *Hub {
	hub = NewHub(conversations, users)
	return hub
}

// GetHub 返回全局 Hub
func GetHub() *Hub {
	return hub
}

func NewHub(conversations store.ConversationStore, users store.UserStore) *Hub {
	registry := NewConnectionRegistry()
	blocks := NewBlockGate(users, registry)
	rooms := NewRoomManager(registry, blocks)

	h := &Hub{
		Registry:      registry,
		Rooms:         rooms,
		Presence:      NewPresenceTracker(registry, users),
		Router:        NewMessageRouter(conversations, users, registry, rooms, blocks),
		Groups:        NewGroupManager(conversations, registry, rooms),
		Blocks:        blocks,
		Typing:        NewTypingCoordinator(rooms),
		conversations: conversations,
		register:      make(chan *Client),
		unregister:    make(chan *Client),
	}
	h.handlers = map[string]handlerFunc{
		EventIsOnline:           h.handleIsOnline,
		EventOnlineContacts:     h.handleOnlineContacts,
		EventJoinConversations:  h.handleJoinConversations,
		EventSendPrivateMessage: h.handleSendPrivateMessage,
		EventSendGroupMessage:   h.handleSendGroupMessage,
		EventTyping:             h.handleTyping,
		EventStoppedTyping:      h.handleStoppedTyping,
		EventCheckBlockedUser:   h.handleCheckBlockedUser,
		EventBlockUser:          h.handleBlockUser,
		EventUnblockUser:        h.handleUnblockUser,
		EventCreateGroup:        h.handleCreateGroup,
		EventAddMembers:         h.handleAddMembers,
		EventRemoveMembers:      h.handleRemoveMembers,
		EventLeaveGroup:         h.handleLeaveGroup,
		EventRenameGroup:        h.handleRenameGroup,
	}
	return h
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		}
	}
}

// OnConnect 传输层建立连接后调用
func (h *Hub) OnConnect(c *Client) {
	h.register <- c
}

// OnDisconnect 传输层连接关闭后调用，重复调用是安全的
func (h *Hub) OnDisconnect(c *Client) {
	h.unregister <- c
}

func (h *Hub) addClient(c *Client) {
	h.Registry.Register(c)
	log.Println("🔵 New client connected:", c.UserID, c.ConnectionID)
}

// removeClient 注销连接。房间订阅必须在连接被丢弃前同步清掉，
// 离线广播放在最后，它失败不影响清理
func (h *Hub) removeClient(c *Client) {
	removed := h.Registry.Unregister(c.ConnectionID)
	if removed == nil {
		return
	}
	h.Rooms.UnsubscribeAll(c.ConnectionID)
	c.closeSend()
	log.Println("🔴 Client disconnected:", c.UserID, c.ConnectionID)
	h.Presence.AnnounceOffline(c.UserID)
}

// Dispatch 解析事件信封并路由到对应 handler。
// 业务错误统一映射成 error 事件回给发起方
func (h *Hub) Dispatch(c *Client, raw []byte) {
	var evt Event
	if err := json.Unmarshal(raw, &evt); err != nil {
		log.Println("Invalid event envelope from", c.ConnectionID, ":", err)
		h.sendError(c, "", ErrInvalidState)
		return
	}
	handler, ok := h.handlers[evt.Event]
	if !ok {
		log.Println("Unknown event:", evt.Event)
		return
	}
	if err := handler(c, evt.Data); err != nil {
		h.sendError(c, evt.Event, err)
	}
}

func (h *Hub) sendError(c *Client, event string, err error) {
	c.PushEvent(EventError, ErrorPayload{
		Event:   event,
		Code:    ErrorCode(err),
		Message: err.Error(),
	})
}
