package services

import (
	"sync"
)

// RoomManager 维护会话到订阅连接的映射（即"房间"）。
// 订阅按连接而不是按用户：同一用户开两个标签页订阅同一房间，
// 两个连接都会收到事件，除非被显式排除。
// 这里只持有连接 ID 弱引用，连接销毁时必须先 UnsubscribeAll。
type RoomManager struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]struct{} // conversationID -> set(connectionID)
	byConn map[string]map[string]struct{} // connectionID -> set(conversationID)

	registry *ConnectionRegistry
	blocks   *BlockGate
}

func NewRoomManager(registry *ConnectionRegistry, blocks *BlockGate) *RoomManager {
	return &RoomManager{
		rooms:    make(map[string]map[string]struct{}),
		byConn:   make(map[string]map[string]struct{}),
		registry: registry,
		blocks:   blocks,
	}
}

func (m *RoomManager) Subscribe(connectionID, conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[conversationID]
	if !ok {
		room = make(map[string]struct{})
		m.rooms[conversationID] = room
	}
	room[connectionID] = struct{}{}

	joined, ok := m.byConn[connectionID]
	if !ok {
		joined = make(map[string]struct{})
		m.byConn[connectionID] = joined
	}
	joined[conversationID] = struct{}{}
}

func (m *RoomManager) Unsubscribe(connectionID, conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropLocked(connectionID, conversationID)
}

// UnsubscribeAll 摘掉该连接的全部房间订阅。
// 必须在连接彻底丢弃之前同步执行，避免扇出打到死句柄。
func (m *RoomManager) UnsubscribeAll(connectionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for conversationID := range m.byConn[connectionID] {
		m.dropLocked(connectionID, conversationID)
	}
}

func (m *RoomManager) dropLocked(connectionID, conversationID string) {
	if room, ok := m.rooms[conversationID]; ok {
		delete(room, connectionID)
		if len(room) == 0 {
			delete(m.rooms, conversationID)
		}
	}
	if joined, ok := m.byConn[connectionID]; ok {
		delete(joined, conversationID)
		if len(joined) == 0 {
			delete(m.byConn, connectionID)
		}
	}
}

// UnsubscribeUser 把某用户的所有连接移出一个房间（退群/被移出时用）
func (m *RoomManager) UnsubscribeUser(userID, conversationID string) {
	for _, c := range m.registry.ConnectionsOf(userID) {
		m.Unsubscribe(c.ConnectionID, conversationID)
	}
}

// Subscribers 返回房间订阅连接 ID 的快照
func (m *RoomManager) Subscribers(conversationID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.rooms[conversationID]))
	for connectionID := range m.rooms[conversationID] {
		out = append(out, connectionID)
	}
	return out
}

// FanOut 向房间的全部订阅连接投递一条事件。
// senderID 非空时跳过与发送者存在拉黑关系的接收方（静默丢弃，不入队）；
// excludeConnectionID 用于排除发送者自己的那条连接。
// 先做快照再投递，锁不会跨越任何阻塞调用。
func (m *RoomManager) FanOut(conversationID, senderID string, msg []byte, excludeConnectionID string) {
	for _, connectionID := range m.Subscribers(conversationID) {
		if connectionID == excludeConnectionID {
			continue
		}
		c, ok := m.registry.Get(connectionID)
		if !ok {
			// 订阅先于连接销毁被清理，正常情况下不该走到这里
			m.Unsubscribe(connectionID, conversationID)
			continue
		}
		if senderID != "" && c.UserID != senderID && m.blocks.IsBlocked(senderID, c.UserID) {
			continue
		}
		c.Push(msg)
	}
}

// FanOutEvent 组装信封后扇出
func (m *RoomManager) FanOutEvent(conversationID, senderID, event string, payload interface{}, excludeConnectionID string) {
	msg, err := Marshal(event, payload)
	if err != nil {
		return
	}
	m.FanOut(conversationID, senderID, msg, excludeConnectionID)
}
