package services

import (
	"log"
	"sync"
)

// ConnectionRegistry 用户与在线连接的唯一事实来源。
// 记账一律以连接 ID 为键：同一用户快速重连时，旧连接的注销
// 只会摘掉自己那条记录，不会误伤新连接。
type ConnectionRegistry struct {
	mu     sync.RWMutex
	byConn map[string]*Client            // connectionID -> client
	byUser map[string]map[string]*Client // userID -> connectionID -> client
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		byConn: make(map[string]*Client),
		byUser: make(map[string]map[string]*Client),
	}
}

func (r *ConnectionRegistry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byConn[c.ConnectionID] = c
	conns, ok := r.byUser[c.UserID]
	if !ok {
		conns = make(map[string]*Client)
		r.byUser[c.UserID] = conns
	}
	conns[c.ConnectionID] = c
}

// Unregister 幂等注销，返回被移除的连接；连接不存在时返回 nil
func (r *ConnectionRegistry) Unregister(connectionID string) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byConn[connectionID]
	if !ok {
		// 重复注销按日志处理，不视为故障
		log.Println("Unregister of unknown connection:", connectionID)
		return nil
	}
	delete(r.byConn, connectionID)
	if conns, ok := r.byUser[c.UserID]; ok {
		delete(conns, connectionID)
		if len(conns) == 0 {
			delete(r.byUser, c.UserID)
		}
	}
	return c
}

func (r *ConnectionRegistry) Get(connectionID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byConn[connectionID]
	return c, ok
}

// ConnectionsOf 返回该用户当前所有连接的快照
func (r *ConnectionRegistry) ConnectionsOf(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := r.byUser[userID]
	out := make([]*Client, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

// IsOnline 连接集非空即在线，多端登录下任一连接存活都算在线
func (r *ConnectionRegistry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// PushToUser 向该用户的全部连接投递，excludeConnectionID 可为空
func (r *ConnectionRegistry) PushToUser(userID string, msg []byte, excludeConnectionID string) {
	for _, c := range r.ConnectionsOf(userID) {
		if c.ConnectionID == excludeConnectionID {
			continue
		}
		c.Push(msg)
	}
}
