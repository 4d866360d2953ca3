package services

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pingInterval = 10 * time.Second // 发送 Ping 的间隔
	pongTimeout  = 15 * time.Second // 超过 15 秒未收到 Pong 断开连接
	sendBuffer   = 64
)

// Client 代表一个 WebSocket 连接。连接是短命的传输句柄，
// 从不落库；注册表以 ConnectionID 为准做所有记账。
type Client struct {
	ConnectionID string
	UserID       string
	Conn         *websocket.Conn
	Send         chan []byte

	mu       sync.Mutex
	lastPong time.Time
	closed   bool
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		ConnectionID: uuid.NewString(),
		UserID:       userID,
		Conn:         conn,
		Send:         make(chan []byte, sendBuffer),
		lastPong:     time.Now(),
	}
}

// Push 非阻塞投递，连接已关闭或通道已满时丢弃并返回 false
func (c *Client) Push(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
		log.Println("Send buffer full, dropping message for connection:", c.ConnectionID)
		return false
	}
}

// PushEvent 组装事件信封后投递
func (c *Client) PushEvent(event string, payload interface{}) bool {
	msg, err := Marshal(event, payload)
	if err != nil {
		log.Println("Failed to marshal event:", event, err)
		return false
	}
	return c.Push(msg)
}

// closeSend 幂等关闭发送通道，写协程随之退出
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

func (c *Client) markPong() {
	c.mu.Lock()
	c.lastPong = time.Now()
	c.mu.Unlock()
}

func (c *Client) pongExpired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastPong) > pongTimeout
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// ReadMessages 读协程：心跳应答直接消化，其余交给 Hub 分发。
// 连接断开后通过 Hub 注销自己。
func (c *Client) ReadMessages(h *Hub) {
	defer func() {
		h.OnDisconnect(c)
		if c.Conn != nil {
			c.Conn.Close()
		}
	}()
	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			break
		}
		if string(msg) == "pong" {
			c.markPong()
			continue
		}
		h.Dispatch(c, msg)
	}
}

// WriteMessages 写协程：Send 被关闭后退出并关闭底层连接
func (c *Client) WriteMessages() {
	for msg := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
	c.Conn.Close()
}

// StartHeartbeat 周期发送 ping，pong 超时则关闭连接，
// 由读协程触发注销
func (c *Client) StartHeartbeat() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		if c.isClosed() {
			return
		}
		if c.pongExpired() {
			log.Println("Client timeout, closing connection:", c.ConnectionID)
			c.Conn.Close()
			return
		}
		c.Push([]byte("ping"))
	}
}
