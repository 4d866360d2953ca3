package services

import (
	"log"

	"chat-server/models"
	"chat-server/store"
)

// PresenceTracker 在线状态机。
// offline -> online：用户宣告上线且此前为离线；
// online -> offline：只有注册表里该用户的连接清零时才触发，
// 多端登录下断开一个连接不影响在线状态。
type PresenceTracker struct {
	registry *ConnectionRegistry
	users    store.UserStore
}

func NewPresenceTracker(registry *ConnectionRegistry, users store.UserStore) *PresenceTracker {
	return &PresenceTracker{registry: registry, users: users}
}

// AnnounceOnline 客户端宣告上线。粗粒度状态落到 User 表，
// 状态翻转时才向在线联系人广播
func (t *PresenceTracker) AnnounceOnline(userID string) {
	user, err := t.users.FindUser(userID)
	if err != nil {
		log.Println("Failed to load user for presence:", err)
		return
	}
	if user == nil {
		log.Println("Presence announce for unknown user:", userID)
		return
	}
	if user.Status == models.StatusOnline {
		// 第二个标签页上线，不重复广播
		return
	}
	if err := t.users.SetStatus(userID, models.StatusOnline); err != nil {
		log.Println("Failed to persist online status:", err)
	}
	t.broadcastStatus(userID, models.StatusOnline)
}

// AnnounceOffline 连接断开后调用。断开时重新查注册表，
// 还有存活连接就什么都不做
func (t *PresenceTracker) AnnounceOffline(userID string) {
	if t.registry.IsOnline(userID) {
		return
	}
	user, err := t.users.FindUser(userID)
	if err != nil {
		// 查状态失败不能阻塞连接的房间清理
		log.Println("Failed to load user for presence:", err)
		return
	}
	if user == nil || user.Status == models.StatusOffline {
		// 连接从未宣告过上线就断开了，状态没有翻转，不广播
		return
	}
	if err := t.users.SetStatus(userID, models.StatusOffline); err != nil {
		log.Println("Failed to persist offline status:", err)
	}
	t.broadcastStatus(userID, models.StatusOffline)
}

// OnlineContactsOf 返回联系人中当前在线的用户
func (t *PresenceTracker) OnlineContactsOf(userID string) ([]models.User, error) {
	contacts, err := t.users.ContactsOf(userID)
	if err != nil {
		return nil, storageErr("online contacts", err)
	}
	online := make([]models.User, 0, len(contacts))
	for _, contact := range contacts {
		if t.registry.IsOnline(contact.ID) {
			contact.Status = models.StatusOnline
			online = append(online, contact)
		}
	}
	return online, nil
}

// broadcastStatus 状态翻转只通知本人联系人里当前在线的那部分，
// 离线联系人没有推送队列，尽力而为
func (t *PresenceTracker) broadcastStatus(userID, status string) {
	contacts, err := t.users.ContactsOf(userID)
	if err != nil {
		log.Println("Failed to load contacts for presence broadcast:", err)
		return
	}
	msg, err := Marshal(EventUserOnlineStatus, UserOnlineStatusPayload{UserID: userID, Status: status})
	if err != nil {
		return
	}
	for _, contact := range contacts {
		if t.registry.IsOnline(contact.ID) {
			t.registry.PushToUser(contact.ID, msg, "")
		}
	}
}
