package services

import (
	"log"

	"chat-server/store"
)

// BlockGate 拉黑关系闸门。存储上单向（只写拉黑发起人的名单），
// 效果上双向：任一方向存在记录，双方都不能互发消息。
// 拉黑不删历史、不动房间成员，只拦截后续发送与实时扇出。
type BlockGate struct {
	users    store.UserStore
	registry *ConnectionRegistry
}

func NewBlockGate(users store.UserStore, registry *ConnectionRegistry) *BlockGate {
	return &BlockGate{users: users, registry: registry}
}

// IsBlocked 任一方向拉黑即为 true。扇出路径上查询失败按未拉黑
// 处理并记日志，被动投递本来就是尽力而为
func (g *BlockGate) IsBlocked(userA, userB string) bool {
	blocked, err := g.users.IsBlockedEither(userA, userB)
	if err != nil {
		log.Println("Failed to check block relationship:", err)
		return false
	}
	return blocked
}

// CheckBlocked 发送路径上的硬校验，存储故障向调用方报错
func (g *BlockGate) CheckBlocked(senderID, recipientID string) error {
	blocked, err := g.users.IsBlockedEither(senderID, recipientID)
	if err != nil {
		return storageErr("block check", err)
	}
	if blocked {
		return ErrBlocked
	}
	return nil
}

func (g *BlockGate) Block(userID, targetID string) error {
	if userID == targetID {
		return ErrInvalidState
	}
	err := g.users.UpdateBlockSet(userID, store.BlockMutation{Add: []string{targetID}})
	if err != nil {
		return storageErr("block", err)
	}
	g.notifyCounterpart(userID, targetID)
	return nil
}

func (g *BlockGate) Unblock(userID, targetID string) error {
	err := g.users.UpdateBlockSet(userID, store.BlockMutation{Remove: []string{targetID}})
	if err != nil {
		return storageErr("unblock", err)
	}
	g.notifyCounterpart(userID, targetID)
	return nil
}

// notifyCounterpart 只推给受影响的对端连接，打开中的会话
// 视图可以立即置灰发送按钮
func (g *BlockGate) notifyCounterpart(userID, targetID string) {
	blockedUsers, err := g.users.BlockedBy(userID)
	if err != nil {
		log.Println("Failed to load blocked list:", err)
		return
	}
	msg, err := Marshal(EventRecipientBlockedUsers, RecipientBlockedUsersPayload{
		UserID:       userID,
		BlockedUsers: blockedUsers,
	})
	if err != nil {
		return
	}
	g.registry.PushToUser(targetID, msg, "")
}

// BlockedBy 查询某用户的拉黑名单（checkBlockedUser 事件用）
func (g *BlockGate) BlockedBy(userID string) ([]string, error) {
	ids, err := g.users.BlockedBy(userID)
	if err != nil {
		return nil, storageErr("blocked list", err)
	}
	return ids, nil
}
