package services

import (
	"encoding/json"
	"log"
)

// 上行事件的处理函数。负载在这里完成解码与校验，
// 组件内部只接受干净的参数。

func (h *Hub) handleIsOnline(c *Client, _ json.RawMessage) error {
	h.Presence.AnnounceOnline(c.UserID)
	return h.replyOnlineContacts(c)
}

func (h *Hub) handleOnlineContacts(c *Client, _ json.RawMessage) error {
	return h.replyOnlineContacts(c)
}

func (h *Hub) replyOnlineContacts(c *Client) error {
	online, err := h.Presence.OnlineContactsOf(c.UserID)
	if err != nil {
		return err
	}
	c.PushEvent(EventOnlineContacts, OnlineContactsPayload{Users: online})
	return nil
}

// handleJoinConversations 连接订阅自己已经属于的会话。
// 不是成员的会话直接跳过，不报错
func (h *Hub) handleJoinConversations(c *Client, data json.RawMessage) error {
	var payload JoinConversationsPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return ErrInvalidState
	}
	for _, conversationID := range payload.ConversationIDs {
		participants, err := h.conversations.ParticipantsOf(conversationID)
		if err != nil {
			log.Println("Failed to load participants for join:", err)
			continue
		}
		if !containsParticipant(participants, c.UserID) {
			log.Println("Join rejected, not a participant:", c.UserID, conversationID)
			continue
		}
		h.Rooms.Subscribe(c.ConnectionID, conversationID)
	}
	return nil
}

func (h *Hub) handleSendPrivateMessage(c *Client, data json.RawMessage) error {
	var payload PrivateMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RecipientID == "" {
		return ErrInvalidState
	}
	_, err := h.Router.SendPrivate(c.UserID, payload.RecipientID, payload.Content, c.ConnectionID)
	return err
}

func (h *Hub) handleSendGroupMessage(c *Client, data json.RawMessage) error {
	var payload GroupMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		return ErrInvalidState
	}
	_, err := h.Router.SendGroup(c.UserID, payload.ConversationID, payload.Content, c.ConnectionID)
	return err
}

func (h *Hub) handleTyping(c *Client, data json.RawMessage) error {
	return h.relayTyping(c, data, true)
}

func (h *Hub) handleStoppedTyping(c *Client, data json.RawMessage) error {
	return h.relayTyping(c, data, false)
}

func (h *Hub) relayTyping(c *Client, data json.RawMessage, typing bool) error {
	var payload TypingPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		return ErrInvalidState
	}
	h.Typing.SetTyping(payload.ConversationID, c.UserID, typing, c.ConnectionID)
	return nil
}

// handleCheckBlockedUser 查询对方的拉黑名单，发回请求连接，
// 客户端据此决定会话视图里发送按钮的可用性
func (h *Hub) handleCheckBlockedUser(c *Client, data json.RawMessage) error {
	var payload TargetUserPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UserID == "" {
		return ErrInvalidState
	}
	blockedUsers, err := h.Blocks.BlockedBy(payload.UserID)
	if err != nil {
		return err
	}
	c.PushEvent(EventRecipientBlockedUsers, RecipientBlockedUsersPayload{
		UserID:       payload.UserID,
		BlockedUsers: blockedUsers,
	})
	return nil
}

func (h *Hub) handleBlockUser(c *Client, data json.RawMessage) error {
	var payload TargetUserPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UserID == "" {
		return ErrInvalidState
	}
	return h.Blocks.Block(c.UserID, payload.UserID)
}

func (h *Hub) handleUnblockUser(c *Client, data json.RawMessage) error {
	var payload TargetUserPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UserID == "" {
		return ErrInvalidState
	}
	return h.Blocks.Unblock(c.UserID, payload.UserID)
}

func (h *Hub) handleCreateGroup(c *Client, data json.RawMessage) error {
	var payload CreateGroupPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return ErrInvalidState
	}
	_, err := h.Groups.CreateGroup(c.UserID, payload.Name, payload.MemberIDs)
	return err
}

func (h *Hub) handleAddMembers(c *Client, data json.RawMessage) error {
	var payload MembersPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		return ErrInvalidState
	}
	return h.Groups.AddMembers(payload.ConversationID, c.UserID, payload.MemberIDs)
}

func (h *Hub) handleRemoveMembers(c *Client, data json.RawMessage) error {
	var payload MembersPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		return ErrInvalidState
	}
	return h.Groups.RemoveMembers(payload.ConversationID, c.UserID, payload.MemberIDs)
}

func (h *Hub) handleLeaveGroup(c *Client, data json.RawMessage) error {
	var payload LeaveGroupPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		return ErrInvalidState
	}
	return h.Groups.LeaveGroup(payload.ConversationID, c.UserID)
}

func (h *Hub) handleRenameGroup(c *Client, data json.RawMessage) error {
	var payload RenameGroupPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		return ErrInvalidState
	}
	return h.Groups.RenameGroup(payload.ConversationID, c.UserID, payload.Name)
}
