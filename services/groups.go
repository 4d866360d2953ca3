package services

import (
	"chat-server/models"
	"chat-server/store"
)

// GroupManager 群生命周期：建群、增删成员、退群、改名。
// 创建者固定为 admin；增删成员和改名只有 admin 能做；
// 退群是自助操作。所有变更都向房间扇出 membershipChanged，
// 在线客户端据此更新本地视图，不用整页刷新。
type GroupManager struct {
	conversations store.ConversationStore
	registry      *ConnectionRegistry
	rooms         *RoomManager
}

func NewGroupManager(conversations store.ConversationStore, registry *ConnectionRegistry, rooms *RoomManager) *GroupManager {
	return &GroupManager{conversations: conversations, registry: registry, rooms: rooms}
}

func (g *GroupManager) CreateGroup(creatorID, name string, memberIDs []string) (*models.Conversation, error) {
	if name == "" {
		return nil, ErrInvalidState
	}
	participants := []models.ConversationParticipant{
		{UserID: creatorID, Role: models.RoleAdmin},
	}
	for _, id := range memberIDs {
		if id == creatorID || containsParticipant(participants, id) {
			continue
		}
		participants = append(participants, models.ConversationParticipant{UserID: id, Role: models.RoleMember})
	}
	if len(participants) < 2 {
		return nil, ErrInvalidState
	}

	conv, _, err := g.conversations.CreateConversation(store.CreateConversationSpec{
		Kind:         models.KindGroup,
		Name:         name,
		Participants: participants,
	})
	if err != nil {
		return nil, storageErr("create group", err)
	}

	view := ConversationView{Conversation: *conv, Participants: participants}
	msg, merr := Marshal(EventRoomCreated, RoomCreatedPayload{Conversation: view})
	for _, p := range participants {
		// 创建者的连接直接入房，其余成员收到 roomCreated 后自行订阅
		if p.UserID == creatorID {
			for _, c := range g.registry.ConnectionsOf(creatorID) {
				g.rooms.Subscribe(c.ConnectionID, conv.ConversationID)
			}
		}
		if merr == nil {
			g.registry.PushToUser(p.UserID, msg, "")
		}
	}
	return conv, nil
}

func (g *GroupManager) AddMembers(conversationID, actorID string, memberIDs []string) error {
	conv, participants, err := g.requireGroupAdmin(conversationID, actorID)
	if err != nil {
		return err
	}
	add := make([]models.ConversationParticipant, 0, len(memberIDs))
	for _, id := range memberIDs {
		if containsParticipant(participants, id) {
			continue
		}
		add = append(add, models.ConversationParticipant{UserID: id, Role: models.RoleMember})
	}
	if len(add) == 0 {
		return nil
	}
	if err := g.conversations.UpdateParticipants(conversationID, store.ParticipantMutation{Add: add}); err != nil {
		return storageErr("add members", err)
	}

	// 新成员还没订阅这个房间，扇出到不了他们；
	// 跟建群一样单独推 roomCreated，在线的新成员据此自行订阅
	for i := range add {
		add[i].ConversationID = conversationID
	}
	view := ConversationView{Conversation: *conv, Participants: append(participants, add...)}
	if msg, merr := Marshal(EventRoomCreated, RoomCreatedPayload{Conversation: view}); merr == nil {
		for _, p := range add {
			g.registry.PushToUser(p.UserID, msg, "")
		}
	}

	added := make([]string, len(add))
	for i, p := range add {
		added[i] = p.UserID
	}
	g.rooms.FanOutEvent(conversationID, "", EventMembershipChanged, MembershipChangedPayload{
		ConversationID: conversationID,
		Action:         "added",
		ActorID:        actorID,
		UserIDs:        added,
	}, "")
	return nil
}

func (g *GroupManager) RemoveMembers(conversationID, actorID string, memberIDs []string) error {
	_, participants, err := g.requireGroupAdmin(conversationID, actorID)
	if err != nil {
		return err
	}
	remove := make([]string, 0, len(memberIDs))
	for _, id := range memberIDs {
		if containsParticipant(participants, id) {
			remove = append(remove, id)
		}
	}
	if len(remove) == 0 {
		return nil
	}
	// 群不允许被移空，至少留一个成员
	if len(participants)-len(remove) < 1 {
		return ErrForbidden
	}
	if err := g.conversations.UpdateParticipants(conversationID, store.ParticipantMutation{Remove: remove}); err != nil {
		return storageErr("remove members", err)
	}

	// 先通知房间，再把被移除成员的连接摘出去
	g.rooms.FanOutEvent(conversationID, "", EventMembershipChanged, MembershipChangedPayload{
		ConversationID: conversationID,
		Action:         "removed",
		ActorID:        actorID,
		UserIDs:        remove,
	}, "")
	for _, id := range remove {
		g.rooms.UnsubscribeUser(id, conversationID)
	}
	return nil
}

// LeaveGroup 自助退群，不要求 admin
func (g *GroupManager) LeaveGroup(conversationID, userID string) error {
	_, participants, err := g.loadGroupParticipants(conversationID)
	if err != nil {
		return err
	}
	if !containsParticipant(participants, userID) {
		return ErrForbidden
	}
	if err := g.conversations.UpdateParticipants(conversationID, store.ParticipantMutation{Remove: []string{userID}}); err != nil {
		return storageErr("leave group", err)
	}

	g.rooms.FanOutEvent(conversationID, "", EventMembershipChanged, MembershipChangedPayload{
		ConversationID: conversationID,
		Action:         "left",
		ActorID:        userID,
		UserIDs:        []string{userID},
	}, "")
	g.rooms.UnsubscribeUser(userID, conversationID)
	return nil
}

func (g *GroupManager) RenameGroup(conversationID, actorID, name string) error {
	if name == "" {
		return ErrInvalidState
	}
	if _, _, err := g.requireGroupAdmin(conversationID, actorID); err != nil {
		return err
	}
	if err := g.conversations.RenameConversation(conversationID, name); err != nil {
		return storageErr("rename group", err)
	}
	g.rooms.FanOutEvent(conversationID, "", EventMembershipChanged, MembershipChangedPayload{
		ConversationID: conversationID,
		Action:         "renamed",
		ActorID:        actorID,
		Name:           name,
	}, "")
	return nil
}

func (g *GroupManager) loadGroupParticipants(conversationID string) (*models.Conversation, []models.ConversationParticipant, error) {
	conv, err := g.conversations.FindConversation(conversationID)
	if err != nil {
		return nil, nil, storageErr("find conversation", err)
	}
	if conv == nil {
		return nil, nil, ErrNotFound
	}
	if conv.Kind != models.KindGroup {
		return nil, nil, ErrInvalidState
	}
	participants, err := g.conversations.ParticipantsOf(conversationID)
	if err != nil {
		return nil, nil, storageErr("load participants", err)
	}
	return conv, participants, nil
}

func (g *GroupManager) requireGroupAdmin(conversationID, actorID string) (*models.Conversation, []models.ConversationParticipant, error) {
	conv, participants, err := g.loadGroupParticipants(conversationID)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range participants {
		if p.UserID == actorID {
			if p.Role != models.RoleAdmin {
				return nil, nil, ErrForbidden
			}
			return conv, participants, nil
		}
	}
	return nil, nil, ErrForbidden
}
