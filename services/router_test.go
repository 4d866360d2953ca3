package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-server/models"
)

func TestRouter_FirstContact_CreatesSinglePersonalConversation(t *testing.T) {
	h, convs, users := newTestEnv()
	users.addUser("alice", "alice")
	users.addUser("bob", "bob")

	aliceTab1 := connect(h, "alice")
	aliceTab2 := connect(h, "alice")
	bob := connect(h, "bob")

	delivery, err := h.Router.SendPrivate("alice", "bob", "hi", aliceTab1.ConnectionID)
	require.NoError(t, err)
	require.True(t, delivery.Created)
	require.Equal(t, models.KindPersonal, delivery.Conversation.Kind)
	require.Equal(t, 1, convs.conversationCount())

	// 首条消息已持久化
	msgs := convs.messagesOf(delivery.Conversation.ConversationID)
	require.Len(t, msgs, 1)
	require.Equal(t, "alice", msgs[0].SenderID)
	require.Equal(t, "hi", msgs[0].Content)

	// 双方成为联系人
	contacts, err := users.ContactsOf("bob")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	require.Equal(t, "alice", contacts[0].ID)

	// 发送方的其他标签页收到 roomCreated，可以自行订阅
	events := drain(aliceTab2)
	evt, ok := findEvent(events, EventRoomCreated)
	require.True(t, ok)
	var room RoomCreatedPayload
	require.NoError(t, json.Unmarshal(evt.Data, &room))
	require.Equal(t, delivery.Conversation.ConversationID, room.Conversation.ConversationID)
	require.Len(t, room.Conversation.Participants, 2)

	// 发起连接不会收到自己的消息
	require.Empty(t, drain(aliceTab1))

	// 接收方收到 messageRequest，带完整会话
	evt, ok = findEvent(drain(bob), EventMessageRequest)
	require.True(t, ok)
	var req MessageRequestPayload
	require.NoError(t, json.Unmarshal(evt.Data, &req))
	require.Equal(t, "hi", req.Message.Content)
	require.Equal(t, "alice", req.Message.SenderID)
	require.Equal(t, delivery.Conversation.ConversationID, req.Conversation.ConversationID)
}

func TestRouter_ReverseDirection_ReusesConversation(t *testing.T) {
	h, convs, users := newTestEnv()
	users.addUser("alice", "alice")
	users.addUser("bob", "bob")

	alice := connect(h, "alice")
	bob := connect(h, "bob")

	first, err := h.Router.SendPrivate("alice", "bob", "hi", alice.ConnectionID)
	require.NoError(t, err)

	// 反向发送复用同一个会话，而不是再建一个
	second, err := h.Router.SendPrivate("bob", "alice", "hello", bob.ConnectionID)
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, first.Conversation.ConversationID, second.Conversation.ConversationID)
	require.Equal(t, 1, convs.conversationCount())
	require.Len(t, convs.messagesOf(first.Conversation.ConversationID), 2)
}

// 私聊查找必须精确匹配 {两人, kind=personal}，
// 恰好包含两人的群聊不能被复用成私聊
func TestRouter_PersonalLookup_IgnoresGroups(t *testing.T) {
	h, convs, users := newTestEnv()
	users.addUser("alice", "alice")
	users.addUser("bob", "bob")

	alice := connect(h, "alice")

	group, err := h.Groups.CreateGroup("alice", "pair group", []string{"bob"})
	require.NoError(t, err)

	delivery, err := h.Router.SendPrivate("alice", "bob", "hi", alice.ConnectionID)
	require.NoError(t, err)
	require.True(t, delivery.Created)
	require.NotEqual(t, group.ConversationID, delivery.Conversation.ConversationID)
	require.Equal(t, 2, convs.conversationCount())
}

func TestRouter_Blocked_BothDirectionsRejected(t *testing.T) {
	h, _, users := newTestEnv()
	users.addUser("alice", "alice")
	users.addUser("bob", "bob")

	alice := connect(h, "alice")
	bob := connect(h, "bob")

	require.NoError(t, h.Blocks.Block("alice", "bob"))

	_, err := h.Router.SendPrivate("alice", "bob", "x", alice.ConnectionID)
	require.ErrorIs(t, err, ErrBlocked)
	_, err = h.Router.SendPrivate("bob", "alice", "x", bob.ConnectionID)
	require.ErrorIs(t, err, ErrBlocked)

	// 解除拉黑后双向恢复
	require.NoError(t, h.Blocks.Unblock("alice", "bob"))
	_, err = h.Router.SendPrivate("alice", "bob", "x", alice.ConnectionID)
	require.NoError(t, err)
	_, err = h.Router.SendPrivate("bob", "alice", "x", bob.ConnectionID)
	require.NoError(t, err)
}

func TestRouter_SendPrivate_UnknownRecipient(t *testing.T) {
	h, _, users := newTestEnv()
	users.addUser("alice", "alice")
	alice := connect(h, "alice")

	_, err := h.Router.SendPrivate("alice", "ghost", "hi", alice.ConnectionID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRouter_SendGroup_RequiresMembership(t *testing.T) {
	h, _, users := newTestEnv()
	users.addUser("alice", "alice")
	users.addUser("bob", "bob")
	users.addUser("mallory", "mallory")

	mallory := connect(h, "mallory")

	group, err := h.Groups.CreateGroup("alice", "team", []string{"bob"})
	require.NoError(t, err)

	_, err = h.Router.SendGroup("mallory", group.ConversationID, "hi", mallory.ConnectionID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = h.Router.SendGroup("mallory", "no-such-conversation", "hi", mallory.ConnectionID)
	require.ErrorIs(t, err, ErrNotFound)
}

// 持久化失败的消息绝不扇出，错误带 StorageError 分类报给调用方
func TestRouter_StorageFailure_NoFanOut(t *testing.T) {
	h, convs, users := newTestEnv()
	users.addUser("alice", "alice")
	users.addUser("bob", "bob")

	alice := connect(h, "alice")
	bob := connect(h, "bob")

	group, err := h.Groups.CreateGroup("alice", "team", []string{"bob"})
	require.NoError(t, err)
	h.Rooms.Subscribe(bob.ConnectionID, group.ConversationID)
	drain(bob)

	convs.failAppend = true
	_, err = h.Router.SendGroup("alice", group.ConversationID, "lost", alice.ConnectionID)
	require.Error(t, err)
	require.Equal(t, "StorageError", ErrorCode(err))
	require.Empty(t, drain(bob))
}

// 订阅方观察到的消息顺序与持久化顺序一致
func TestRouter_DeliveryMatchesPersistedOrder(t *testing.T) {
	h, convs, users := newTestEnv()
	users.addUser("alice", "alice")
	users.addUser("bob", "bob")

	alice := connect(h, "alice")
	bob := connect(h, "bob")

	group, err := h.Groups.CreateGroup("alice", "team", []string{"bob"})
	require.NoError(t, err)
	h.Rooms.Subscribe(bob.ConnectionID, group.ConversationID)
	drain(bob)

	contents := []string{"one", "two", "three"}
	for _, content := range contents {
		_, err := h.Router.SendGroup("alice", group.ConversationID, content, alice.ConnectionID)
		require.NoError(t, err)
	}

	persisted := convs.messagesOf(group.ConversationID)
	require.Len(t, persisted, 3)
	for i := 1; i < len(persisted); i++ {
		require.Less(t, persisted[i-1].ID, persisted[i].ID)
		require.False(t, persisted[i].CreatedAt.Before(persisted[i-1].CreatedAt))
	}

	var received []string
	for _, evt := range drain(bob) {
		if evt.Event != EventMessageReceived {
			continue
		}
		var payload MessageReceivedPayload
		require.NoError(t, json.Unmarshal(evt.Data, &payload))
		received = append(received, payload.Message.Content)
	}
	require.Equal(t, contents, received)
}

// 建会话成功但首条消息落库失败：重试命中的是一条空会话，
// 首次联系的副作用（联系人、messageRequest）必须补齐
func TestRouter_RetryAfterFailedFirstAppend_CompletesFirstContact(t *testing.T) {
	h, convs, users := newTestEnv()
	users.addUser("alice", "alice")
	users.addUser("bob", "bob")

	alice := connect(h, "alice")
	bob := connect(h, "bob")

	convs.failAppend = true
	_, err := h.Router.SendPrivate("alice", "bob", "hi", alice.ConnectionID)
	require.Error(t, err)
	require.Equal(t, "StorageError", ErrorCode(err))

	// 会话已经建出来，但消息没落库，副作用也没发生
	require.Equal(t, 1, convs.conversationCount())
	contacts, err := users.ContactsOf("bob")
	require.NoError(t, err)
	require.Empty(t, contacts)
	require.Empty(t, drain(bob))

	convs.failAppend = false
	delivery, err := h.Router.SendPrivate("alice", "bob", "hi", alice.ConnectionID)
	require.NoError(t, err)
	require.True(t, delivery.Created)
	require.Equal(t, 1, convs.conversationCount())
	require.Len(t, convs.messagesOf(delivery.Conversation.ConversationID), 1)

	// 重试成功后联系人建立
	contacts, err = users.ContactsOf("bob")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	require.Equal(t, "alice", contacts[0].ID)

	// 接收方也等到了 messageRequest
	evt, ok := findEvent(drain(bob), EventMessageRequest)
	require.True(t, ok)
	var req MessageRequestPayload
	require.NoError(t, json.Unmarshal(evt.Data, &req))
	require.Equal(t, "hi", req.Message.Content)
	require.Equal(t, delivery.Conversation.ConversationID, req.Conversation.ConversationID)
}

func TestRouter_SendToSelf_Rejected(t *testing.T) {
	h, _, users := newTestEnv()
	users.addUser("alice", "alice")
	alice := connect(h, "alice")

	_, err := h.Router.SendPrivate("alice", "alice", "hi", alice.ConnectionID)
	require.ErrorIs(t, err, ErrInvalidState)
}
