package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockGate_EffectIsSymmetric(t *testing.T) {
	h, _, users := newTestEnv()
	users.addUser("alice", "alice")
	users.addUser("bob", "bob")

	require.False(t, h.Blocks.IsBlocked("alice", "bob"))

	// 存储单向，效果双向
	require.NoError(t, h.Blocks.Block("alice", "bob"))
	require.True(t, h.Blocks.IsBlocked("alice", "bob"))
	require.True(t, h.Blocks.IsBlocked("bob", "alice"))

	require.NoError(t, h.Blocks.Unblock("alice", "bob"))
	require.False(t, h.Blocks.IsBlocked("alice", "bob"))
}

func TestBlockGate_SelfBlock_Rejected(t *testing.T) {
	h, _, users := newTestEnv()
	users.addUser("alice", "alice")

	require.ErrorIs(t, h.Blocks.Block("alice", "alice"), ErrInvalidState)
}

// 拉黑/解除只定向通知受影响的对端连接
func TestBlockGate_NotifiesCounterpartConnections(t *testing.T) {
	h, _, users := newTestEnv()
	users.addUser("alice", "alice")
	users.addUser("bob", "bob")
	users.addUser("carol", "carol")

	bob := connect(h, "bob")
	carol := connect(h, "carol")

	require.NoError(t, h.Blocks.Block("alice", "bob"))

	evt, ok := findEvent(drain(bob), EventRecipientBlockedUsers)
	require.True(t, ok)
	var payload RecipientBlockedUsersPayload
	require.NoError(t, json.Unmarshal(evt.Data, &payload))
	require.Equal(t, "alice", payload.UserID)
	require.Equal(t, []string{"bob"}, payload.BlockedUsers)

	// 无关用户不收到任何通知
	require.Empty(t, drain(carol))
}

// 拉黑不清除历史：既有消息原样保留
func TestBlockGate_HistoryRetained(t *testing.T) {
	h, convs, users := newTestEnv()
	users.addUser("alice", "alice")
	users.addUser("bob", "bob")

	bobConn := connect(h, "bob")
	delivery, err := h.Router.SendPrivate("bob", "alice", "hey", bobConn.ConnectionID)
	require.NoError(t, err)

	require.NoError(t, h.Blocks.Block("alice", "bob"))

	_, err = h.Router.SendPrivate("bob", "alice", "x", bobConn.ConnectionID)
	require.ErrorIs(t, err, ErrBlocked)

	msgs := convs.messagesOf(delivery.Conversation.ConversationID)
	require.Len(t, msgs, 1)
	require.Equal(t, "hey", msgs[0].Content)
}
