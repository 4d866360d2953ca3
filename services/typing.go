package services

// TypingCoordinator 输入状态广播。纯瞬态：不落库、不重试、无应答，
// 只把客户端上报的状态转发给房间里除发送方之外的连接。
// 停止输入的静默期由客户端自己掐表，服务端不做超时记账。
type TypingCoordinator struct {
	rooms *RoomManager
}

func NewTypingCoordinator(rooms *RoomManager) *TypingCoordinator {
	return &TypingCoordinator{rooms: rooms}
}

func (t *TypingCoordinator) SetTyping(conversationID, userID string, typing bool, originConnectionID string) {
	event := EventTyping
	if !typing {
		event = EventStoppedTyping
	}
	t.rooms.FanOutEvent(conversationID, userID, event, TypingStatusPayload{
		ConversationID: conversationID,
		UserID:         userID,
		Typing:         typing,
	}, originConnectionID)
}
