package services

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-server/models"
	"chat-server/store"
)

// 内存版存储假件，行为对齐 gorm 实现：
// 未命中返回 (nil, nil)，私聊按无序对键唯一。

type memConversationStore struct {
	mu           sync.Mutex
	convs        map[string]*models.Conversation
	byPair       map[string]string // pairKey -> conversationID
	participants map[string][]models.ConversationParticipant
	messages     map[string][]models.Message
	nextID       uint
	failAppend   bool // 模拟持久层故障
}

func newMemConversationStore() *memConversationStore {
	return &memConversationStore{
		convs:        make(map[string]*models.Conversation),
		byPair:       make(map[string]string),
		participants: make(map[string][]models.ConversationParticipant),
		messages:     make(map[string][]models.Message),
	}
}

func (s *memConversationStore) FindPersonalConversation(userA, userB string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byPair[store.PairKey(userA, userB)]
	if !ok {
		return nil, nil
	}
	conv := *s.convs[id]
	return &conv, nil
}

func (s *memConversationStore) FindConversation(conversationID string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[conversationID]
	if !ok {
		return nil, nil
	}
	out := *conv
	return &out, nil
}

func (s *memConversationStore) CreateConversation(spec store.CreateConversationSpec) (*models.Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := &models.Conversation{
		ConversationID: uuid.NewString(),
		Kind:           spec.Kind,
		Name:           spec.Name,
		AvatarURL:      spec.AvatarURL,
		CreatedAt:      time.Now(),
	}
	if spec.Kind == models.KindPersonal {
		key := store.PairKey(spec.Participants[0].UserID, spec.Participants[1].UserID)
		if existingID, ok := s.byPair[key]; ok {
			// 唯一键兜底：返回已有会话
			existing := *s.convs[existingID]
			return &existing, false, nil
		}
		conv.PairKey = &key
		s.byPair[key] = conv.ConversationID
	}
	s.convs[conv.ConversationID] = conv
	for _, p := range spec.Participants {
		p.ConversationID = conv.ConversationID
		s.participants[conv.ConversationID] = append(s.participants[conv.ConversationID], p)
	}
	out := *conv
	return &out, true, nil
}

func (s *memConversationStore) AppendMessage(conversationID string, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAppend {
		return errors.New("simulated storage failure")
	}
	s.nextID++
	msg.ID = s.nextID
	msg.ConversationID = conversationID
	s.messages[conversationID] = append(s.messages[conversationID], *msg)
	if conv, ok := s.convs[conversationID]; ok {
		now := time.Now()
		conv.LastMessageAt = &now
	}
	return nil
}

func (s *memConversationStore) UpdateParticipants(conversationID string, mut store.ParticipantMutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.participants[conversationID]
	kept := current[:0]
	for _, p := range current {
		removed := false
		for _, id := range mut.Remove {
			if p.UserID == id {
				removed = true
				break
			}
		}
		if !removed {
			kept = append(kept, p)
		}
	}
	for _, p := range mut.Add {
		p.ConversationID = conversationID
		kept = append(kept, p)
	}
	s.participants[conversationID] = kept
	return nil
}

func (s *memConversationStore) RenameConversation(conversationID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.convs[conversationID]; ok {
		conv.Name = name
	}
	return nil
}

func (s *memConversationStore) ParticipantsOf(conversationID string) ([]models.ConversationParticipant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ConversationParticipant, len(s.participants[conversationID]))
	copy(out, s.participants[conversationID])
	return out, nil
}

func (s *memConversationStore) messagesOf(conversationID string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages[conversationID]))
	copy(out, s.messages[conversationID])
	return out
}

func (s *memConversationStore) conversationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}

type memUserStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	contacts map[string]map[string]bool
	blocked  map[string]map[string]bool
}

func newMemUserStore() *memUserStore {
	return &memUserStore{
		users:    make(map[string]*models.User),
		contacts: make(map[string]map[string]bool),
		blocked:  make(map[string]map[string]bool),
	}
}

func (s *memUserStore) addUser(id, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = &models.User{ID: id, Username: username, Status: models.StatusOffline}
}

func (s *memUserStore) FindUser(userID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	out := *user
	return &out, nil
}

func (s *memUserStore) SetStatus(userID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[userID]; ok {
		user.Status = status
	}
	return nil
}

func (s *memUserStore) AddMutualContacts(userA, userB string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addContactLocked(userA, userB)
	s.addContactLocked(userB, userA)
	return nil
}

func (s *memUserStore) addContactLocked(userID, contactID string) {
	if s.contacts[userID] == nil {
		s.contacts[userID] = make(map[string]bool)
	}
	s.contacts[userID][contactID] = true
}

func (s *memUserStore) ContactsOf(userID string) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for contactID := range s.contacts[userID] {
		if user, ok := s.users[contactID]; ok {
			out = append(out, *user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memUserStore) UpdateBlockSet(userID string, mut store.BlockMutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blocked[userID] == nil {
		s.blocked[userID] = make(map[string]bool)
	}
	for _, id := range mut.Add {
		s.blocked[userID][id] = true
	}
	for _, id := range mut.Remove {
		delete(s.blocked[userID], id)
	}
	return nil
}

func (s *memUserStore) IsBlockedEither(userA, userB string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocked[userA][userB] || s.blocked[userB][userA], nil
}

func (s *memUserStore) BlockedBy(userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id := range s.blocked[userID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// ---- 测试辅助 ----

func newTestEnv() (*Hub, *memConversationStore, *memUserStore) {
	convs := newMemConversationStore()
	users := newMemUserStore()
	return NewHub(convs, users), convs, users
}

// connect 建一个没有底层 websocket 的连接并注册进 Hub，
// 事件通过 Send 通道直接读出来断言
func connect(h *Hub, userID string) *Client {
	c := NewClient(userID, nil)
	h.addClient(c)
	return c
}

// drain 读空连接上积压的下行事件
func drain(c *Client) []Event {
	var events []Event
	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				return events
			}
			var evt Event
			if json.Unmarshal(msg, &evt) == nil {
				events = append(events, evt)
			}
		default:
			return events
		}
	}
}

func findEvent(events []Event, name string) (Event, bool) {
	for _, evt := range events {
		if evt.Event == name {
			return evt, true
		}
	}
	return Event{}, false
}

func countEvents(events []Event, name string) int {
	n := 0
	for _, evt := range events {
		if evt.Event == name {
			n++
		}
	}
	return n
}
