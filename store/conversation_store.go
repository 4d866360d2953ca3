package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chat-server/models"
)

// GormConversationStore 基于 gorm/MySQL 的会话存储
type GormConversationStore struct {
	db *gorm.DB
}

func NewConversationStore(db *gorm.DB) *GormConversationStore {
	return &GormConversationStore{db: db}
}

func (s *GormConversationStore) FindPersonalConversation(userA, userB string) (*models.Conversation, error) {
	// 按无序对键查找，kind 过滤写进键的语义里（只有私聊才有 pair_key）
	pairKey := PairKey(userA, userB)
	var conv models.Conversation
	err := s.db.Where("pair_key = ? AND kind = ?", pairKey, models.KindPersonal).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find personal conversation: %w", err)
	}
	return &conv, nil
}

func (s *GormConversationStore) FindConversation(conversationID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.Where("conversation_id = ?", conversationID).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return &conv, nil
}

func (s *GormConversationStore) CreateConversation(spec CreateConversationSpec) (*models.Conversation, bool, error) {
	conv := models.Conversation{
		ConversationID: uuid.NewString(),
		Kind:           spec.Kind,
		Name:           spec.Name,
		AvatarURL:      spec.AvatarURL,
	}
	if len(spec.Participants) == 0 {
		return nil, false, fmt.Errorf("conversation requires at least one participant")
	}
	if spec.Kind == models.KindPersonal {
		if len(spec.Participants) != 2 {
			return nil, false, fmt.Errorf("personal conversation requires exactly 2 participants, got %d", len(spec.Participants))
		}
		key := PairKey(spec.Participants[0].UserID, spec.Participants[1].UserID)
		conv.PairKey = &key
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		for i := range spec.Participants {
			spec.Participants[i].ConversationID = conv.ConversationID
		}
		return tx.Create(&spec.Participants).Error
	})
	if err == nil {
		return &conv, true, nil
	}

	// 两端同时首次互发消息时撞唯一索引，回退到已有会话
	if spec.Kind == models.KindPersonal && errors.Is(err, gorm.ErrDuplicatedKey) {
		existing, ferr := s.FindPersonalConversation(spec.Participants[0].UserID, spec.Participants[1].UserID)
		if ferr != nil {
			return nil, false, ferr
		}
		if existing != nil {
			return existing, false, nil
		}
	}
	return nil, false, fmt.Errorf("create conversation: %w", err)
}

func (s *GormConversationStore) AppendMessage(conversationID string, msg *models.Message) error {
	msg.ConversationID = conversationID
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		now := time.Now()
		return tx.Model(&models.Conversation{}).
			Where("conversation_id = ?", conversationID).
			Update("last_message_at", now).Error
	})
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *GormConversationStore) UpdateParticipants(conversationID string, mut ParticipantMutation) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if len(mut.Remove) > 0 {
			if err := tx.Where("conversation_id = ? AND user_id IN ?", conversationID, mut.Remove).
				Delete(&models.ConversationParticipant{}).Error; err != nil {
				return err
			}
		}
		for i := range mut.Add {
			mut.Add[i].ConversationID = conversationID
		}
		if len(mut.Add) > 0 {
			if err := tx.Create(&mut.Add).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update participants: %w", err)
	}
	return nil
}

func (s *GormConversationStore) RenameConversation(conversationID, name string) error {
	if err := s.db.Model(&models.Conversation{}).
		Where("conversation_id = ?", conversationID).
		Update("name", name).Error; err != nil {
		return fmt.Errorf("rename conversation: %w", err)
	}
	return nil
}

func (s *GormConversationStore) ParticipantsOf(conversationID string) ([]models.ConversationParticipant, error) {
	var participants []models.ConversationParticipant
	if err := s.db.Where("conversation_id = ?", conversationID).
		Order("joined_at ASC").
		Find(&participants).Error; err != nil {
		return nil, fmt.Errorf("participants of conversation: %w", err)
	}
	return participants, nil
}
