package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chat-server/models"
)

// GormUserStore 基于 gorm/MySQL 的用户存储
type GormUserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (s *GormUserStore) FindUser(userID string) (*models.User, error) {
	var user models.User
	err := s.db.Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (s *GormUserStore) SetStatus(userID, status string) error {
	if err := s.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("status", status).Error; err != nil {
		return fmt.Errorf("set user status: %w", err)
	}
	return nil
}

func (s *GormUserStore) AddMutualContacts(userA, userB string) error {
	rows := []models.Contact{
		{UserID: userA, ContactID: userB},
		{UserID: userB, ContactID: userA},
	}
	// 已存在时忽略，首次私聊可能双方同时触发
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("add mutual contacts: %w", err)
	}
	return nil
}

func (s *GormUserStore) ContactsOf(userID string) ([]models.User, error) {
	var users []models.User
	err := s.db.
		Joins("JOIN contacts ON contacts.contact_id = users.id").
		Where("contacts.user_id = ?", userID).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("contacts of user: %w", err)
	}
	return users, nil
}

func (s *GormUserStore) UpdateBlockSet(userID string, mut BlockMutation) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if len(mut.Remove) > 0 {
			if err := tx.Where("user_id = ? AND blocked_id IN ?", userID, mut.Remove).
				Delete(&models.BlockedUser{}).Error; err != nil {
				return err
			}
		}
		for _, blockedID := range mut.Add {
			row := models.BlockedUser{UserID: userID, BlockedID: blockedID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update block set: %w", err)
	}
	return nil
}

func (s *GormUserStore) IsBlockedEither(userA, userB string) (bool, error) {
	var count int64
	err := s.db.Model(&models.BlockedUser{}).
		Where("(user_id = ? AND blocked_id = ?) OR (user_id = ? AND blocked_id = ?)",
			userA, userB, userB, userA).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check block relationship: %w", err)
	}
	return count > 0, nil
}

func (s *GormUserStore) BlockedBy(userID string) ([]string, error) {
	var ids []string
	err := s.db.Model(&models.BlockedUser{}).
		Where("user_id = ?", userID).
		Pluck("blocked_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("blocked list of user: %w", err)
	}
	return ids, nil
}
