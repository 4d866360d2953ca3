package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-server/config"
	"chat-server/models"
	"chat-server/services"
	"chat-server/utils"
)

// GetConversations 返回当前用户参与的全部会话
func GetConversations(c *gin.Context) {
	userInfo, ok := currentUser(c)
	if !ok {
		return
	}

	var conversations []models.Conversation
	err := config.DB.
		Joins("JOIN conversation_participants ON conversation_participants.conversation_id = conversations.conversation_id").
		Where("conversation_participants.user_id = ?", userInfo.ID).
		Order("conversations.last_message_at DESC").
		Find(&conversations).Error
	if err != nil {
		log.Println("Error fetching conversations:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversations"})
		return
	}

	// 附带成员列表，私聊的对端信息由前端从成员里取
	formatted := make([]services.ConversationView, 0, len(conversations))
	for _, conv := range conversations {
		var participants []models.ConversationParticipant
		if err := config.DB.Where("conversation_id = ?", conv.ConversationID).
			Find(&participants).Error; err != nil {
			log.Println("Error fetching participants:", err)
			continue
		}
		formatted = append(formatted, services.ConversationView{
			Conversation: conv,
			Participants: participants,
		})
	}

	utils.RespondSuccess(c, formatted, nil)
}

// GetMessagesByConversationID 获取会话的消息列表
func GetMessagesByConversationID(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	userInfo, ok := currentUser(c)
	if !ok {
		return
	}

	// 校验会话是否存在
	var conversation models.Conversation
	if err := config.DB.Where("conversation_id = ?", conversationID).
		First(&conversation).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	// 确保用户是该会话的成员
	var memberCount int64
	config.DB.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userInfo.ID).
		Count(&memberCount)
	if memberCount == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not part of this conversation"})
		return
	}

	// 按持久化顺序返回（created_at 相同的按自增主键排）
	var messages []models.Message
	err := config.DB.
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		log.Println("Error fetching messages:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	utils.RespondSuccess(c, messages, nil)
}

// CreateGroupHandler 显式建群（私聊会话由首条消息懒建，不走这里）
func CreateGroupHandler(c *gin.Context) {
	userInfo, ok := currentUser(c)
	if !ok {
		return
	}

	var requestData struct {
		Name      string   `json:"name" binding:"required"`
		MemberIDs []string `json:"member_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	conv, err := services.GetHub().Groups.CreateGroup(userInfo.ID, requestData.Name, requestData.MemberIDs)
	if err != nil {
		log.Println("Error creating group:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to create group", "code": services.ErrorCode(err)})
		return
	}

	utils.RespondSuccess(c, gin.H{"conversation_id": conv.ConversationID}, nil)
}
