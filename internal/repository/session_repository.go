package repository

import (
	"math-tutor-go/internal/model"

	"gorm.io/gorm"
)

// SessionRepository 接口定义了会话数据的持久化操作。
type SessionRepository interface {
	Create(session *model.ChatSession) error
	FindByUser(userID uint) ([]model.ChatSession, error)
	FindByIDAndUser(sessionID, userID uint) (*model.ChatSession, error)
	CountByUser(userID uint) (int64, error)
	Update(session *model.ChatSession) error
	// DeleteWithChats 在一个事务中删除会话及其全部问答记录。
	DeleteWithChats(sessionID uint) error
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 创建一个新的 SessionRepository 实例。
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

// Create 在数据库中创建一个新的会话记录。
func (r *sessionRepository) Create(session *model.ChatSession) error {
	return r.db.Create(session).Error
}

// FindByUser 返回用户的全部会话，按创建时间倒序（最新在前）。
func (r *sessionRepository) FindByUser(userID uint) ([]model.ChatSession, error) {
	var sessions []model.ChatSession
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&sessions).Error
	return sessions, err
}

// FindByIDAndUser 查找属于指定用户的会话。
// 不存在与不属于该用户在这里不做区分，统一返回 gorm.ErrRecordNotFound。
func (r *sessionRepository) FindByIDAndUser(sessionID, userID uint) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.db.Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// CountByUser 统计用户当前的会话数量。
func (r *sessionRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.ChatSession{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// Update 更新数据库中一个已存在的会话记录。
func (r *sessionRepository) Update(session *model.ChatSession) error {
	return r.db.Save(session).Error
}

// DeleteWithChats 删除会话及其全部问答记录。
// 级联在应用层显式完成：先删子记录，再删会话，整体在一个事务里。
func (r *sessionRepository) DeleteWithChats(sessionID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&model.Chat{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.ChatSession{}, sessionID).Error
	})
}
