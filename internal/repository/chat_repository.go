package repository

import (
	"math-tutor-go/internal/model"

	"gorm.io/gorm"
)

// ChatRepository 接口定义了问答记录的持久化操作。
type ChatRepository interface {
	Create(chat *model.Chat) error
	// FindRecentBySession 返回会话内最近的 limit 条记录，按时间正序（最老在前）。
	FindRecentBySession(sessionID uint, limit int) ([]model.Chat, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository 创建一个新的 ChatRepository 实例。
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// Create 在一个事务中写入一条问答记录，失败时回滚、不留下半行数据。
func (r *chatRepository) Create(chat *model.Chat) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(chat).Error
	})
}

// FindRecentBySession 先按 id 倒序取最近 limit 条，再反转为正序返回。
func (r *chatRepository) FindRecentBySession(sessionID uint, limit int) ([]model.Chat, error) {
	var chats []model.Chat
	err := r.db.Where("session_id = ?", sessionID).Order("id DESC").Limit(limit).Find(&chats).Error
	if err != nil {
		return nil, err
	}
	// 反转为最老在前，供历史接口与 prompt 构建直接使用
	for i, j := 0, len(chats)-1; i < j; i, j = i+1, j-1 {
		chats[i], chats[j] = chats[j], chats[i]
	}
	return chats, nil
}
