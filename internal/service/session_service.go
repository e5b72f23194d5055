package service

import (
	"errors"
	"fmt"

	"math-tutor-go/internal/model"
	"math-tutor-go/internal/repository"

	"gorm.io/gorm"
)

// SessionService 接口定义了会话管理的业务操作。
// 所有按 ID 访问会话的操作都做归属检查，失败统一返回 ErrSessionNotFound。
type SessionService interface {
	CreateSession(userID uint) (*model.ChatSession, error)
	ListSessions(userID uint) ([]model.ChatSession, error)
	GetOwnedSession(sessionID, userID uint) (*model.ChatSession, error)
	GetHistory(sessionID, userID uint, limit int) ([]model.Chat, error)
	RenameSession(sessionID, userID uint, title string) (*model.ChatSession, error)
	DeleteSession(sessionID, userID uint) error
}

type sessionService struct {
	sessionRepo repository.SessionRepository
	chatRepo    repository.ChatRepository
}

// NewSessionService 创建一个新的 SessionService 实例。
func NewSessionService(sessionRepo repository.SessionRepository, chatRepo repository.ChatRepository) SessionService {
	return &sessionService{
		sessionRepo: sessionRepo,
		chatRepo:    chatRepo,
	}
}

// defaultSessionTitle 按用户当前会话数生成顺序标题。
// 并发创建可能分配到相同的标题，这是可接受的小概率不一致。
func defaultSessionTitle(count int64) string {
	return fmt.Sprintf("Chat %d", count+1)
}

// CreateSession 为用户创建一个新会话，标题为 "Chat {count+1}"。
func (s *sessionService) CreateSession(userID uint) (*model.ChatSession, error) {
	count, err := s.sessionRepo.CountByUser(userID)
	if err != nil {
		return nil, err
	}
	session := &model.ChatSession{
		UserID: userID,
		Title:  defaultSessionTitle(count),
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

// ListSessions 返回用户的全部会话，最新创建的在前。
func (s *sessionService) ListSessions(userID uint) ([]model.ChatSession, error) {
	return s.sessionRepo.FindByUser(userID)
}

// GetOwnedSession 查找属于指定用户的会话。
// 会话不存在或属于他人时返回 ErrSessionNotFound，不区分两种情况。
func (s *sessionService) GetOwnedSession(sessionID, userID uint) (*model.ChatSession, error) {
	session, err := s.sessionRepo.FindByIDAndUser(sessionID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// GetHistory 返回会话内最近 limit 条问答记录，按时间正序。
func (s *sessionService) GetHistory(sessionID, userID uint, limit int) ([]model.Chat, error) {
	if _, err := s.GetOwnedSession(sessionID, userID); err != nil {
		return nil, err
	}
	return s.chatRepo.FindRecentBySession(sessionID, limit)
}

// RenameSession 修改会话标题，归属检查同 GetOwnedSession。
func (s *sessionService) RenameSession(sessionID, userID uint, title string) (*model.ChatSession, error) {
	session, err := s.GetOwnedSession(sessionID, userID)
	if err != nil {
		return nil, err
	}
	session.Title = title
	if err := s.sessionRepo.Update(session); err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteSession 删除会话并级联删除其全部问答记录。
func (s *sessionService) DeleteSession(sessionID, userID uint) error {
	if _, err := s.GetOwnedSession(sessionID, userID); err != nil {
		return err
	}
	return s.sessionRepo.DeleteWithChats(sessionID)
}
