package handler

import (
	"errors"
	"net/http"
	"strconv"

	"math-tutor-go/internal/config"
	"math-tutor-go/internal/service"
	"math-tutor-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SessionHandler 负责处理会话管理相关的 API 请求。
type SessionHandler struct {
	sessionService service.SessionService
	searchService  service.SearchService
	chatCfg        config.ChatConfig
}

// NewSessionHandler 创建一个新的 SessionHandler 实例。
func NewSessionHandler(sessionService service.SessionService, searchService service.SearchService, chatCfg config.ChatConfig) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		searchService:  searchService,
		chatCfg:        chatCfg,
	}
}

// CreateSession 为当前用户创建一个新会话。
func (h *SessionHandler) CreateSession(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	session, err := h.sessionService.CreateSession(user.ID)
	if err != nil {
		log.Error("CreateSession: Failed to create session", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建会话失败"})
		return
	}

	log.Infof("User %d created session %d ('%s')", user.ID, session.ID, session.Title)
	c.JSON(http.StatusCreated, session)
}

// ListSessions 返回当前用户的全部会话，最新创建的在前。
func (h *SessionHandler) ListSessions(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	sessions, err := h.sessionService.ListSessions(user.ID)
	if err != nil {
		log.Error("ListSessions: Failed to list sessions", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询会话列表失败"})
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// GetHistory 返回会话内最近的问答记录，按时间正序。
// limit 缺省取配置的默认值，并受最大值约束。
func (h *SessionHandler) GetHistory(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	limit := h.chatCfg.HistoryDefaultLimit
	if limit <= 0 {
		limit = 20
	}
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 limit 参数"})
			return
		}
		limit = parsed
	}
	if h.chatCfg.HistoryMaxLimit > 0 && limit > h.chatCfg.HistoryMaxLimit {
		limit = h.chatCfg.HistoryMaxLimit
	}

	history, err := h.sessionService.GetHistory(sessionID, user.ID, limit)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

// RenameSessionRequest 定义了重命名会话 API 的请求体结构。
type RenameSessionRequest struct {
	Title string `json:"title" binding:"required"`
}

// RenameSession 修改会话标题。
func (h *SessionHandler) RenameSession(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	var req RenameSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("RenameSession: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载：title 不能为空"})
		return
	}

	session, err := h.sessionService.RenameSession(sessionID, user.ID, req.Title)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// DeleteSession 删除会话并级联删除其全部问答记录。
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	if err := h.sessionService.DeleteSession(sessionID, user.ID); err != nil {
		respondSessionError(c, err)
		return
	}

	log.Infof("User %d deleted session %d", user.ID, sessionID)
	c.Status(http.StatusNoContent)
}

// SearchChats 在当前用户的问答记录中做全文检索。
func (h *SessionHandler) SearchChats(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少查询参数 q"})
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))

	hits, err := h.searchService.SearchChats(c.Request.Context(), user.ID, query, size)
	if err != nil {
		if errors.Is(err, service.ErrSearchDisabled) {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "全文检索未启用"})
			return
		}
		log.Error("SearchChats: Search failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "检索失败"})
		return
	}

	c.JSON(http.StatusOK, hits)
}

// sessionIDParam 解析路径中的会话 ID，非法时写入 400 响应。
func sessionIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的会话 ID"})
		return 0, false
	}
	return uint(parsed), true
}

// respondSessionError 将会话相关的业务错误映射为 HTTP 响应。
// 不存在与无权限统一映射为 404，避免泄露他人会话的存在性。
func respondSessionError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or access denied"})
		return
	}
	log.Error("Session operation failed", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
}
