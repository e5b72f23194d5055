package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"math-tutor-go/internal/service"
	"math-tutor-go/pkg/log"
	"math-tutor-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ChatHandler 负责处理问答相关的 HTTP 与 WebSocket 请求。
type ChatHandler struct {
	chatService service.ChatService
	userService service.UserService
	jwtManager  *token.JWTManager
}

// NewChatHandler 创建一个新的 ChatHandler 实例。
func NewChatHandler(chatService service.ChatService, userService service.UserService, jwtManager *token.JWTManager) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		userService: userService,
		jwtManager:  jwtManager,
	}
}

// AskRequest 定义了提问 API 的请求体结构。
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// ChatResponse 定义了提问 API 的响应体结构。
// Answer 是模型的完整输出；FinalAnswer 是按约定标记拆出的最终答案部分。
type ChatResponse struct {
	ID          uint      `json:"id"`
	SessionID   uint      `json:"session_id"`
	Question    string    `json:"question"`
	Answer      string    `json:"answer"`
	FinalAnswer string    `json:"final_answer"`
	Timestamp   time.Time `json:"timestamp"`
}

// PostMessage 处理向会话提交一个新问题的请求。
func (h *ChatHandler) PostMessage(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("PostMessage: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载：question 不能为空"})
		return
	}

	chat, err := h.chatService.AskQuestion(c.Request.Context(), user, sessionID, req.Question)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	_, finalAnswer := service.SplitFinalAnswer(chat.Answer)
	c.JSON(http.StatusOK, ChatResponse{
		ID:          chat.ID,
		SessionID:   chat.SessionID,
		Question:    chat.Question,
		Answer:      chat.Answer,
		FinalAnswer: finalAnswer,
		Timestamp:   chat.CreatedAt,
	})
}

// wsAskMessage 是 WebSocket 上收到的提问消息。
type wsAskMessage struct {
	SessionID uint   `json:"session_id"`
	Question  string `json:"question"`
}

// wsChunkWriter 把生成分块包装成 {"chunk":"..."} 再写入连接。
type wsChunkWriter struct {
	conn *websocket.Conn
}

// WriteMessage 满足 llm.MessageWriter 接口。
func (w *wsChunkWriter) WriteMessage(messageType int, data []byte) error {
	payload := map[string]string{"chunk": string(data)}
	b, _ := json.Marshal(payload)
	return w.conn.WriteMessage(messageType, b)
}

// Handle 处理一个传入的 WebSocket 连接。
// token 在路径中携带，连接建立后客户端逐条发送 {"session_id":N,"question":"..."}。
func (h *ChatHandler) Handle(c *gin.Context) {
	tokenString := c.Param("token")
	claims, err := h.jwtManager.VerifyToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的 token"})
		return
	}

	user, err := h.userService.GetProfile(claims.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立，用户: %s", user.Email)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}

		var ask wsAskMessage
		if err := json.Unmarshal(message, &ask); err != nil || ask.Question == "" || ask.SessionID == 0 {
			h.writeWsError(conn, "消息格式错误：需要 session_id 与 question")
			continue
		}

		writer := &wsChunkWriter{conn: conn}
		chat, err := h.chatService.StreamAnswer(c.Request.Context(), user, ask.SessionID, ask.Question, writer)
		if err != nil {
			// 归属检查失败或落库失败
			h.writeWsError(conn, err.Error())
			continue
		}

		h.writeWsCompletion(conn, chat.ID)
	}
}

// writeWsError 向连接写入一条错误通知。
func (h *ChatHandler) writeWsError(conn *websocket.Conn, message string) {
	notif := map[string]interface{}{
		"type":    "error",
		"message": message,
	}
	b, _ := json.Marshal(notif)
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

// writeWsCompletion 向连接写入完成通知。
func (h *ChatHandler) writeWsCompletion(conn *websocket.Conn, chatID uint) {
	notif := map[string]interface{}{
		"type":      "completion",
		"status":    "finished",
		"chatId":    chatID,
		"timestamp": time.Now().UnixMilli(),
	}
	b, _ := json.Marshal(notif)
	_ = conn.WriteMessage(websocket.TextMessage, b)
}
