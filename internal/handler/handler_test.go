package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"math-tutor-go/internal/config"
	"math-tutor-go/internal/middleware"
	"math-tutor-go/internal/model"
	"math-tutor-go/internal/repository"
	"math-tutor-go/internal/service"
	"math-tutor-go/pkg/llm"
	"math-tutor-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var handlerDBCounter int64

// fakeLLMClient 是 llm.Client 的测试替身。
type fakeLLMClient struct {
	answer string
	err    error
}

func (f *fakeLLMClient) ChatCompletion(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams) (string, error) {
	return f.answer, f.err
}

func (f *fakeLLMClient) StreamChatMessages(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams, writer llm.MessageWriter) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if err := writer.WriteMessage(1, []byte(f.answer)); err != nil {
		return "", err
	}
	return f.answer, nil
}

// newTestRouter 搭建与 main 一致的路由栈，底层使用内存 SQLite 与假 LLM。
func newTestRouter(t *testing.T) (*gin.Engine, *fakeLLMClient) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handler_test_%d?mode=memory&cache=shared", atomic.AddInt64(&handlerDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.ChatSession{}, &model.Chat{}))

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	chatRepo := repository.NewChatRepository(db)

	jwtManager := token.NewJWTManager("test-secret", 1, 1)
	fake := &fakeLLMClient{answer: "Add 2 and 2. Final Answer: 4"}
	chatCfg := config.ChatConfig{HistoryWindow: 5, HistoryDefaultLimit: 20, HistoryMaxLimit: 100}

	userService := service.NewUserService(userRepo, sessionRepo, jwtManager, nil)
	sessionService := service.NewSessionService(sessionRepo, chatRepo)
	chatService := service.NewChatService(sessionService, chatRepo, fake, chatCfg, config.KafkaConfig{}, config.ElasticsearchConfig{})
	searchService := service.NewSearchService(config.ElasticsearchConfig{})

	userHandler := NewUserHandler(userService)
	authHandler := NewAuthHandler(userService)
	sessionHandler := NewSessionHandler(sessionService, searchService, chatCfg)
	chatHandler := NewChatHandler(chatService, userService, jwtManager)
	authed := middleware.AuthMiddleware(jwtManager, userService)

	r := gin.New()
	auth := r.Group("/auth")
	{
		auth.POST("/refreshToken", authHandler.RefreshToken)
	}
	users := r.Group("/users")
	{
		users.POST("/signup", userHandler.Signup)
		users.POST("/login", userHandler.Login)
		me := users.Group("/")
		me.Use(authed)
		{
			me.GET("/me", userHandler.GetProfile)
			me.PUT("/me", userHandler.UpdateProfile)
			me.POST("/logout", userHandler.Logout)
		}
	}
	sessions := r.Group("/sessions")
	sessions.Use(authed)
	{
		sessions.POST("/", sessionHandler.CreateSession)
		sessions.GET("/", sessionHandler.ListSessions)
		sessions.GET("/search", sessionHandler.SearchChats)
		sessions.GET("/:id/history", sessionHandler.GetHistory)
		sessions.PUT("/:id", sessionHandler.RenameSession)
		sessions.DELETE("/:id", sessionHandler.DeleteSession)
		sessions.POST("/:id/messages", chatHandler.PostMessage)
	}

	return r, fake
}

// doJSON 发送一个 JSON 请求并返回响应记录器。
func doJSON(t *testing.T, r *gin.Engine, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// signupAndLogin 注册并登录一个用户，返回 access token。
func signupAndLogin(t *testing.T, r *gin.Engine, name, email string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/users/signup", "", gin.H{
		"name":     name,
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/users/login", "", gin.H{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "bearer", resp.TokenType)
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}
