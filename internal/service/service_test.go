package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"math-tutor-go/internal/config"
	"math-tutor-go/internal/model"
	"math-tutor-go/internal/repository"
	"math-tutor-go/pkg/llm"
	"math-tutor-go/pkg/token"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter int64

// newTestDB 创建一个独立的内存 SQLite 数据库并完成迁移。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.ChatSession{}, &model.Chat{}))
	return db
}

// fakeLLMClient 是 llm.Client 的测试替身，记录收到的消息列表。
type fakeLLMClient struct {
	answer       string
	err          error
	lastMessages []llm.Message
	calls        int
}

func (f *fakeLLMClient) ChatCompletion(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams) (string, error) {
	f.calls++
	f.lastMessages = messages
	return f.answer, f.err
}

func (f *fakeLLMClient) StreamChatMessages(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams, writer llm.MessageWriter) (string, error) {
	f.calls++
	f.lastMessages = messages
	if f.err != nil {
		return "", f.err
	}
	if err := writer.WriteMessage(1, []byte(f.answer)); err != nil {
		return "", err
	}
	return f.answer, nil
}

// testEnv 打包一组基于内存数据库的服务实例。
type testEnv struct {
	db          *gorm.DB
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	chatRepo    repository.ChatRepository
	users       UserService
	sessions    SessionService
	llm         *fakeLLMClient
	chats       ChatService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	chatRepo := repository.NewChatRepository(db)
	jwtManager := token.NewJWTManager("test-secret", 1, 1)
	users := NewUserService(userRepo, sessionRepo, jwtManager, nil)
	sessions := NewSessionService(sessionRepo, chatRepo)
	fake := &fakeLLMClient{answer: "Reasoning steps. Final Answer: 42"}
	chatCfg := config.ChatConfig{HistoryWindow: 5, HistoryDefaultLimit: 20, HistoryMaxLimit: 100}
	chats := NewChatService(sessions, chatRepo, fake, chatCfg, config.KafkaConfig{}, config.ElasticsearchConfig{})
	return &testEnv{
		db:          db,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		chatRepo:    chatRepo,
		users:       users,
		sessions:    sessions,
		llm:         fake,
		chats:       chats,
	}
}

// mustRegister 注册一个用户并返回模型对象。
func (e *testEnv) mustRegister(t *testing.T, name, email string, level int) *model.User {
	t.Helper()
	user, err := e.users.Register(name, email, "password123", "", level)
	require.NoError(t, err)
	return user
}

var errLLMDown = errors.New("connection refused")
