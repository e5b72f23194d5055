package service

import (
	"context"
	"strings"

	"math-tutor-go/internal/config"
	"math-tutor-go/internal/model"
	"math-tutor-go/internal/repository"
	"math-tutor-go/pkg/es"
	"math-tutor-go/pkg/kafka"
	"math-tutor-go/pkg/llm"
	"math-tutor-go/pkg/log"
)

// finalAnswerMarker 是模型输出中标记最终答案的约定前缀。
const finalAnswerMarker = "Final Answer:"

// inferenceErrorPlaceholder 是推理失败时落库的占位答案。
// 失败策略是"降级但保存"：问答记录始终写入，占位答案对用户可见。
const inferenceErrorPlaceholder = "Sorry, I encountered an issue generating a response. Please try again."

// ChatService 定义了问答操作的接口。
type ChatService interface {
	// AskQuestion 完成一轮问答：构建 prompt、调用 LLM、落库并返回持久化的记录。
	AskQuestion(ctx context.Context, user *model.User, sessionID uint, question string) (*model.Chat, error)
	// StreamAnswer 与 AskQuestion 语义一致，但通过 writer 流式下发生成分块。
	StreamAnswer(ctx context.Context, user *model.User, sessionID uint, question string, writer llm.MessageWriter) (*model.Chat, error)
}

type chatService struct {
	sessionService SessionService
	chatRepo       repository.ChatRepository
	llmClient      llm.Client
	chatCfg        config.ChatConfig
	kafkaCfg       config.KafkaConfig
	esCfg          config.ElasticsearchConfig
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(sessionService SessionService, chatRepo repository.ChatRepository, llmClient llm.Client,
	chatCfg config.ChatConfig, kafkaCfg config.KafkaConfig, esCfg config.ElasticsearchConfig) ChatService {
	return &chatService{
		sessionService: sessionService,
		chatRepo:       chatRepo,
		llmClient:      llmClient,
		chatCfg:        chatCfg,
		kafkaCfg:       kafkaCfg,
		esCfg:          esCfg,
	}
}

// AskQuestion 处理一轮同步问答。
func (s *chatService) AskQuestion(ctx context.Context, user *model.User, sessionID uint, question string) (*model.Chat, error) {
	messages, err := s.prepareMessages(user, sessionID, question)
	if err != nil {
		return nil, err
	}

	answer, degraded := s.generate(ctx, user, messages)
	return s.saveAndPublish(ctx, user, sessionID, question, answer, degraded)
}

// StreamAnswer 处理一轮流式问答，分块写入 writer，完成后落库。
func (s *chatService) StreamAnswer(ctx context.Context, user *model.User, sessionID uint, question string, writer llm.MessageWriter) (*model.Chat, error) {
	messages, err := s.prepareMessages(user, sessionID, question)
	if err != nil {
		return nil, err
	}

	answer, streamErr := s.llmClient.StreamChatMessages(ctx, messages, nil, writer)
	degraded := false
	if streamErr != nil || strings.TrimSpace(answer) == "" {
		log.Errorf("[ChatService] 流式推理失败, userId: %d, sessionId: %d, error: %v", user.ID, sessionID, streamErr)
		answer = inferenceErrorPlaceholder
		degraded = true
	}
	return s.saveAndPublish(ctx, user, sessionID, question, answer, degraded)
}

// prepareMessages 做归属检查并构建发送给 LLM 的消息列表。
func (s *chatService) prepareMessages(user *model.User, sessionID uint, question string) ([]llm.Message, error) {
	// 1. 归属检查：不存在与无权限统一为 ErrSessionNotFound
	if _, err := s.sessionService.GetOwnedSession(sessionID, user.ID); err != nil {
		return nil, err
	}

	// 2. 按用户讲解等级选择 system prompt，越界等级回退到 Detailed
	systemPrompt, levelName := SelectSystemPrompt(user.ExplanationLevel)
	log.Infof("[ChatService] 使用讲解等级 %s (level=%d), userId: %d", levelName, user.ExplanationLevel, user.ID)

	// 3. 取会话内最近几轮问答作为上下文，窗口大小限制 prompt 随会话变长而膨胀
	window := s.chatCfg.HistoryWindow
	if window <= 0 {
		window = 5
	}
	history, err := s.chatRepo.FindRecentBySession(sessionID, window)
	if err != nil {
		log.Warnf("[ChatService] 读取会话历史失败, sessionId: %d, error: %v", sessionID, err)
		history = nil
	}

	return composeMessages(systemPrompt, history, question), nil
}

// composeMessages 组装 system + 历史轮次 + 当前问题的消息列表。
// 历史按最老在前展开为 user/assistant 轮次对，跳过缺少问题或答案的记录。
func composeMessages(systemPrompt string, history []model.Chat, question string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)*2+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	for _, item := range history {
		if item.Question == "" || item.Answer == "" {
			continue
		}
		messages = append(messages, llm.Message{Role: "user", Content: item.Question})
		messages = append(messages, llm.Message{Role: "assistant", Content: item.Answer})
	}
	messages = append(messages, llm.Message{Role: "user", Content: question})
	return messages
}

// generate 同步调用 LLM，失败时降级为占位答案。
func (s *chatService) generate(ctx context.Context, user *model.User, messages []llm.Message) (answer string, degraded bool) {
	answer, err := s.llmClient.ChatCompletion(ctx, messages, nil)
	if err != nil || strings.TrimSpace(answer) == "" {
		log.Errorf("[ChatService] 推理失败, userId: %d, error: %v", user.ID, err)
		return inferenceErrorPlaceholder, true
	}
	return answer, false
}

// saveAndPublish 持久化问答记录，并尽力而为地发布事件与写入搜索索引。
// 数据库失败是致命的；Kafka 与 Elasticsearch 失败只记录日志。
func (s *chatService) saveAndPublish(ctx context.Context, user *model.User, sessionID uint, question, answer string, degraded bool) (*model.Chat, error) {
	chat := &model.Chat{
		SessionID: sessionID,
		Question:  question,
		Answer:    answer,
	}
	if err := s.chatRepo.Create(chat); err != nil {
		log.Errorf("[ChatService] 保存问答记录失败, userId: %d, sessionId: %d, error: %v", user.ID, sessionID, err)
		return nil, err
	}

	if s.kafkaCfg.Enabled {
		event := kafka.ChatAnsweredEvent{
			ChatID:           chat.ID,
			SessionID:        sessionID,
			UserID:           user.ID,
			ExplanationLevel: user.ExplanationLevel,
			Degraded:         degraded,
			AnsweredAt:       chat.CreatedAt,
		}
		if err := kafka.ProduceChatEvent(ctx, event); err != nil {
			log.Warnf("[ChatService] 发布问答事件失败, chatId: %d, error: %v", chat.ID, err)
		}
	}

	if s.esCfg.Enabled {
		doc := model.EsChatDocument{
			ChatID:    chat.ID,
			SessionID: sessionID,
			UserID:    user.ID,
			Question:  question,
			Answer:    answer,
			CreatedAt: chat.CreatedAt,
		}
		if err := es.IndexChat(ctx, s.esCfg.IndexName, doc); err != nil {
			log.Warnf("[ChatService] 写入搜索索引失败, chatId: %d, error: %v", chat.ID, err)
		}
	}

	return chat, nil
}

// SplitFinalAnswer 按 "Final Answer:" 标记把模型输出拆分为推理过程和最终答案。
// 标记不存在时最终答案为空串。这只是一个展示约定，不做重试或格式校验。
func SplitFinalAnswer(raw string) (reasoning, finalAnswer string) {
	idx := strings.Index(raw, finalAnswerMarker)
	if idx < 0 {
		return strings.TrimSpace(raw), ""
	}
	reasoning = strings.TrimSpace(raw[:idx])
	finalAnswer = strings.TrimSpace(raw[idx+len(finalAnswerMarker):])
	return reasoning, finalAnswer
}
