// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"math-tutor-go/internal/config"
	"math-tutor-go/pkg/log"

	"github.com/segmentio/kafka-go"
)

// ChatAnsweredEvent 是一次问答完成后对外发布的事件，供下游统计或审计消费。
type ChatAnsweredEvent struct {
	ChatID           uint      `json:"chatId"`
	SessionID        uint      `json:"sessionId"`
	UserID           uint      `json:"userId"`
	ExplanationLevel int       `json:"explanationLevel"`
	Degraded         bool      `json:"degraded"` // 推理失败、保存了占位答案时为 true
	AnsweredAt       time.Time `json:"answeredAt"`
}

var producer *kafka.Writer

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
}

// ProduceChatEvent 发送一个问答完成事件到 Kafka。
// 事件发布是尽力而为的，失败只影响下游统计，不影响主流程。
func ProduceChatEvent(ctx context.Context, event ChatAnsweredEvent) error {
	if producer == nil {
		return nil
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return producer.WriteMessages(ctx,
		kafka.Message{
			Value: eventBytes,
		},
	)
}

// Close 关闭生产者连接。
func Close() {
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Errorf("关闭 Kafka 生产者失败: %v", err)
		}
	}
}
