package model

import "time"

// EsChatDocument 是写入 Elasticsearch 的问答文档结构。
type EsChatDocument struct {
	ChatID    uint      `json:"chat_id"`
	SessionID uint      `json:"session_id"`
	UserID    uint      `json:"user_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatSearchHit 是全文检索接口返回的单条命中结果。
type ChatSearchHit struct {
	ChatID    uint    `json:"chat_id"`
	SessionID uint    `json:"session_id"`
	Question  string  `json:"question"`
	Answer    string  `json:"answer"`
	Score     float64 `json:"score"`
}
